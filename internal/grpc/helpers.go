package grpc

import (
	"errors"

	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

// Common errors for gRPC handlers
var (
	ErrRecordNotFound         = errors.New("record not found")
	ErrNoRecords              = errors.New("no records stored")
	ErrInvalidRecordSpecifier = errors.New("invalid record specifier")
)

// RecordSpecifier represents a way to identify a specific stored record.
// This mirrors the protobuf RecordSpecifier message.
type RecordSpecifier struct {
	// Shortcut is a named record reference (latest)
	Shortcut string

	// Height is the chain height of the record
	Height uint64

	// HasHeight indicates if Height was explicitly set
	HasHeight bool
}

// Record shortcut values
const (
	RecordShortcutLatest = "latest"
)

// entryFromSpecifier resolves a RecordSpecifier to a stored entry.
// An explicit height takes priority over a shortcut.
func entryFromSpecifier(spec *RecordSpecifier, svc RecordServiceInterface) (*recordstore.Entry, error) {
	if spec == nil {
		// Default to the latest record if no specifier provided
		e, err := svc.LatestEntry()
		if err != nil {
			return nil, ErrNoRecords
		}
		return e, nil
	}

	if spec.HasHeight {
		e, err := svc.EntryAt(spec.Height)
		if err != nil {
			return nil, ErrRecordNotFound
		}
		return e, nil
	}

	switch spec.Shortcut {
	case RecordShortcutLatest, "":
		e, err := svc.LatestEntry()
		if err != nil {
			return nil, ErrNoRecords
		}
		return e, nil

	default:
		return nil, ErrInvalidRecordSpecifier
	}
}

// entryToRecordInfo converts a stored entry to its wire form. The serialized
// record layout is attached when binary is set.
func entryToRecordInfo(e *recordstore.Entry, binary bool) RecordInfo {
	info := RecordInfo{
		Height:        e.Height,
		Version:       e.Record.Version,
		Spot:          e.Record.Spot,
		MovingAverage: e.Record.MovingAverage,
		Timestamp:     e.Record.Timestamp,
		Signature:     e.Record.Signature[:],
		Supply: SupplyInfo{
			CoinBurnt:   e.Supply.CoinBurnt,
			CoinMinted:  e.Supply.CoinMinted,
			AssetBurnt:  e.Supply.AssetBurnt,
			AssetMinted: e.Supply.AssetMinted,
		},
	}

	for _, a := range e.Assets {
		info.Assets = append(info.Assets, AssetInfo{
			AssetID:       a.AssetID,
			Spot:          a.Spot,
			MovingAverage: a.MovingAverage,
		})
	}

	if binary {
		info.RecordBlob = e.Record.EncodeBlob()
	}

	return info
}
