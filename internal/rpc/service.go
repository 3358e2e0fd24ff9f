package rpc

import (
	"context"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/core/protocol"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

// NodeInfo is a point-in-time snapshot of the node, reported by server_info.
type NodeInfo struct {
	Version       string
	Network       protocol.Network
	ForkVersion   uint64
	LatestHeight  uint64
	HasEntries    bool
	StoredRecords uint64
	UptimeSeconds int64
}

// Service is the node surface the RPC layer calls into. The node package
// provides the production implementation; tests substitute their own.
type Service interface {
	// Info reports node identity and progress.
	Info() NodeInfo

	// LatestEntry returns the highest stored entry, or
	// recordstore.ErrEmptyStore when nothing is stored yet.
	LatestEntry() (*recordstore.Entry, error)

	// EntryAt returns the entry at height, or recordstore.ErrNotFound.
	EntryAt(height uint64) (*recordstore.Entry, error)

	// EntryRange returns the stored entries in [from, to] in ascending
	// height order, at most limit of them. Heights with no entry are
	// skipped, not errors.
	EntryRange(from, to uint64, limit int) ([]*recordstore.Entry, error)

	// SubmitEntry validates e against the chain tip and persists it.
	// Validation failures come back verbatim so callers can surface
	// the reason.
	SubmitEntry(ctx context.Context, e *recordstore.Entry) error

	// VerifyRecord runs consensus validation of rec against the given
	// block timestamps without persisting anything.
	VerifyRecord(rec *oracle.PricingRecord, blockTimestamp, prevBlockTimestamp uint64) error
}
