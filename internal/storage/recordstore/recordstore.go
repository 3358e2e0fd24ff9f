// Package recordstore provides persistent height-keyed storage for pricing
// records and their per-block companions. Heights map to fixed-layout
// envelopes through pluggable key-value backends with an LRU read cache in
// front.
//
// Keys are big-endian heights so that ordered backends iterate in chain
// order.
package recordstore

import (
	"fmt"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
)

// Entry is the unit of storage: everything the chain keeps per block height
// about oracle pricing.
type Entry struct {
	// Height is the block height the entry belongs to.
	Height uint64

	// Record is the block's pricing record.
	Record oracle.PricingRecord

	// Supply carries the block's mint and burn tallies.
	Supply oracle.SupplyData

	// Assets holds per-asset rate pairs for multi-asset chains. May be
	// empty.
	Assets []oracle.AssetData
}

// Clone returns a deep copy. Store reads hand out clones so cached entries
// are never aliased by callers.
func (e *Entry) Clone() *Entry {
	out := &Entry{
		Height: e.Height,
		Record: e.Record,
		Supply: e.Supply,
	}
	if len(e.Assets) > 0 {
		out.Assets = make([]oracle.AssetData, len(e.Assets))
		copy(out.Assets, e.Assets)
	}
	return out
}

// Status is the result classification backends report.
type Status int

const (
	// OK indicates the operation was successful.
	OK Status = iota
	// NotFound indicates no entry is stored at the requested height.
	NotFound
	// DataCorrupt indicates the stored envelope failed to decode.
	DataCorrupt
	// BackendError indicates a storage failure or a closed backend.
	BackendError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case NotFound:
		return "NotFound"
	case DataCorrupt:
		return "DataCorrupt"
	case BackendError:
		return "BackendError"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Backend is the interface storage backends implement. Values are opaque
// envelope bytes; interpretation stays with the Store.
type Backend interface {
	// Name returns a human-readable backend name.
	Name() string

	// Open opens the backend for use.
	Open(createIfMissing bool) error

	// Close closes the backend and releases resources.
	Close() error

	// IsOpen reports whether the backend is open.
	IsOpen() bool

	// Get retrieves the envelope stored at height.
	Get(height uint64) ([]byte, Status)

	// Put stores an envelope at height, replacing any previous value.
	Put(height uint64, value []byte) Status

	// Delete removes the entry at height. Deleting a missing height is OK.
	Delete(height uint64) Status

	// ForEach visits every stored entry in ascending height order,
	// stopping at the first error returned by fn.
	ForEach(fn func(height uint64, value []byte) error) error

	// Sync flushes pending writes to stable storage.
	Sync() Status
}
