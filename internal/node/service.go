package node

import (
	"context"
	"fmt"
	"time"

	"github.com/aurumchain/go-aurum/internal/core/hardfork"
	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/grpc"
	"github.com/aurumchain/go-aurum/internal/rpc"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
	"github.com/aurumchain/go-aurum/internal/version"
)

// The node is the production service behind both API surfaces.
var (
	_ rpc.Service                 = (*Node)(nil)
	_ grpc.RecordServiceInterface = (*Node)(nil)
)

// Info reports node identity and storage progress.
func (n *Node) Info() rpc.NodeInfo {
	tip, ok := n.store.LatestHeight()

	return rpc.NodeInfo{
		Version:       version.Version,
		Network:       n.network,
		ForkVersion:   hardfork.VersionAt(n.network, tip),
		LatestHeight:  tip,
		HasEntries:    ok,
		StoredRecords: n.store.Count(),
		UptimeSeconds: int64(time.Since(n.startedAt).Seconds()),
	}
}

// Status is the gRPC view of Info.
func (n *Node) Status() grpc.NodeStatus {
	info := n.Info()

	return grpc.NodeStatus{
		Version:       info.Version,
		Network:       info.Network.String(),
		ForkVersion:   info.ForkVersion,
		LatestHeight:  info.LatestHeight,
		HasEntries:    info.HasEntries,
		StoredRecords: info.StoredRecords,
		UptimeSeconds: info.UptimeSeconds,
	}
}

// LatestEntry returns the entry at the chain tip.
func (n *Node) LatestEntry() (*recordstore.Entry, error) {
	return n.store.Latest()
}

// EntryAt returns the entry stored at height.
func (n *Node) EntryAt(height uint64) (*recordstore.Entry, error) {
	return n.store.Get(height)
}

// EntryRange returns stored entries in [from, to], at most limit of them.
func (n *Node) EntryRange(from, to uint64, limit int) ([]*recordstore.Entry, error) {
	entries, err := n.store.Range(from, to)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// SubmitEntry validates e as the next chain entry and persists it. The
// entry must extend past the stored tip; its record is validated as if
// carried by a block sealed now, with the tip entry's record supplying the
// previous timestamp for the monotonicity rule.
func (n *Node) SubmitEntry(ctx context.Context, e *recordstore.Entry) error {
	n.submitMu.Lock()
	defer n.submitMu.Unlock()

	var prevTimestamp uint64
	if tip, ok := n.store.LatestHeight(); ok {
		if e.Height <= tip {
			return fmt.Errorf("%w: height %d, tip %d", recordstore.ErrHeightNotAboveTip, e.Height, tip)
		}
		prev, err := n.store.Get(tip)
		if err != nil {
			return fmt.Errorf("read tip entry: %w", err)
		}
		prevTimestamp = prev.Record.Timestamp
	}

	forkVersion := hardfork.VersionAt(n.network, e.Height)
	blockTimestamp := uint64(time.Now().Unix())

	if err := n.validator.Validate(&e.Record, n.network, forkVersion, blockTimestamp, prevTimestamp); err != nil {
		return err
	}

	if err := n.store.Put(e); err != nil {
		return err
	}

	if n.history != nil {
		if err := n.history.Insert(ctx, e); err != nil {
			// History rows are derived and rebuildable; a failed insert
			// does not unwind an accepted entry.
			n.log.Error().Uint64("height", e.Height).Err(err).Msg("history insert failed")
		}
	}

	n.log.Info().
		Uint64("height", e.Height).
		Uint64("record_timestamp", e.Record.Timestamp).
		Msg("pricing record accepted")

	n.rpcServer.Hub().BroadcastEntry(e)
	return nil
}

// VerifyRecord checks rec under the newest protocol rules for the
// configured network. The caller supplies both block timestamps, so the
// verdict does not depend on stored state.
func (n *Node) VerifyRecord(rec *oracle.PricingRecord, blockTimestamp, prevBlockTimestamp uint64) error {
	forkVersion := hardfork.LatestVersion(n.network)
	return n.validator.Validate(rec, n.network, forkVersion, blockTimestamp, prevBlockTimestamp)
}
