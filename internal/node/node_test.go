package node

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aurumchain/go-aurum/internal/config"
	"github.com/aurumchain/go-aurum/internal/core/hardfork"
	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/core/protocol"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
	oracletest "github.com/aurumchain/go-aurum/internal/testing/oracle"
	"github.com/aurumchain/go-aurum/internal/version"
)

// Conversion activates at height 1_000 on testnet, so tests submit from
// there upward.
const activationHeight = 1_000

func testConfig(t *testing.T, key *oracletest.SigningKey) *config.Config {
	t.Helper()
	return &config.Config{
		Node:   config.NodeConfig{Network: "testnet", DataDir: t.TempDir()},
		Oracle: config.OracleConfig{Keys: map[string]string{"testnet": key.Material}},
		Store:  config.StoreConfig{Backend: config.BackendMemory, CacheSize: 64},
		RPC:    config.RPCConfig{Enabled: true, EnableWebsocket: true},
	}
}

func newTestNode(t *testing.T) (*Node, *oracletest.SigningKey) {
	t.Helper()
	key := oracletest.NewEd25519Key(t)
	n, err := New(context.Background(), testConfig(t, key), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n, key
}

func signedEntry(key *oracletest.SigningKey, height, timestamp uint64) *recordstore.Entry {
	return &recordstore.Entry{
		Height: height,
		Record: oracletest.Record(timestamp).SignedBy(key).Build(),
	}
}

func TestNewRejectsUnknownNetwork(t *testing.T) {
	key := oracletest.NewEd25519Key(t)
	cfg := testConfig(t, key)
	cfg.Node.Network = "moonnet"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestNewRejectsBadKeyMaterial(t *testing.T) {
	key := oracletest.NewEd25519Key(t)
	cfg := testConfig(t, key)
	cfg.Oracle.Keys["testnet"] = "definitely not a public key"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestInfoFreshNode(t *testing.T) {
	n, _ := newTestNode(t)

	info := n.Info()
	require.Equal(t, version.Version, info.Version)
	require.Equal(t, protocol.TestNet, info.Network)
	require.Equal(t, hardfork.VersionGenesis, info.ForkVersion)
	require.Zero(t, info.LatestHeight)
	require.False(t, info.HasEntries)
	require.Zero(t, info.StoredRecords)
	require.GreaterOrEqual(t, info.UptimeSeconds, int64(0))

	require.NotNil(t, n.RPCHandler())
}

func TestStatusMirrorsInfo(t *testing.T) {
	n, key := newTestNode(t)

	ts := uint64(time.Now().Unix())
	require.NoError(t, n.SubmitEntry(context.Background(), signedEntry(key, activationHeight, ts)))

	info := n.Info()
	status := n.Status()
	require.Equal(t, info.Version, status.Version)
	require.Equal(t, info.Network.String(), status.Network)
	require.Equal(t, info.ForkVersion, status.ForkVersion)
	require.Equal(t, info.LatestHeight, status.LatestHeight)
	require.Equal(t, info.HasEntries, status.HasEntries)
	require.Equal(t, info.StoredRecords, status.StoredRecords)
}

func TestSubmitEntryAccept(t *testing.T) {
	n, key := newTestNode(t)

	ts := uint64(time.Now().Unix())
	e := signedEntry(key, activationHeight, ts)
	e.Supply = oracle.SupplyData{CoinBurnt: 10, CoinMinted: 20}
	e.Assets = []oracle.AssetData{{AssetID: 1, Spot: 500, MovingAverage: 450}}

	require.NoError(t, n.SubmitEntry(context.Background(), e))

	stored, err := n.EntryAt(activationHeight)
	require.NoError(t, err)
	require.Equal(t, e.Record.Spot, stored.Record.Spot)
	require.Equal(t, e.Record.Signature, stored.Record.Signature)
	require.Equal(t, e.Supply, stored.Supply)
	require.Equal(t, e.Assets, stored.Assets)

	info := n.Info()
	require.True(t, info.HasEntries)
	require.Equal(t, uint64(activationHeight), info.LatestHeight)
	require.Equal(t, uint64(1), info.StoredRecords)
	require.Equal(t, hardfork.VersionConversion, info.ForkVersion)
}

func TestSubmitEntryRejectsStaleHeight(t *testing.T) {
	n, key := newTestNode(t)

	ts := uint64(time.Now().Unix())
	require.NoError(t, n.SubmitEntry(context.Background(), signedEntry(key, activationHeight, ts)))

	err := n.SubmitEntry(context.Background(), signedEntry(key, activationHeight, ts+1))
	require.ErrorIs(t, err, recordstore.ErrHeightNotAboveTip)

	err = n.SubmitEntry(context.Background(), signedEntry(key, activationHeight-1, ts+1))
	require.ErrorIs(t, err, recordstore.ErrHeightNotAboveTip)

	require.Equal(t, uint64(1), n.Info().StoredRecords)
}

func TestSubmitEntryRejectsTamperedRecord(t *testing.T) {
	n, key := newTestNode(t)

	e := signedEntry(key, activationHeight, uint64(time.Now().Unix()))
	e.Record.Spot++

	err := n.SubmitEntry(context.Background(), e)
	require.ErrorIs(t, err, oracle.ErrSignatureInvalid)
	require.False(t, n.Info().HasEntries)
}

func TestSubmitEntryRejectsStaleTimestamp(t *testing.T) {
	n, key := newTestNode(t)

	ts := uint64(time.Now().Unix())
	require.NoError(t, n.SubmitEntry(context.Background(), signedEntry(key, activationHeight, ts)))

	err := n.SubmitEntry(context.Background(), signedEntry(key, activationHeight+1, ts))
	require.ErrorIs(t, err, oracle.ErrTimestampStale)
}

func TestSubmitEntryRejectsFutureTimestamp(t *testing.T) {
	n, key := newTestNode(t)

	ts := uint64(time.Now().Unix()) + protocol.MaxRecordTimeSkew + 300
	err := n.SubmitEntry(context.Background(), signedEntry(key, activationHeight, ts))
	require.ErrorIs(t, err, oracle.ErrTimestampFuture)
}

func TestSubmitEntryRejectsPreActivation(t *testing.T) {
	n, key := newTestNode(t)

	err := n.SubmitEntry(context.Background(), signedEntry(key, 500, uint64(time.Now().Unix())))
	require.ErrorIs(t, err, oracle.ErrPreActivationRecord)
}

func TestSubmitEmptyRecordEntry(t *testing.T) {
	n, key := newTestNode(t)

	// Before activation blocks carry no record; after it an all-zero record
	// means "no quote this block". Both pass without a signature.
	require.NoError(t, n.SubmitEntry(context.Background(), &recordstore.Entry{Height: 500}))
	require.NoError(t, n.SubmitEntry(context.Background(), &recordstore.Entry{Height: activationHeight}))

	// The empty tip contributes no previous timestamp, so the next signed
	// record only has to stay within the future-skew allowance.
	ts := uint64(time.Now().Unix())
	require.NoError(t, n.SubmitEntry(context.Background(), signedEntry(key, activationHeight+1, ts)))

	require.Equal(t, uint64(3), n.Info().StoredRecords)
}

func TestVerifyRecord(t *testing.T) {
	n, key := newTestNode(t)

	ts := uint64(1_700_000_000)
	rec := oracletest.Record(ts).SignedBy(key).Build()

	require.NoError(t, n.VerifyRecord(&rec, ts, ts-1))

	tampered := rec
	tampered.MovingAverage++
	require.ErrorIs(t, n.VerifyRecord(&tampered, ts, ts-1), oracle.ErrSignatureInvalid)

	require.ErrorIs(t, n.VerifyRecord(&rec, ts, ts), oracle.ErrTimestampStale)
	require.ErrorIs(t, n.VerifyRecord(&rec, ts-protocol.MaxRecordTimeSkew-1, ts-500), oracle.ErrTimestampFuture)
}

func TestEntryRangeLimit(t *testing.T) {
	n, key := newTestNode(t)

	ts := uint64(time.Now().Unix())
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, n.SubmitEntry(context.Background(), signedEntry(key, activationHeight+i, ts+i)))
	}

	entries, err := n.EntryRange(activationHeight, activationHeight+2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(activationHeight), entries[0].Height)
	require.Equal(t, uint64(activationHeight+1), entries[1].Height)

	entries, err = n.EntryRange(activationHeight, activationHeight+2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	_, err = n.EntryRange(activationHeight+2, activationHeight, 0)
	require.ErrorIs(t, err, recordstore.ErrInvalidRange)
}

func TestLatestEntryEmptyStore(t *testing.T) {
	n, _ := newTestNode(t)

	_, err := n.LatestEntry()
	require.ErrorIs(t, err, recordstore.ErrEmptyStore)
}

func TestHistoryRideAlong(t *testing.T) {
	key := oracletest.NewEd25519Key(t)
	cfg := testConfig(t, key)
	cfg.History.Enabled = true
	cfg.History.Driver = config.DriverSQLite
	cfg.History.DSN = "file:" + filepath.Join(t.TempDir(), "history.db")

	n, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })

	ts := uint64(time.Now().Unix())
	require.NoError(t, n.SubmitEntry(context.Background(), signedEntry(key, activationHeight, ts)))

	count, err := n.history.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	row, err := n.history.GetByHeight(context.Background(), activationHeight)
	require.NoError(t, err)
	require.Equal(t, ts, row.Record.Timestamp)
}

func TestRunRequiresSurface(t *testing.T) {
	key := oracletest.NewEd25519Key(t)
	cfg := testConfig(t, key)
	cfg.RPC.Enabled = false

	n, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })

	err = n.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no serving surface enabled")
}

func TestRunHTTPCancel(t *testing.T) {
	key := oracletest.NewEd25519Key(t)
	cfg := testConfig(t, key)
	cfg.RPC.ListenAddr = "127.0.0.1:0"

	n, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRunGRPCCancel(t *testing.T) {
	key := oracletest.NewEd25519Key(t)
	cfg := testConfig(t, key)
	cfg.RPC.Enabled = false
	cfg.GRPC.Enabled = true
	cfg.GRPC.ListenAddr = "127.0.0.1:0"

	n, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, n.grpcServer.IsRunning, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	require.False(t, n.grpcServer.IsRunning())
}
