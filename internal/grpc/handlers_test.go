package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

type mockRecordService struct {
	entries map[uint64]*recordstore.Entry
	status  NodeStatus
}

var _ RecordServiceInterface = (*mockRecordService)(nil)

func testEntry(h uint64) *recordstore.Entry {
	rec := oracle.PricingRecord{
		Version:       2,
		Spot:          h * 1000,
		MovingAverage: h * 900,
		Timestamp:     1_700_000_000 + h,
	}
	rec.Signature[0] = byte(h)
	return &recordstore.Entry{
		Height: h,
		Record: rec,
		Supply: oracle.SupplyData{CoinBurnt: h, CoinMinted: h * 2},
		Assets: []oracle.AssetData{{AssetID: 1, Spot: h * 10, MovingAverage: h * 9}},
	}
}

// newMockRecordService seeds heights 5, 6, 7 and 9. Height 8 is a gap.
func newMockRecordService() *mockRecordService {
	m := &mockRecordService{
		entries: make(map[uint64]*recordstore.Entry),
		status: NodeStatus{
			Version:       "1.2.3-test",
			Network:       "mainnet",
			ForkVersion:   18,
			LatestHeight:  9,
			HasEntries:    true,
			StoredRecords: 4,
			UptimeSeconds: 42,
		},
	}
	for _, h := range []uint64{5, 6, 7, 9} {
		m.entries[h] = testEntry(h)
	}
	return m
}

func (m *mockRecordService) LatestEntry() (*recordstore.Entry, error) {
	var best *recordstore.Entry
	for _, e := range m.entries {
		if best == nil || e.Height > best.Height {
			best = e
		}
	}
	if best == nil {
		return nil, recordstore.ErrEmptyStore
	}
	return best, nil
}

func (m *mockRecordService) EntryAt(height uint64) (*recordstore.Entry, error) {
	e, ok := m.entries[height]
	if !ok {
		return nil, recordstore.ErrNotFound
	}
	return e, nil
}

func (m *mockRecordService) EntryRange(from, to uint64, limit int) ([]*recordstore.Entry, error) {
	if from > to {
		return nil, recordstore.ErrInvalidRange
	}
	var out []*recordstore.Entry
	for h := from; h <= to && len(out) < limit; h++ {
		if e, ok := m.entries[h]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockRecordService) Status() NodeStatus {
	return m.status
}

func newTestGRPCServer(t *testing.T, svc RecordServiceInterface) *Server {
	t.Helper()
	srv, err := NewServer(nil, svc, testLogger())
	require.NoError(t, err)
	return srv
}

func requireStatusCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	st, ok := status.FromError(err)
	require.True(t, ok, "expected a grpc status error, got %v", err)
	assert.Equal(t, want, st.Code())
}

func TestGetRecordLatest(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecord(context.Background(), &GetRecordRequest{})
	require.NoError(t, err)

	assert.Equal(t, uint64(9), resp.Height)
	assert.Equal(t, uint64(9000), resp.Spot)
	assert.Equal(t, uint64(8100), resp.MovingAverage)
	assert.Len(t, resp.Signature, oracle.SignatureSize)
	assert.Equal(t, byte(9), resp.Signature[0])

	// Companions only appear on request
	assert.Nil(t, resp.Supply)
	assert.Nil(t, resp.Assets)
	assert.Nil(t, resp.RecordBlob)
}

func TestGetRecordByHeight(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecord(context.Background(), &GetRecordRequest{
		Specifier: &RecordSpecifier{Height: 6, HasHeight: true},
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(6), resp.Height)
	assert.Equal(t, uint64(2), resp.Version)
	assert.Equal(t, uint64(6000), resp.Spot)
	assert.Equal(t, uint64(1_700_000_006), resp.Timestamp)
}

func TestGetRecordHeightBeatsShortcut(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecord(context.Background(), &GetRecordRequest{
		Specifier: &RecordSpecifier{Shortcut: RecordShortcutLatest, Height: 5, HasHeight: true},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), resp.Height)
}

func TestGetRecordIncludeFlags(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecord(context.Background(), &GetRecordRequest{
		Specifier:     &RecordSpecifier{Height: 7, HasHeight: true},
		IncludeSupply: true,
		IncludeAssets: true,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Supply)
	assert.Equal(t, uint64(7), resp.Supply.CoinBurnt)
	assert.Equal(t, uint64(14), resp.Supply.CoinMinted)

	require.Len(t, resp.Assets, 1)
	assert.Equal(t, uint64(1), resp.Assets[0].AssetID)
	assert.Equal(t, uint64(70), resp.Assets[0].Spot)
	assert.Equal(t, uint64(63), resp.Assets[0].MovingAverage)
}

func TestGetRecordBinary(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecord(context.Background(), &GetRecordRequest{
		Specifier: &RecordSpecifier{Height: 5, HasHeight: true},
		Binary:    true,
	})
	require.NoError(t, err)

	require.Len(t, resp.RecordBlob, oracle.RecordBlobSize)

	decoded, err := oracle.DecodeRecordBlob(resp.RecordBlob)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), decoded.Spot)
}

func TestGetRecordNotFound(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	_, err := srv.GetRecord(context.Background(), &GetRecordRequest{
		Specifier: &RecordSpecifier{Height: 8, HasHeight: true},
	})
	requireStatusCode(t, err, codes.NotFound)
}

func TestGetRecordEmptyStore(t *testing.T) {
	empty := &mockRecordService{entries: make(map[uint64]*recordstore.Entry)}
	srv := newTestGRPCServer(t, empty)

	_, err := srv.GetRecord(context.Background(), &GetRecordRequest{})
	requireStatusCode(t, err, codes.NotFound)

	st, _ := status.FromError(err)
	assert.Contains(t, st.Message(), "no records stored")
}

func TestGetRecordBadShortcut(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	_, err := srv.GetRecord(context.Background(), &GetRecordRequest{
		Specifier: &RecordSpecifier{Shortcut: "newest"},
	})
	requireStatusCode(t, err, codes.InvalidArgument)
}

func TestGetRecordNilService(t *testing.T) {
	srv := newTestGRPCServer(t, nil)

	_, err := srv.GetRecord(context.Background(), &GetRecordRequest{})
	requireStatusCode(t, err, codes.Internal)
}

func TestGetRecordRange(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecordRange(context.Background(), &GetRecordRangeRequest{From: 5, To: 9})
	require.NoError(t, err)

	require.Len(t, resp.Records, 4)
	assert.False(t, resp.HasMore)
	assert.Equal(t, uint64(0), resp.NextFrom)

	heights := make([]uint64, 0, len(resp.Records))
	for _, r := range resp.Records {
		heights = append(heights, r.Height)
	}
	assert.Equal(t, []uint64{5, 6, 7, 9}, heights)

	// Companions ride along unconditionally on ranges
	assert.Equal(t, uint64(5), resp.Records[0].Supply.CoinBurnt)
	require.Len(t, resp.Records[0].Assets, 1)
	assert.Nil(t, resp.Records[0].RecordBlob)
}

func TestGetRecordRangePagination(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	first, err := srv.GetRecordRange(context.Background(), &GetRecordRangeRequest{From: 5, To: 9, Limit: 2})
	require.NoError(t, err)

	require.Len(t, first.Records, 2)
	assert.Equal(t, uint64(5), first.Records[0].Height)
	assert.Equal(t, uint64(6), first.Records[1].Height)
	assert.True(t, first.HasMore)
	assert.Equal(t, uint64(7), first.NextFrom)

	second, err := srv.GetRecordRange(context.Background(), &GetRecordRangeRequest{From: first.NextFrom, To: 9, Limit: 2})
	require.NoError(t, err)

	require.Len(t, second.Records, 2)
	assert.Equal(t, uint64(7), second.Records[0].Height)
	assert.Equal(t, uint64(9), second.Records[1].Height)
	assert.False(t, second.HasMore)
}

func TestGetRecordRangeBinary(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecordRange(context.Background(), &GetRecordRangeRequest{From: 5, To: 6, Binary: true})
	require.NoError(t, err)

	require.Len(t, resp.Records, 2)
	for _, r := range resp.Records {
		assert.Len(t, r.RecordBlob, oracle.RecordBlobSize)
	}
}

func TestGetRecordRangeInvalid(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	_, err := srv.GetRecordRange(context.Background(), &GetRecordRangeRequest{From: 9, To: 5})
	requireStatusCode(t, err, codes.InvalidArgument)
}

func TestGetRecordRangeEmptySpan(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetRecordRange(context.Background(), &GetRecordRangeRequest{From: 100, To: 200})
	require.NoError(t, err)
	assert.Empty(t, resp.Records)
	assert.False(t, resp.HasMore)
}

func TestGetNodeStatus(t *testing.T) {
	srv := newTestGRPCServer(t, newMockRecordService())

	resp, err := srv.GetNodeStatus(context.Background(), &GetNodeStatusRequest{})
	require.NoError(t, err)

	assert.Equal(t, "1.2.3-test", resp.Version)
	assert.Equal(t, "mainnet", resp.Network)
	assert.Equal(t, uint64(18), resp.ForkVersion)
	assert.Equal(t, uint64(9), resp.LatestHeight)
	assert.True(t, resp.HasRecords)
	assert.Equal(t, uint64(4), resp.StoredRecords)
	assert.Equal(t, int64(42), resp.UptimeSeconds)
}

func TestEntryFromSpecifier(t *testing.T) {
	svc := newMockRecordService()

	t.Run("nil defaults to latest", func(t *testing.T) {
		e, err := entryFromSpecifier(nil, svc)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), e.Height)
	})

	t.Run("latest shortcut", func(t *testing.T) {
		e, err := entryFromSpecifier(&RecordSpecifier{Shortcut: RecordShortcutLatest}, svc)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), e.Height)
	})

	t.Run("empty shortcut", func(t *testing.T) {
		e, err := entryFromSpecifier(&RecordSpecifier{}, svc)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), e.Height)
	})

	t.Run("explicit height", func(t *testing.T) {
		e, err := entryFromSpecifier(&RecordSpecifier{Height: 5, HasHeight: true}, svc)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), e.Height)
	})

	t.Run("missing height", func(t *testing.T) {
		_, err := entryFromSpecifier(&RecordSpecifier{Height: 1, HasHeight: true}, svc)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("unknown shortcut", func(t *testing.T) {
		_, err := entryFromSpecifier(&RecordSpecifier{Shortcut: "closed"}, svc)
		assert.ErrorIs(t, err, ErrInvalidRecordSpecifier)
	})
}
