package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

func guestContext() *RpcContext {
	return &RpcContext{
		Context:  context.Background(),
		Role:     RoleGuest,
		ClientIP: "203.0.113.9",
	}
}

func adminContext() *RpcContext {
	return &RpcContext{
		Context:  context.Background(),
		Role:     RoleAdmin,
		ClientIP: "127.0.0.1",
	}
}

func TestServerInfoMethod(t *testing.T) {
	mock := newMockService()
	method := &serverInfoMethod{service: mock}

	result, rpcErr := method.Handle(guestContext(), nil)
	require.Nil(t, rpcErr)

	info := result.(map[string]interface{})["info"].(map[string]interface{})
	assert.Equal(t, "1.2.3-test", info["build_version"])
	assert.Equal(t, "mainnet", info["network"])
	assert.Equal(t, uint64(18), info["fork_version"])
	assert.Equal(t, uint64(14), info["latest_height"])
	assert.Equal(t, "tracking", info["server_state"])

	t.Run("empty store reports empty state", func(t *testing.T) {
		empty := &mockService{entries: make(map[uint64]*recordstore.Entry)}
		method := &serverInfoMethod{service: empty}

		result, rpcErr := method.Handle(guestContext(), nil)
		require.Nil(t, rpcErr)

		info := result.(map[string]interface{})["info"].(map[string]interface{})
		assert.Equal(t, "empty", info["server_state"])
	})
}

func TestPingMethod(t *testing.T) {
	method := &pingMethod{}

	result, rpcErr := method.Handle(guestContext(), nil)
	require.Nil(t, rpcErr)
	assert.Empty(t, result.(map[string]interface{}))
	assert.Equal(t, RoleGuest, method.RequiredRole())
}

func TestRandomMethod(t *testing.T) {
	method := &randomMethod{}

	result, rpcErr := method.Handle(guestContext(), nil)
	require.Nil(t, rpcErr)

	random := result.(map[string]interface{})["random"].(string)
	assert.Len(t, random, 64)
	for _, c := range random {
		assert.Contains(t, "0123456789ABCDEF", string(c))
	}

	// Two calls must not repeat.
	again, rpcErr := method.Handle(guestContext(), nil)
	require.Nil(t, rpcErr)
	assert.NotEqual(t, random, again.(map[string]interface{})["random"])
}

func TestRecordLatestMethod(t *testing.T) {
	mock := newMockService()
	method := &recordLatestMethod{service: mock}

	result, rpcErr := method.Handle(guestContext(), nil)
	require.Nil(t, rpcErr)

	entry := result.(*EntryResult)
	assert.Equal(t, uint64(14), entry.Height)
	assert.Equal(t, uint64(14000), entry.Record.Spot)

	t.Run("empty store", func(t *testing.T) {
		empty := &mockService{entries: make(map[uint64]*recordstore.Entry)}
		method := &recordLatestMethod{service: empty}

		_, rpcErr := method.Handle(guestContext(), nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcNOT_READY, rpcErr.Code)
	})
}

func TestRecordGetMethod(t *testing.T) {
	mock := newMockService()
	method := &recordGetMethod{service: mock}

	t.Run("found", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"height": 11}`))
		require.Nil(t, rpcErr)

		entry := result.(*EntryResult)
		assert.Equal(t, uint64(11), entry.Height)
		assert.Equal(t, uint64(11000), entry.Record.Spot)
		require.Len(t, entry.Assets, 1)
		assert.Equal(t, uint64(110), entry.Assets[0].Spot)
		require.NotNil(t, entry.Supply)
		assert.Equal(t, uint64(22), entry.Supply.CoinMinted)
	})

	t.Run("missing height in store", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"height": 13}`))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcRECORD_NOT_FOUND, rpcErr.Code)
		assert.Equal(t, "recordNotFound", rpcErr.ErrorString)
	})

	t.Run("nil params", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})

	t.Run("height field absent", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), json.RawMessage(`{}`))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})

	t.Run("height zero is a real height", func(t *testing.T) {
		mock.addEntry(testEntry(0))
		defer delete(mock.entries, 0)

		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"height": 0}`))
		require.Nil(t, rpcErr)
		assert.Equal(t, uint64(0), result.(*EntryResult).Height)
	})
}

func TestRecordRangeMethod(t *testing.T) {
	mock := newMockService()
	method := &recordRangeMethod{service: mock}

	t.Run("skips missing heights", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"from": 10, "to": 14}`))
		require.Nil(t, rpcErr)

		resp := result.(map[string]interface{})
		assert.Equal(t, 4, resp["count"])

		entries := resp["entries"].([]*EntryResult)
		heights := make([]uint64, 0, len(entries))
		for _, e := range entries {
			heights = append(heights, e.Height)
		}
		assert.Equal(t, []uint64{10, 11, 12, 14}, heights)
	})

	t.Run("limit caps the reply", func(t *testing.T) {
		result, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"from": 10, "to": 14, "limit": 2}`))
		require.Nil(t, rpcErr)

		resp := result.(map[string]interface{})
		assert.Equal(t, 2, resp["count"])
	})

	t.Run("inverted range", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"from": 14, "to": 10}`))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})

	t.Run("nil params", func(t *testing.T) {
		_, rpcErr := method.Handle(guestContext(), nil)
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})
}

func TestRecordVerifyMethod(t *testing.T) {
	validParams := `{"pricing_record": {"pr_version": 2, "spot": 100, "moving_average": 90, "timestamp": 1700000000}, "block_timestamp": 1700000010, "prev_block_timestamp": 1699999990}`

	t.Run("verified", func(t *testing.T) {
		method := &recordVerifyMethod{service: newMockService()}

		result, rpcErr := method.Handle(guestContext(), json.RawMessage(validParams))
		require.Nil(t, rpcErr)

		resp := result.(map[string]interface{})
		assert.Equal(t, true, resp["verified"])
	})

	t.Run("rejection reports the reason", func(t *testing.T) {
		mock := newMockService()
		mock.verifyErr = oracle.ErrSignatureInvalid
		method := &recordVerifyMethod{service: mock}

		result, rpcErr := method.Handle(guestContext(), json.RawMessage(validParams))
		require.Nil(t, rpcErr)

		resp := result.(map[string]interface{})
		assert.Equal(t, false, resp["verified"])
		assert.Contains(t, resp["reason"], "signature")
	})

	t.Run("internal failure is an error", func(t *testing.T) {
		mock := newMockService()
		mock.verifyErr = errors.New("key source unavailable")
		method := &recordVerifyMethod{service: mock}

		_, rpcErr := method.Handle(guestContext(), json.RawMessage(validParams))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINTERNAL, rpcErr.Code)
	})

	t.Run("malformed signature hex", func(t *testing.T) {
		method := &recordVerifyMethod{service: newMockService()}

		params := `{"pricing_record": {"pr_version": 2, "spot": 1, "moving_average": 1, "timestamp": 1, "signature": "beef"}}`
		_, rpcErr := method.Handle(guestContext(), json.RawMessage(params))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})

	t.Run("record required", func(t *testing.T) {
		method := &recordVerifyMethod{service: newMockService()}

		_, rpcErr := method.Handle(guestContext(), json.RawMessage(`{"block_timestamp": 1}`))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})
}

func TestRecordSubmitMethod(t *testing.T) {
	submitParams := `{"height": 20, "pricing_record": {"pr_version": 2, "spot": 5, "moving_average": 4, "timestamp": 1700000100}, "supply_data": {"coin_burnt": 7, "coin_minted": 8}, "asset_data": [{"asset_id": 3, "spot": 50, "moving_average": 45}]}`

	t.Run("accepted", func(t *testing.T) {
		mock := newMockService()
		method := &recordSubmitMethod{service: mock}

		result, rpcErr := method.Handle(adminContext(), json.RawMessage(submitParams))
		require.Nil(t, rpcErr)

		resp := result.(map[string]interface{})
		assert.Equal(t, true, resp["accepted"])
		assert.Equal(t, uint64(20), resp["height"])

		require.Len(t, mock.submitted, 1)
		got := mock.submitted[0]
		assert.Equal(t, uint64(20), got.Height)
		assert.Equal(t, uint64(5), got.Record.Spot)
		assert.Equal(t, uint64(7), got.Supply.CoinBurnt)
		require.Len(t, got.Assets, 1)
		assert.Equal(t, uint64(3), got.Assets[0].AssetID)
	})

	t.Run("validation rejection", func(t *testing.T) {
		mock := newMockService()
		mock.submitErr = oracle.ErrTimestampStale
		method := &recordSubmitMethod{service: mock}

		_, rpcErr := method.Handle(adminContext(), json.RawMessage(submitParams))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcRECORD_REJECTED, rpcErr.Code)
		assert.Equal(t, "recordRejected", rpcErr.ErrorString)
	})

	t.Run("stale height rejection", func(t *testing.T) {
		mock := newMockService()
		mock.submitErr = recordstore.ErrHeightNotAboveTip
		method := &recordSubmitMethod{service: mock}

		_, rpcErr := method.Handle(adminContext(), json.RawMessage(submitParams))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcRECORD_REJECTED, rpcErr.Code)
	})

	t.Run("storage failure is internal", func(t *testing.T) {
		mock := newMockService()
		mock.submitErr = recordstore.ErrBackendFailure
		method := &recordSubmitMethod{service: mock}

		_, rpcErr := method.Handle(adminContext(), json.RawMessage(submitParams))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINTERNAL, rpcErr.Code)
	})

	t.Run("record required", func(t *testing.T) {
		method := &recordSubmitMethod{service: newMockService()}

		_, rpcErr := method.Handle(adminContext(), json.RawMessage(`{"height": 20}`))
		require.NotNil(t, rpcErr)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})

	t.Run("admin only", func(t *testing.T) {
		method := &recordSubmitMethod{service: newMockService()}
		assert.Equal(t, RoleAdmin, method.RequiredRole())
	})
}

func TestEntryResultConversion(t *testing.T) {
	e := testEntry(21)
	e.Assets = append(e.Assets, oracle.AssetData{AssetID: 2, Spot: 420, MovingAverage: 378})

	res := entryResult(e)

	assert.Equal(t, uint64(21), res.Height)
	assert.Equal(t, uint64(21000), res.Record.Spot)
	assert.Equal(t, uint64(18900), res.Record.MovingAverage)
	require.NotNil(t, res.Supply)
	assert.Equal(t, uint64(21), res.Supply.CoinBurnt)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, uint64(2), res.Assets[1].AssetID)

	// The signature travels as hex of the full 64 bytes.
	assert.Len(t, res.Record.Signature, oracle.SignatureHexLen)
}

func TestIsValidationError(t *testing.T) {
	for _, err := range []error{
		oracle.ErrPreActivationRecord,
		oracle.ErrMissingRates,
		oracle.ErrSignatureInvalid,
		oracle.ErrTimestampFuture,
		oracle.ErrTimestampStale,
	} {
		assert.True(t, isValidationError(err), err.Error())
	}

	assert.False(t, isValidationError(errors.New("disk on fire")))
	assert.False(t, isValidationError(recordstore.ErrBackendFailure))
}
