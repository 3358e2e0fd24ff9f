package rpc

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/crypto"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

// defaultRangeLimit caps record_range replies when the caller does not pick
// a limit.
const defaultRangeLimit = 100

// registerAllMethods wires the complete method set into the registry.
func (s *Server) registerAllMethods() {
	// Server information methods
	s.registry.Register("server_info", &serverInfoMethod{service: s.service})
	s.registry.Register("ping", &pingMethod{})
	s.registry.Register("random", &randomMethod{})

	// Record methods
	s.registry.Register("record_latest", &recordLatestMethod{service: s.service})
	s.registry.Register("record_get", &recordGetMethod{service: s.service})
	s.registry.Register("record_range", &recordRangeMethod{service: s.service})
	s.registry.Register("record_verify", &recordVerifyMethod{service: s.service})

	// Admin methods
	s.registry.Register("record_submit", &recordSubmitMethod{service: s.service})

	// Subscription methods (websocket only)
	s.registry.Register("subscribe", &subscribeMethod{})
	s.registry.Register("unsubscribe", &unsubscribeMethod{})
}

// entryResult converts a stored entry to its API form.
func entryResult(e *recordstore.Entry) *EntryResult {
	res := &EntryResult{
		Height: e.Height,
		Record: e.Record.ToAPI(),
		Supply: &SupplyResult{
			CoinBurnt:   e.Supply.CoinBurnt,
			CoinMinted:  e.Supply.CoinMinted,
			AssetBurnt:  e.Supply.AssetBurnt,
			AssetMinted: e.Supply.AssetMinted,
		},
	}
	for _, a := range e.Assets {
		res.Assets = append(res.Assets, AssetResult{
			AssetID:       a.AssetID,
			Spot:          a.Spot,
			MovingAverage: a.MovingAverage,
		})
	}
	return res
}

// isValidationError reports whether err is a consensus rejection rather
// than an internal failure.
func isValidationError(err error) bool {
	return errors.Is(err, oracle.ErrPreActivationRecord) ||
		errors.Is(err, oracle.ErrMissingRates) ||
		errors.Is(err, oracle.ErrSignatureInvalid) ||
		errors.Is(err, oracle.ErrTimestampFuture) ||
		errors.Is(err, oracle.ErrTimestampStale)
}

// serverInfoMethod handles the server_info RPC method.
type serverInfoMethod struct {
	service Service
}

func (m *serverInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	info := m.service.Info()

	serverState := "tracking"
	if !info.HasEntries {
		serverState = "empty"
	}

	response := map[string]interface{}{
		"info": map[string]interface{}{
			"build_version":  info.Version,
			"network":        info.Network.String(),
			"fork_version":   info.ForkVersion,
			"latest_height":  info.LatestHeight,
			"stored_records": info.StoredRecords,
			"server_state":   serverState,
			"uptime":         info.UptimeSeconds,
		},
	}

	return response, nil
}

func (m *serverInfoMethod) RequiredRole() Role {
	return RoleGuest
}

// pingMethod handles the ping RPC method.
type pingMethod struct{}

func (m *pingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	// An empty result indicates a successful ping.
	return map[string]interface{}{}, nil
}

func (m *pingMethod) RequiredRole() Role {
	return RoleGuest
}

// randomMethod handles the random RPC method.
type randomMethod struct{}

func (m *randomMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	random, err := crypto.RandomID(32)
	if err != nil {
		return nil, RpcErrorInternal("Failed to generate random data: " + err.Error())
	}

	return map[string]interface{}{
		"random": strings.ToUpper(random),
	}, nil
}

func (m *randomMethod) RequiredRole() Role {
	return RoleGuest
}

// recordLatestMethod handles the record_latest RPC method.
type recordLatestMethod struct {
	service Service
}

func (m *recordLatestMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	entry, err := m.service.LatestEntry()
	if err != nil {
		if errors.Is(err, recordstore.ErrEmptyStore) {
			return nil, RpcErrorNotReady()
		}
		return nil, RpcErrorInternal(err.Error())
	}

	return entryResult(entry), nil
}

func (m *recordLatestMethod) RequiredRole() Role {
	return RoleGuest
}

// recordGetMethod handles the record_get RPC method.
type recordGetMethod struct {
	service Service
}

type recordGetParams struct {
	Height *uint64 `json:"height"`
}

func (m *recordGetMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if params == nil {
		return nil, RpcErrorInvalidParams("height is required")
	}

	var p recordGetParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	if p.Height == nil {
		return nil, RpcErrorInvalidParams("height is required")
	}

	entry, err := m.service.EntryAt(*p.Height)
	if err != nil {
		if recordstore.IsNotFound(err) {
			return nil, RpcErrorRecordNotFound()
		}
		return nil, RpcErrorInternal(err.Error())
	}

	return entryResult(entry), nil
}

func (m *recordGetMethod) RequiredRole() Role {
	return RoleGuest
}

// recordRangeMethod handles the record_range RPC method.
type recordRangeMethod struct {
	service Service
}

type recordRangeParams struct {
	From  uint64 `json:"from"`
	To    uint64 `json:"to"`
	Limit int    `json:"limit,omitempty"`
}

func (m *recordRangeMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if params == nil {
		return nil, RpcErrorInvalidParams("from and to are required")
	}

	var p recordRangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultRangeLimit
	}

	entries, err := m.service.EntryRange(p.From, p.To, limit)
	if err != nil {
		if errors.Is(err, recordstore.ErrInvalidRange) {
			return nil, RpcErrorInvalidParams("Invalid range: " + err.Error())
		}
		return nil, RpcErrorInternal(err.Error())
	}

	results := make([]*EntryResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, entryResult(e))
	}

	return map[string]interface{}{
		"entries": results,
		"count":   len(results),
	}, nil
}

func (m *recordRangeMethod) RequiredRole() Role {
	return RoleGuest
}

// recordVerifyMethod handles the record_verify RPC method. It runs consensus
// validation against caller-supplied block timestamps without touching the
// store.
type recordVerifyMethod struct {
	service Service
}

type recordVerifyParams struct {
	Record             *oracle.APIForm `json:"pricing_record"`
	BlockTimestamp     uint64          `json:"block_timestamp"`
	PrevBlockTimestamp uint64          `json:"prev_block_timestamp"`
}

func (m *recordVerifyMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if params == nil {
		return nil, RpcErrorInvalidParams("pricing_record is required")
	}

	var p recordVerifyParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	if p.Record == nil {
		return nil, RpcErrorInvalidParams("pricing_record is required")
	}

	rec, err := oracle.FromAPI(*p.Record)
	if err != nil {
		return nil, RpcErrorInvalidParams("pricing_record: " + err.Error())
	}

	if err := m.service.VerifyRecord(&rec, p.BlockTimestamp, p.PrevBlockTimestamp); err != nil {
		if isValidationError(err) {
			return map[string]interface{}{
				"verified": false,
				"reason":   err.Error(),
			}, nil
		}
		return nil, RpcErrorInternal(err.Error())
	}

	return map[string]interface{}{
		"verified": true,
	}, nil
}

func (m *recordVerifyMethod) RequiredRole() Role {
	return RoleGuest
}

// recordSubmitMethod handles the record_submit RPC method (admin only).
type recordSubmitMethod struct {
	service Service
}

type recordSubmitParams struct {
	Height uint64          `json:"height"`
	Record *oracle.APIForm `json:"pricing_record"`
	Supply *SupplyResult   `json:"supply_data,omitempty"`
	Assets []AssetResult   `json:"asset_data,omitempty"`
}

func (m *recordSubmitMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if params == nil {
		return nil, RpcErrorInvalidParams("pricing_record is required")
	}

	var p recordSubmitParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	if p.Record == nil {
		return nil, RpcErrorInvalidParams("pricing_record is required")
	}

	rec, err := oracle.FromAPI(*p.Record)
	if err != nil {
		return nil, RpcErrorInvalidParams("pricing_record: " + err.Error())
	}

	entry := &recordstore.Entry{
		Height: p.Height,
		Record: rec,
	}
	if p.Supply != nil {
		entry.Supply = oracle.SupplyData{
			CoinBurnt:   p.Supply.CoinBurnt,
			CoinMinted:  p.Supply.CoinMinted,
			AssetBurnt:  p.Supply.AssetBurnt,
			AssetMinted: p.Supply.AssetMinted,
		}
	}
	for _, a := range p.Assets {
		entry.Assets = append(entry.Assets, oracle.AssetData{
			AssetID:       a.AssetID,
			Spot:          a.Spot,
			MovingAverage: a.MovingAverage,
		})
	}

	if err := m.service.SubmitEntry(ctx.Context, entry); err != nil {
		if isValidationError(err) {
			return nil, RpcErrorRecordRejected(err.Error())
		}
		if errors.Is(err, recordstore.ErrHeightNotAboveTip) {
			return nil, RpcErrorRecordRejected(err.Error())
		}
		return nil, RpcErrorInternal(err.Error())
	}

	return map[string]interface{}{
		"height":   entry.Height,
		"accepted": true,
	}, nil
}

func (m *recordSubmitMethod) RequiredRole() Role {
	return RoleAdmin
}

// subscribeMethod handles the subscribe RPC command over HTTP, where it is
// not available.
type subscribeMethod struct{}

func (m *subscribeMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	// The real implementation lives in the websocket handler.
	return nil, RpcErrorNotSupported("subscribe is only available via WebSocket")
}

func (m *subscribeMethod) RequiredRole() Role {
	return RoleGuest
}

// unsubscribeMethod handles the unsubscribe RPC command over HTTP, where it
// is not available.
type unsubscribeMethod struct{}

func (m *unsubscribeMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return nil, RpcErrorNotSupported("unsubscribe is only available via WebSocket")
}

func (m *unsubscribeMethod) RequiredRole() Role {
	return RoleGuest
}
