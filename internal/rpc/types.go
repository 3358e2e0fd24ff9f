package rpc

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
)

// RpcError is the wire form of a method failure.
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Message     string `json:"error_message,omitempty"`
}

func (e *RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Error codes. The negative range follows JSON-RPC 2.0; positive codes are
// specific to this API.
const (
	RpcUNKNOWN          = -1
	RpcPARSE_ERROR      = -32700
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603

	RpcMISSING_COMMAND  = 1
	RpcFORBIDDEN        = 2
	RpcNOT_READY        = 3
	RpcRECORD_NOT_FOUND = 4
	RpcRECORD_REJECTED  = 5
	RpcNOT_SUPPORTED    = 6
)

// NewRpcError builds an error with explicit code and strings.
func NewRpcError(code int, errorString, message string) *RpcError {
	return &RpcError{Code: code, ErrorString: errorString, Message: message}
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "Unknown method: "+method)
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", message)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", message)
}

func RpcErrorForbidden(method string) *RpcError {
	return NewRpcError(RpcFORBIDDEN, "forbidden", "Method requires admin access: "+method)
}

func RpcErrorRecordNotFound() *RpcError {
	return NewRpcError(RpcRECORD_NOT_FOUND, "recordNotFound", "No record at the requested height")
}

func RpcErrorNotReady() *RpcError {
	return NewRpcError(RpcNOT_READY, "notReady", "No records stored yet")
}

func RpcErrorRecordRejected(reason string) *RpcError {
	return NewRpcError(RpcRECORD_REJECTED, "recordRejected", reason)
}

func RpcErrorNotSupported(message string) *RpcError {
	return NewRpcError(RpcNOT_SUPPORTED, "notSupported", message)
}

// Role gates method access.
type Role int

const (
	RoleGuest Role = iota
	RoleAdmin
)

// RpcContext carries request-scoped information into handlers.
type RpcContext struct {
	Context  context.Context
	Role     Role
	ClientIP string
}

// MethodHandler is implemented by every RPC method.
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
	RequiredRole() Role
}

// MethodRegistry maps method names to handlers.
type MethodRegistry struct {
	mu      sync.RWMutex
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: make(map[string]MethodHandler)}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, exists := r.methods[name]
	return handler, exists
}

func (r *MethodRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

// Request is the HTTP JSON-RPC request envelope: a method name plus a
// params array holding one object.
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// SupplyResult is the API form of per-block supply tallies.
type SupplyResult struct {
	CoinBurnt   uint64 `json:"coin_burnt"`
	CoinMinted  uint64 `json:"coin_minted"`
	AssetBurnt  uint64 `json:"asset_burnt"`
	AssetMinted uint64 `json:"asset_minted"`
}

// AssetResult is the API form of a per-asset rate pair.
type AssetResult struct {
	AssetID       uint64 `json:"asset_id"`
	Spot          uint64 `json:"spot"`
	MovingAverage uint64 `json:"moving_average"`
}

// EntryResult is the API form of a stored entry.
type EntryResult struct {
	Height uint64         `json:"height"`
	Record oracle.APIForm `json:"pricing_record"`
	Supply *SupplyResult  `json:"supply_data,omitempty"`
	Assets []AssetResult  `json:"asset_data,omitempty"`
}

// SubscriptionType names a websocket stream.
type SubscriptionType string

const (
	// SubRecords streams every newly accepted record entry.
	SubRecords SubscriptionType = "records"

	// SubStatus streams node status changes.
	SubStatus SubscriptionType = "status"
)

// knownStreams lists the streams clients may subscribe to.
var knownStreams = map[SubscriptionType]bool{
	SubRecords: true,
	SubStatus:  true,
}

// SubscriptionRequest is the params shape of subscribe/unsubscribe.
type SubscriptionRequest struct {
	Streams []SubscriptionType `json:"streams,omitempty"`
}

// StreamMessage is pushed to subscribed websocket clients.
type StreamMessage struct {
	Type   string        `json:"type"`
	Stream string        `json:"stream,omitempty"`
	Entry  *EntryResult  `json:"entry,omitempty"`
	Status *ServerStatus `json:"server_status,omitempty"`
}

// ServerStatus is the payload of the status stream.
type ServerStatus struct {
	Network      string `json:"network"`
	LatestHeight uint64 `json:"latest_height"`
	ForkVersion  uint64 `json:"fork_version"`
}

// WebSocketResponse is the reply envelope for websocket commands.
type WebSocketResponse struct {
	Type   string      `json:"type"`
	ID     interface{} `json:"id,omitempty"`
	Status string      `json:"status,omitempty"`
	Result interface{} `json:"result,omitempty"`
}
