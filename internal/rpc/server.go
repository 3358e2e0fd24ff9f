package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds method execution when the caller does not pick one.
const DefaultTimeout = 30 * time.Second

// Server handles HTTP JSON-RPC requests. Each request names a method and
// carries a params array with a single object, and every reply is an
// envelope whose result object reports status success or error.
type Server struct {
	service  Service
	registry *MethodRegistry
	hub      *Hub
	log      zerolog.Logger
	timeout  time.Duration
}

// NewServer creates a server bound to the given node service and registers
// the full method set.
func NewServer(service Service, log zerolog.Logger, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &Server{
		service:  service,
		registry: NewMethodRegistry(),
		log:      log,
		timeout:  timeout,
	}
	s.hub = newHub(s, log)
	s.registerAllMethods()

	return s
}

// Hub exposes the websocket hub so the node can broadcast accepted entries.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Methods lists the registered method names.
func (s *Server) Methods() []string {
	return s.registry.List()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	// Preflight requests carry no method to execute.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetRequest(w, r)
		return
	}

	s.handlePostRequest(w, r)
}

// handleGetRequest serves simple queries like ?command=server_info.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("command")
	if method == "" {
		method = "server_info"
	}

	clientIP := getClientIP(r)
	result, rpcErr := s.dispatch(r.Context(), method, nil, clientIP)

	s.writeResponse(w, nil, result, rpcErr)
}

// handlePostRequest serves the standard JSON-RPC payload.
func (s *Server) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeResponse(w, nil, nil, RpcErrorInternal("Failed to read request body"))
		return
	}
	defer r.Body.Close()

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeResponse(w, nil, nil,
			NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}

	if request.Method == "" {
		s.writeResponse(w, nil, nil,
			NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing method field"))
		return
	}

	// Params arrive as an array holding one object.
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	clientIP := getClientIP(r)
	result, rpcErr := s.dispatch(r.Context(), request.Method, params, clientIP)

	// Echo the request back on failures so callers can match replies.
	var requestObj interface{}
	if rpcErr != nil {
		requestObj = echoRequest(request.Method, params)
	}

	s.writeResponse(w, requestObj, result, rpcErr)
}

// dispatch resolves the method, checks its role gate and runs it under the
// configured timeout.
func (s *Server) dispatch(parent context.Context, method string, params json.RawMessage, clientIP string) (interface{}, *RpcError) {
	handler, exists := s.registry.Get(method)
	if !exists {
		return nil, RpcErrorMethodNotFound(method)
	}

	role := roleForIP(clientIP)
	if role < handler.RequiredRole() {
		s.log.Warn().Str("method", method).Str("client_ip", clientIP).Msg("rpc method refused")
		return nil, RpcErrorForbidden(method)
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	result, rpcErr := handler.Handle(&RpcContext{
		Context:  ctx,
		Role:     role,
		ClientIP: clientIP,
	}, params)

	s.log.Debug().
		Str("method", method).
		Str("client_ip", clientIP).
		Dur("elapsed", time.Since(start)).
		Bool("ok", rpcErr == nil).
		Msg("rpc method handled")

	return result, rpcErr
}

// writeResponse writes the reply envelope. Errors live inside the result
// object next to the echoed request; successes get status stamped into the
// result object itself.
func (s *Server) writeResponse(w http.ResponseWriter, request interface{}, result interface{}, rpcErr *RpcError) {
	response := make(map[string]interface{})

	if rpcErr != nil {
		resultObj := map[string]interface{}{
			"status":        "error",
			"error":         rpcErr.ErrorString,
			"error_code":    rpcErr.Code,
			"error_message": rpcErr.Message,
		}
		if request != nil {
			resultObj["request"] = request
		}
		response["result"] = resultObj
	} else {
		resultObj, ok := asObject(result)
		if !ok {
			resultObj = map[string]interface{}{"data": result}
		}
		resultObj["status"] = "success"
		response["result"] = resultObj
	}

	data, err := json.Marshal(response)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal rpc response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// asObject renders result as a JSON object so status can be stamped inside
// it. Non-object results report false and get wrapped by the caller.
func asObject(result interface{}) (map[string]interface{}, bool) {
	if result == nil {
		return map[string]interface{}{}, true
	}
	if m, ok := result.(map[string]interface{}); ok {
		return m, true
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}

// echoRequest rebuilds the caller's request object for error replies.
func echoRequest(method string, params json.RawMessage) interface{} {
	if params != nil {
		var reqMap map[string]interface{}
		if err := json.Unmarshal(params, &reqMap); err == nil {
			reqMap["command"] = method
			return reqMap
		}
	}
	return map[string]interface{}{"command": method}
}

// roleForIP grants admin to loopback callers only. Binding the listener to
// localhost therefore yields a fully trusted endpoint.
func roleForIP(clientIP string) Role {
	ip := net.ParseIP(clientIP)
	if ip != nil && ip.IsLoopback() {
		return RoleAdmin
	}
	return RoleGuest
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}
