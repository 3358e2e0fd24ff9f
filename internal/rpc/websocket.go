package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aurumchain/go-aurum/internal/crypto"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

const (
	// maxMessageSize caps inbound websocket frames.
	maxMessageSize = 512 * 1024

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings go out on pingPeriod, which must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// writeWait bounds a single outbound write.
	writeWait = 10 * time.Second

	// sendBuffer is the per-client outbound queue. A client that falls
	// this far behind gets dropped instead of blocking the broadcaster.
	sendBuffer = 256
)

// Hub tracks websocket clients and fans stream messages out to them. It
// shares the method registry with the HTTP server, so every RPC method is
// also callable over a websocket.
type Hub struct {
	server   *Server
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
}

func newHub(server *Server, log zerolog.Logger) *Hub {
	return &Hub{
		server: server,
		log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*Client),
	}
}

// Client is a single websocket connection with its subscription set.
type Client struct {
	ID string

	hub      *Hub
	conn     *websocket.Conn
	clientIP string

	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	subscriptions map[SubscriptionType]bool
}

// ServeHTTP upgrades the request and starts the connection pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id, err := crypto.RandomID(8)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket connection id")
		conn.Close()
		return
	}

	// The request context dies when this handler returns, so the client
	// carries its own.
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:            id,
		hub:           h,
		conn:          conn,
		clientIP:      getClientIP(r),
		send:          make(chan []byte, sendBuffer),
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[SubscriptionType]bool),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.log.Debug().Str("conn", client.ID).Str("client_ip", client.clientIP).Msg("websocket connected")

	go client.writePump()
	go client.readPump()
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEntry pushes a newly accepted entry to records subscribers.
func (h *Hub) BroadcastEntry(e *recordstore.Entry) {
	h.broadcast(SubRecords, StreamMessage{
		Type:   "stream",
		Stream: string(SubRecords),
		Entry:  entryResult(e),
	})
}

// BroadcastStatus pushes a node status change to status subscribers.
func (h *Hub) BroadcastStatus(status ServerStatus) {
	h.broadcast(SubStatus, StreamMessage{
		Type:   "stream",
		Stream: string(SubStatus),
		Status: &status,
	})
}

func (h *Hub) broadcast(stream SubscriptionType, msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal broadcast message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		c.mu.RLock()
		subscribed := c.subscriptions[stream]
		c.mu.RUnlock()
		if !subscribed {
			continue
		}

		select {
		case c.send <- data:
		default:
			// Slow client. Skip it rather than block the broadcaster.
			h.log.Warn().Str("conn", c.ID).Msg("websocket client lagging, dropping stream message")
		}
	}
}

// Close disconnects every client. Used at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	if present {
		h.log.Debug().Str("conn", c.ID).Msg("websocket disconnected")
	}
}

// handleMessage processes one inbound command frame. Commands carry their
// fields at the top level: command and id are pulled out, the rest becomes
// the method params.
func (h *Hub) handleMessage(c *Client, message []byte) {
	var cmdMap map[string]interface{}
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		c.sendError(RpcErrorInvalidParams("Invalid JSON: "+err.Error()), nil)
		return
	}

	command, ok := cmdMap["command"].(string)
	if !ok || command == "" {
		c.sendError(NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing command field"), nil)
		return
	}

	id := cmdMap["id"]
	delete(cmdMap, "command")
	delete(cmdMap, "id")

	var params json.RawMessage
	if len(cmdMap) > 0 {
		params, _ = json.Marshal(cmdMap)
	}

	// Subscriptions mutate per-connection state, so they bypass the
	// registry.
	switch command {
	case "subscribe":
		h.handleSubscribe(c, id, params)
		return
	case "unsubscribe":
		h.handleUnsubscribe(c, id, params)
		return
	}

	handler, exists := h.server.registry.Get(command)
	if !exists {
		c.sendError(RpcErrorMethodNotFound(command), id)
		return
	}

	role := roleForIP(c.clientIP)
	if role < handler.RequiredRole() {
		c.sendError(RpcErrorForbidden(command), id)
		return
	}

	result, rpcErr := handler.Handle(&RpcContext{
		Context:  c.ctx,
		Role:     role,
		ClientIP: c.clientIP,
	}, params)
	if rpcErr != nil {
		c.sendError(rpcErr, id)
		return
	}

	c.sendResponse(WebSocketResponse{
		Type:   "response",
		ID:     id,
		Status: "success",
		Result: result,
	})
}

func (h *Hub) handleSubscribe(c *Client, id interface{}, params json.RawMessage) {
	streams, rpcErr := parseStreams(params)
	if rpcErr != nil {
		c.sendError(rpcErr, id)
		return
	}

	c.mu.Lock()
	for _, stream := range streams {
		c.subscriptions[stream] = true
	}
	c.mu.Unlock()

	c.sendResponse(WebSocketResponse{
		Type:   "response",
		ID:     id,
		Status: "success",
		Result: map[string]interface{}{"subscribed": true},
	})
}

func (h *Hub) handleUnsubscribe(c *Client, id interface{}, params json.RawMessage) {
	streams, rpcErr := parseStreams(params)
	if rpcErr != nil {
		c.sendError(rpcErr, id)
		return
	}

	c.mu.Lock()
	for _, stream := range streams {
		delete(c.subscriptions, stream)
	}
	c.mu.Unlock()

	c.sendResponse(WebSocketResponse{
		Type:   "response",
		ID:     id,
		Status: "success",
		Result: map[string]interface{}{"unsubscribed": true},
	})
}

// parseStreams validates the streams list of a subscribe or unsubscribe
// command.
func parseStreams(params json.RawMessage) ([]SubscriptionType, *RpcError) {
	if len(params) == 0 {
		return nil, RpcErrorInvalidParams("streams is required")
	}

	var request SubscriptionRequest
	if err := json.Unmarshal(params, &request); err != nil {
		return nil, RpcErrorInvalidParams("Invalid subscription parameters")
	}
	if len(request.Streams) == 0 {
		return nil, RpcErrorInvalidParams("streams is required")
	}

	for _, stream := range request.Streams {
		if !knownStreams[stream] {
			return nil, RpcErrorInvalidParams("Unknown stream: " + string(stream))
		}
	}

	return request.Streams, nil
}

// readPump consumes inbound frames until the connection dies. The read
// deadline rides on pongs, so a silent peer times out after pongWait.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Str("conn", c.ID).Err(err).Msg("websocket read failed")
			}
			return
		}

		c.hub.handleMessage(c, message)
	}
}

// writePump owns all writes to the connection: queued frames and keepalive
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.cancel()
	c.hub.remove(c)
	c.conn.Close()
}

func (c *Client) sendResponse(response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		c.hub.log.Error().Err(err).Msg("marshal websocket response")
		return
	}
	c.deliver(data)
}

// sendError sends an error frame with the error fields at the top level.
func (c *Client) sendError(rpcErr *RpcError, id interface{}) {
	response := map[string]interface{}{
		"type":          "response",
		"status":        "error",
		"error":         rpcErr.ErrorString,
		"error_code":    rpcErr.Code,
		"error_message": rpcErr.Message,
	}
	if id != nil {
		response["id"] = id
	}

	data, err := json.Marshal(response)
	if err != nil {
		c.hub.log.Error().Err(err).Msg("marshal websocket error response")
		return
	}
	c.deliver(data)
}

// deliver queues data for the write pump, dropping the connection when the
// client cannot keep up.
func (c *Client) deliver(data []byte) {
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.hub.log.Warn().Str("conn", c.ID).Msg("websocket send channel full, closing")
		c.close()
	}
}
