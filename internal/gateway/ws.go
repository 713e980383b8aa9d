// ABOUTME: WebSocket endpoints for customer and agent live connections.
// ABOUTME: Each socket is wrapped into a registry channel; inbound frames only keep the socket alive.

package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deskrelay/deskrelay/internal/registry"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsMaxInbound = 4096
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// wsChannel adapts one websocket connection to the registry's delivery
// channel. Writes are serialized behind a mutex; a write failure is
// surfaced to the registry, which closes and reaps the connection.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}

func (c *wsChannel) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// registerWSRoutes registers the live-connection endpoints on the mux.
func (g *Gateway) registerWSRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/customer", g.handleCustomerWS)
	mux.HandleFunc("/ws/agent", g.handleAgentWS)
}

// handleCustomerWS handles GET /ws/customer?customer_id=X&name=Y.
func (g *Gateway) handleCustomerWS(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("customer_id")
	if identity == "" {
		g.sendJSONError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	g.serveWS(w, r, registry.AudienceCustomer, identity, r.URL.Query().Get("name"))
}

// handleAgentWS handles GET /ws/agent?agent_id=X&name=Y.
func (g *Gateway) handleAgentWS(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("agent_id")
	if identity == "" {
		g.sendJSONError(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	g.serveWS(w, r, registry.AudienceAgent, identity, r.URL.Query().Get("name"))
}

// serveWS upgrades the request, registers the connection under its
// audience and identity, and blocks in the read loop until the socket
// dies. Inbound payloads are discarded; all application traffic flows
// server to client.
func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request, audience registry.Audience, identity, name string) {
	sock, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "audience", string(audience), "error", err)
		return
	}

	ch := &wsChannel{conn: sock}
	conn := registry.NewConn(audience, identity, name, ch)
	if err := g.registry.Connect(conn); err != nil {
		g.logger.Error("registering connection", "audience", string(audience), "error", err)
		_ = sock.Close()
		return
	}

	g.metrics.ActiveConnections.WithLabelValues(string(audience)).Inc()
	g.logger.Info("connection opened",
		"audience", string(audience),
		"identity", identity,
		"conn_id", conn.ID,
	)

	defer func() {
		g.registry.Disconnect(conn)
		g.metrics.ActiveConnections.WithLabelValues(string(audience)).Dec()
		g.logger.Info("connection closed",
			"audience", string(audience),
			"identity", identity,
			"conn_id", conn.ID,
		)
	}()

	done := make(chan struct{})
	go g.pingLoop(ch, done)
	defer close(done)

	sock.SetReadLimit(wsMaxInbound)
	_ = sock.SetReadDeadline(time.Now().Add(wsPongWait))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := sock.ReadMessage(); err != nil {
			return
		}
		// Inbound frames are ignored; messages arrive over the REST API.
		_ = sock.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

func (g *Gateway) pingLoop(ch *wsChannel, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ch.ping(); err != nil {
				return
			}
		}
	}
}
