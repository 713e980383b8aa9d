// ABOUTME: WebSocket tests covering live delivery to customer and agent connections.
// ABOUTME: Dials real sockets against an httptest server and asserts on pushed payloads.

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskrelay/deskrelay/internal/registry"
)

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

// dialWS opens a socket and waits until the gateway has registered the
// connection, so a message posted right after is guaranteed delivery.
func dialWS(t *testing.T, g *Gateway, srv *httptest.Server, path string, audience registry.Audience, identity string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for !g.registry.IsConnected(audience, identity) {
		if time.Now().After(deadline) {
			t.Fatalf("connection for %s/%s never registered", audience, identity)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func TestWSRequiresIdentity(t *testing.T) {
	_, srv := newTestGateway(t)

	for _, path := range []string{"/ws/customer", "/ws/agent"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestCustomerMessageFanOut(t *testing.T) {
	g, srv := newTestGateway(t)

	agent := dialWS(t, g, srv, "/ws/agent?agent_id=agent-1&name=Sam", registry.AudienceAgent, "agent-1")
	customer := dialWS(t, g, srv, "/ws/customer?customer_id=cust-1&name=Ada", registry.AudienceCustomer, "cust-1")

	out := ingestText(t, srv, "cust-1", "Ada", "where is my order")

	// Agents get the full analysis payload
	agentPayload := readNotification(t, agent)
	assert.Equal(t, "customer_message_analysis", agentPayload["type"])
	assert.Equal(t, out.ConversationID, agentPayload["conversation_id"])
	assert.Equal(t, "cust-1", agentPayload["customer_id"])
	assert.Equal(t, "where is my order", agentPayload["text"])
	require.NotNil(t, agentPayload["analysis"])

	// The sending customer's connections get a plain echo
	customerPayload := readNotification(t, customer)
	assert.Equal(t, "customer_chat_message", customerPayload["type"])
	assert.Equal(t, "where is my order", customerPayload["text"])
	assert.Nil(t, customerPayload["analysis"])
}

func TestAgentReplyDelivery(t *testing.T) {
	g, srv := newTestGateway(t)

	out := ingestText(t, srv, "cust-1", "Ada", "hello")

	customer := dialWS(t, g, srv, "/ws/customer?customer_id=cust-1&name=Ada", registry.AudienceCustomer, "cust-1")
	other := dialWS(t, g, srv, "/ws/customer?customer_id=cust-2&name=Bo", registry.AudienceCustomer, "cust-2")

	resp := postJSON(t, srv.URL+"/api/agent/reply", AgentReplyRequest{
		ConversationID: out.ConversationID,
		AgentID:        "agent-1",
		AgentName:      "Sam",
		Text:           "checking now",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := readNotification(t, customer)
	assert.Equal(t, "agent_chat_message", payload["type"])
	assert.Equal(t, "Sam", payload["agent_name"])
	assert.Equal(t, "checking now", payload["text"])

	// The reply goes only to the owning customer
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "unrelated customer must not receive the reply")
}

func TestAssignmentBroadcastToAgents(t *testing.T) {
	g, srv := newTestGateway(t)

	out := ingestText(t, srv, "cust-1", "Ada", "hello")

	agent := dialWS(t, g, srv, "/ws/agent?agent_id=agent-9&name=Observer", registry.AudienceAgent, "agent-9")

	resp := postJSON(t, srv.URL+"/api/conversations/assign", AssignRequest{
		ConversationID: out.ConversationID, AgentID: "agent-1", AgentName: "Sam",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := readNotification(t, agent)
	assert.Equal(t, "conversation_assigned", payload["type"])
	assert.Equal(t, "Sam", payload["agent_name"])

	resp = postJSON(t, srv.URL+"/api/conversations/unassign", UnassignRequest{ConversationID: out.ConversationID})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload = readNotification(t, agent)
	assert.Equal(t, "conversation_unassigned", payload["type"])
}

func TestMultipleConnectionsPerIdentity(t *testing.T) {
	g, srv := newTestGateway(t)

	first := dialWS(t, g, srv, "/ws/customer?customer_id=cust-1&name=Ada", registry.AudienceCustomer, "cust-1")
	second, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/customer?customer_id=cust-1&name=Ada"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for g.registry.Len(registry.AudienceCustomer) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("second connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ingestText(t, srv, "cust-1", "Ada", "is anyone there")

	for i, conn := range []*websocket.Conn{first, second} {
		payload := readNotification(t, conn)
		assert.Equal(t, "customer_chat_message", payload["type"], "connection %d", i)
	}
}

func TestDisconnectLeavesRegistryClean(t *testing.T) {
	g, srv := newTestGateway(t)

	conn := dialWS(t, g, srv, "/ws/agent?agent_id=agent-1&name=Sam", registry.AudienceAgent, "agent-1")
	require.True(t, g.registry.IsConnected(registry.AudienceAgent, "agent-1"))

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for g.registry.IsConnected(registry.AudienceAgent, "agent-1") {
		if time.Now().After(deadline) {
			t.Fatal("registry still holds the closed connection")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
