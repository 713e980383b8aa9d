// ABOUTME: Tests for conversation event routing.
// ABOUTME: Verifies audience targeting and the unknown-conversation skip.

package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/deskrelay/deskrelay/internal/notify"
	"github.com/deskrelay/deskrelay/internal/registry"
	"github.com/deskrelay/deskrelay/internal/store"
)

type mockLookup struct {
	conversations map[string]*store.Conversation
}

func (m *mockLookup) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	if conv, ok := m.conversations[id]; ok {
		return conv, nil
	}
	return nil, store.ErrNotFound
}

type sentPayload struct {
	audience registry.Audience
	identity string // empty for broadcasts
	payload  []byte
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentPayload
}

func (m *mockSender) SendToIdentity(audience registry.Audience, identity string, payload []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentPayload{audience, identity, payload})
	return 1
}

func (m *mockSender) Broadcast(audience registry.Audience, payload []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentPayload{audience: audience, payload: payload})
	return 1
}

func payloadType(t *testing.T, data []byte) string {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	typ, _ := m["type"].(string)
	return typ
}

func newTestRouter(lookup *mockLookup) (*Router, *mockSender) {
	sender := &mockSender{}
	r := New(lookup, sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return r, sender
}

func TestNotifyCustomerMessage(t *testing.T) {
	r, sender := newTestRouter(&mockLookup{})

	r.NotifyCustomerMessage(context.Background(), notify.CustomerMessageAnalysis{
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		CustomerID:     "cust-1",
		Text:           "help me",
	})

	if len(sender.sent) != 2 {
		t.Fatalf("got %d sends, want agent broadcast plus customer echo", len(sender.sent))
	}

	broadcast := sender.sent[0]
	if broadcast.audience != registry.AudienceAgent || broadcast.identity != "" {
		t.Errorf("first send = %+v, want agent broadcast", broadcast)
	}
	if got := payloadType(t, broadcast.payload); got != notify.TypeCustomerMessageAnalysis {
		t.Errorf("broadcast type = %q, want %q", got, notify.TypeCustomerMessageAnalysis)
	}

	echo := sender.sent[1]
	if echo.audience != registry.AudienceCustomer || echo.identity != "cust-1" {
		t.Errorf("second send = %+v, want customer echo to cust-1", echo)
	}
	if got := payloadType(t, echo.payload); got != notify.TypeCustomerChatMessage {
		t.Errorf("echo type = %q, want %q", got, notify.TypeCustomerChatMessage)
	}
}

func TestNotifyAgentMessage(t *testing.T) {
	lookup := &mockLookup{conversations: map[string]*store.Conversation{
		"conv-1": {ID: "conv-1", CustomerID: "cust-1"},
	}}
	r, sender := newTestRouter(lookup)

	r.NotifyAgentMessage(context.Background(), notify.AgentChatMessage{
		ConversationID: "conv-1",
		AgentID:        "agent-1",
		AgentName:      "Sam",
		Text:           "on it",
	})

	if len(sender.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.sent))
	}
	sent := sender.sent[0]
	if sent.audience != registry.AudienceCustomer || sent.identity != "cust-1" {
		t.Errorf("send = %+v, want delivery to conversation's customer", sent)
	}
	if got := payloadType(t, sent.payload); got != notify.TypeAgentChatMessage {
		t.Errorf("type = %q, want %q", got, notify.TypeAgentChatMessage)
	}
}

func TestNotifyAgentMessage_UnknownConversation(t *testing.T) {
	r, sender := newTestRouter(&mockLookup{})

	// Unknown conversation: nothing delivered, no panic.
	r.NotifyAgentMessage(context.Background(), notify.AgentChatMessage{
		ConversationID: "nope",
		Text:           "lost",
	})

	if len(sender.sent) != 0 {
		t.Errorf("got %d sends for unknown conversation, want 0", len(sender.sent))
	}
}

func TestAssignmentBroadcasts(t *testing.T) {
	r, sender := newTestRouter(&mockLookup{})
	ctx := context.Background()

	r.NotifyAssigned(ctx, notify.ConversationAssigned{ConversationID: "c1", AgentID: "a1", AgentName: "Sam"})
	r.NotifyUnassigned(ctx, notify.ConversationUnassigned{ConversationID: "c1"})
	r.NotifyTicketResolved(ctx, notify.TicketResolved{ConversationID: "c1", TicketID: "t1", Status: "Resolved"})

	if len(sender.sent) != 3 {
		t.Fatalf("got %d sends, want 3 broadcasts", len(sender.sent))
	}

	wantTypes := []string{
		notify.TypeConversationAssigned,
		notify.TypeConversationUnassigned,
		notify.TypeTicketResolved,
	}
	for i, want := range wantTypes {
		if sender.sent[i].audience != registry.AudienceAgent {
			t.Errorf("send %d audience = %q, want agent", i, sender.sent[i].audience)
		}
		if got := payloadType(t, sender.sent[i].payload); got != want {
			t.Errorf("send %d type = %q, want %q", i, got, want)
		}
	}
}
