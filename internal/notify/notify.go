// ABOUTME: Typed notification payloads pushed over live connections.
// ABOUTME: One struct per notification type; JSON encoding happens only at the channel boundary.

package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/deskrelay/deskrelay/internal/analysis"
)

// Notification type discriminators. Every payload pushed to a live
// connection carries exactly one of these in its "type" field.
const (
	TypeCustomerMessageAnalysis = "customer_message_analysis"
	TypeCustomerChatMessage     = "customer_chat_message"
	TypeAgentChatMessage        = "agent_chat_message"
	TypeConversationAssigned    = "conversation_assigned"
	TypeConversationUnassigned  = "conversation_unassigned"
	TypeTicketResolved          = "ticket_resolved"
)

// Notification is the closed set of payload variants. Each variant type
// in this package implements it by returning its discriminator.
type Notification interface {
	NotificationType() string
}

// Encode marshals a notification into the wire form sent over a channel,
// with the type discriminator injected at the top level.
func Encode(n Notification) ([]byte, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s notification: %w", n.NotificationType(), err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("flattening %s notification: %w", n.NotificationType(), err)
	}
	m["type"] = n.NotificationType()

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s notification: %w", n.NotificationType(), err)
	}
	return out, nil
}

// CustomerMessageAnalysis is broadcast to agents when a customer message
// has been ingested and analyzed. Degraded analyses carry the fallback
// markers in the Analysis block.
type CustomerMessageAnalysis struct {
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	CustomerID     string           `json:"customer_id"`
	CustomerName   string           `json:"customer_name"`
	Text           string           `json:"text"`
	ExtractedText  string           `json:"extracted_text,omitempty"`
	MediaRef       string           `json:"media_ref,omitempty"`
	Analysis       *analysis.Result `json:"analysis"`
	Timestamp      time.Time        `json:"timestamp"`
}

func (CustomerMessageAnalysis) NotificationType() string { return TypeCustomerMessageAnalysis }

// CustomerChatMessage echoes a customer's own message back to their
// other live connections.
type CustomerChatMessage struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

func (CustomerChatMessage) NotificationType() string { return TypeCustomerChatMessage }

// AgentChatMessage delivers an agent reply to the conversation's customer.
type AgentChatMessage struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	AgentID        string    `json:"agent_id"`
	AgentName      string    `json:"agent_name"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

func (AgentChatMessage) NotificationType() string { return TypeAgentChatMessage }

// ConversationAssigned announces to agents that a conversation now has
// an owner.
type ConversationAssigned struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	AgentName      string `json:"agent_name"`
}

func (ConversationAssigned) NotificationType() string { return TypeConversationAssigned }

// ConversationUnassigned announces to agents that a conversation has
// returned to the unassigned pool.
type ConversationUnassigned struct {
	ConversationID string `json:"conversation_id"`
}

func (ConversationUnassigned) NotificationType() string { return TypeConversationUnassigned }

// TicketResolved announces to agents that a ticket has been resolved.
type TicketResolved struct {
	ConversationID string `json:"conversation_id"`
	TicketID       string `json:"ticket_id"`
	Status         string `json:"status"`
}

func (TicketResolved) NotificationType() string { return TypeTicketResolved }
