// ABOUTME: Maps conversation events to live delivery targets.
// ABOUTME: Customer traffic fans out to agents; agent traffic goes to the owning customer.

package router

import (
	"context"
	"log/slog"

	"github.com/deskrelay/deskrelay/internal/notify"
	"github.com/deskrelay/deskrelay/internal/registry"
	"github.com/deskrelay/deskrelay/internal/store"
)

// ConversationLookup resolves a conversation to its owning customer.
type ConversationLookup interface {
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
}

// Sender is the live-delivery surface the router pushes through.
type Sender interface {
	SendToIdentity(audience registry.Audience, identity string, payload []byte) int
	Broadcast(audience registry.Audience, payload []byte) int
}

// Router resolves where each conversation event should be delivered.
// Delivery is best-effort: failures are logged, never returned, and a
// recipient with no live connections simply receives nothing.
type Router struct {
	conversations ConversationLookup
	sender        Sender
	logger        *slog.Logger
}

// New creates a Router.
func New(conversations ConversationLookup, sender Sender, logger *slog.Logger) *Router {
	return &Router{
		conversations: conversations,
		sender:        sender,
		logger:        logger.With("component", "router"),
	}
}

// NotifyCustomerMessage fans a customer message out: the analysis goes
// to every connected agent, and the raw message is echoed back to the
// sender's own connections.
func (r *Router) NotifyCustomerMessage(ctx context.Context, n notify.CustomerMessageAnalysis) {
	r.broadcastAgents(n)

	echo := notify.CustomerChatMessage{
		ConversationID: n.ConversationID,
		MessageID:      n.MessageID,
		Sender:         store.SenderCustomer,
		Text:           n.Text,
		Timestamp:      n.Timestamp,
	}
	payload, err := notify.Encode(echo)
	if err != nil {
		r.logger.Error("encoding customer echo", "error", err)
		return
	}
	r.sender.SendToIdentity(registry.AudienceCustomer, n.CustomerID, payload)
}

// NotifyAgentMessage delivers an agent reply to the conversation's
// customer. An unknown conversation is logged and skipped.
func (r *Router) NotifyAgentMessage(ctx context.Context, n notify.AgentChatMessage) {
	conv, err := r.conversations.GetConversation(ctx, n.ConversationID)
	if err != nil {
		r.logger.Warn("skipping agent message for unknown conversation",
			"conversation_id", n.ConversationID,
			"error", err,
		)
		return
	}

	payload, err := notify.Encode(n)
	if err != nil {
		r.logger.Error("encoding agent message", "error", err)
		return
	}

	delivered := r.sender.SendToIdentity(registry.AudienceCustomer, conv.CustomerID, payload)
	r.logger.Debug("agent message routed",
		"conversation_id", n.ConversationID,
		"customer_id", conv.CustomerID,
		"delivered", delivered,
	)
}

// NotifyAssigned announces an assignment to the agent audience.
func (r *Router) NotifyAssigned(ctx context.Context, n notify.ConversationAssigned) {
	r.broadcastAgents(n)
}

// NotifyUnassigned announces an unassignment to the agent audience.
func (r *Router) NotifyUnassigned(ctx context.Context, n notify.ConversationUnassigned) {
	r.broadcastAgents(n)
}

// NotifyTicketResolved announces a resolved ticket to the agent audience.
func (r *Router) NotifyTicketResolved(ctx context.Context, n notify.TicketResolved) {
	r.broadcastAgents(n)
}

func (r *Router) broadcastAgents(n notify.Notification) {
	payload, err := notify.Encode(n)
	if err != nil {
		r.logger.Error("encoding notification", "type", n.NotificationType(), "error", err)
		return
	}

	delivered := r.sender.Broadcast(registry.AudienceAgent, payload)
	r.logger.Debug("agent broadcast",
		"type", n.NotificationType(),
		"delivered", delivered,
	)
}
