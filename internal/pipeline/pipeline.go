// ABOUTME: Message ingestion pipeline: resolve, extract, analyze, persist, notify.
// ABOUTME: Each unit runs the stages in order; analysis degrades to a fallback, notification never fails the unit.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deskrelay/deskrelay/internal/analysis"
	"github.com/deskrelay/deskrelay/internal/media"
	"github.com/deskrelay/deskrelay/internal/notify"
	"github.com/deskrelay/deskrelay/internal/store"
)

// ErrEmptyMessage indicates an ingestion request with no content.
var ErrEmptyMessage = errors.New("empty message")

// NoRecognizableText is recorded when an image yields no OCR output.
const NoRecognizableText = "No recognizable text found in image."

const historyLimit = 10

// Ingestion unit kinds, used for metrics labels.
const (
	kindText       = "text"
	kindImage      = "image"
	kindAudio      = "audio"
	kindAgentReply = "agent_reply"
)

// Notifier delivers conversation events to live connections.
// Implemented by router.Router; delivery is best-effort.
type Notifier interface {
	NotifyCustomerMessage(ctx context.Context, n notify.CustomerMessageAnalysis)
	NotifyAgentMessage(ctx context.Context, n notify.AgentChatMessage)
	NotifyAssigned(ctx context.Context, n notify.ConversationAssigned)
	NotifyUnassigned(ctx context.Context, n notify.ConversationUnassigned)
	NotifyTicketResolved(ctx context.Context, n notify.TicketResolved)
}

// Recorder counts pipeline outcomes. A nil Recorder disables counting.
type Recorder interface {
	RecordIngest(kind, outcome string)
	RecordAnalysis(outcome string)
}

// Ingested is the outcome of one customer message unit.
type Ingested struct {
	Message      *store.Message
	Conversation *store.Conversation
	Analysis     *analysis.Result
}

// Service runs the ingestion pipeline. All dependencies are injected;
// the zero value is not usable.
type Service struct {
	store     store.Store
	analyzer  analysis.Analyzer
	extractor media.Extractor
	notifier  Notifier
	recorder  Recorder
	logger    *slog.Logger
}

// New creates a pipeline Service. recorder may be nil.
func New(st store.Store, analyzer analysis.Analyzer, extractor media.Extractor, notifier Notifier, recorder Recorder, logger *slog.Logger) *Service {
	return &Service{
		store:     st,
		analyzer:  analyzer,
		extractor: extractor,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger.With("component", "pipeline"),
	}
}

// IngestText runs a plain customer chat message through the pipeline.
func (s *Service) IngestText(ctx context.Context, customerID, customerName, text string) (*Ingested, error) {
	if strings.TrimSpace(text) == "" {
		s.record(kindText, "rejected")
		return nil, ErrEmptyMessage
	}
	return s.ingestCustomer(ctx, kindText, customerID, customerName, text, "", "", store.SourceLiveChat)
}

// IngestImage runs an image message through the pipeline. The image is
// OCR'd first; an extraction failure is terminal for the unit. An image
// with no recognizable text falls back to a placeholder transcript so
// analysis still has something to work with.
func (s *Service) IngestImage(ctx context.Context, customerID, customerName, caption string, image []byte, contentType string) (*Ingested, error) {
	if len(image) == 0 {
		s.record(kindImage, "rejected")
		return nil, ErrEmptyMessage
	}

	extracted, err := s.extractor.ExtractTextFromImage(ctx, image, contentType)
	if err != nil {
		s.record(kindImage, "error")
		return nil, fmt.Errorf("extracting image text: %w", err)
	}
	if extracted == "" {
		extracted = NoRecognizableText
	}

	mediaRef := fmt.Sprintf("inline:%s;%d bytes", contentType, len(image))
	return s.ingestCustomer(ctx, kindImage, customerID, customerName, caption, extracted, mediaRef, store.SourceLiveChat)
}

// IngestAudio runs recorded call audio through the pipeline. The audio
// is transcribed first; a transcription failure is terminal.
func (s *Service) IngestAudio(ctx context.Context, customerID, customerName string, audio []byte) (*Ingested, error) {
	if len(audio) == 0 {
		s.record(kindAudio, "rejected")
		return nil, ErrEmptyMessage
	}

	transcript, err := s.extractor.TranscribeAudio(ctx, audio)
	if err != nil {
		s.record(kindAudio, "error")
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}

	mediaRef := fmt.Sprintf("inline:audio/wav;%d bytes", len(audio))
	return s.ingestCustomer(ctx, kindAudio, customerID, customerName, transcript, transcript, mediaRef, store.SourceRecordedCall)
}

// ingestCustomer is the shared customer-unit workflow: resolve identity
// and conversation, analyze, persist, notify.
func (s *Service) ingestCustomer(ctx context.Context, kind, customerID, customerName, text, extracted, mediaRef, source string) (*Ingested, error) {
	customer, err := s.store.GetOrCreateCustomer(ctx, customerID, customerName)
	if err != nil {
		s.record(kind, "error")
		return nil, fmt.Errorf("resolving customer: %w", err)
	}

	conv, err := s.store.GetOrCreateOpenConversation(ctx, customer.ID, source)
	if err != nil {
		s.record(kind, "error")
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	result := s.analyze(ctx, conv.ID, text, extracted)

	msg, err := s.persistCustomerMessage(ctx, conv.ID, customer.Name, text, extracted, mediaRef, result)
	if err != nil {
		s.record(kind, "error")
		return nil, err
	}

	// Notification failures are swallowed; the message is already durable.
	s.notifier.NotifyCustomerMessage(ctx, notify.CustomerMessageAnalysis{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		CustomerID:     customer.ID,
		CustomerName:   customer.Name,
		Text:           text,
		ExtractedText:  extracted,
		MediaRef:       mediaRef,
		Analysis:       result,
		Timestamp:      msg.CreatedAt,
	})

	s.record(kind, "ok")
	s.logger.Info("customer message ingested",
		"kind", kind,
		"conversation_id", conv.ID,
		"message_id", msg.ID,
		"intent", result.PredictedIntent,
		"degraded", result.Degraded(),
	)

	return &Ingested{Message: msg, Conversation: conv, Analysis: result}, nil
}

// analyze runs the analyzer and substitutes the fallback result on any
// failure. The unit itself never fails here.
func (s *Service) analyze(ctx context.Context, conversationID, text, extracted string) *analysis.Result {
	history, err := s.history(ctx, conversationID)
	if err != nil {
		s.logger.Warn("history lookup failed, analyzing without context",
			"conversation_id", conversationID,
			"error", err,
		)
	}

	result, err := s.analyzer.Analyze(ctx, &analysis.Request{
		Text:          text,
		ExtractedText: extracted,
		History:       history,
	})
	if err != nil {
		result = analysis.FallbackFor(err)
		s.logger.Warn("analysis degraded",
			"conversation_id", conversationID,
			"marker", result.PredictedIntent,
			"error", err,
		)
	}

	if s.recorder != nil {
		outcome := "ok"
		if result.Degraded() {
			outcome = result.PredictedIntent
		}
		s.recorder.RecordAnalysis(outcome)
	}
	return result
}

func (s *Service) history(ctx context.Context, conversationID string) ([]string, error) {
	msgs, err := s.store.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, err
	}
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text
		if text == "" {
			text = m.ExtractedText
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Sender, text))
	}
	return lines, nil
}

func (s *Service) persistCustomerMessage(ctx context.Context, conversationID, senderName, text, extracted, mediaRef string, result *analysis.Result) (*store.Message, error) {
	suggestions, err := json.Marshal(result.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("marshaling suggestions: %w", err)
	}
	entities, err := json.Marshal(result.DetectedEntities)
	if err != nil {
		return nil, fmt.Errorf("marshaling entities: %w", err)
	}

	msg := &store.Message{
		ConversationID:  conversationID,
		Sender:          store.SenderCustomer,
		SenderName:      senderName,
		Text:            text,
		MediaRef:        mediaRef,
		ExtractedText:   extracted,
		Intent:          result.PredictedIntent,
		IntentScore:     result.IntentConfidence,
		SentimentLabel:  result.Sentiment.Label,
		SentimentScore:  result.Sentiment.Score,
		SuggestionsJSON: string(suggestions),
		EntitiesJSON:    string(entities),
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}
	return msg, nil
}

// AgentReply persists an agent message and delivers it to the owning
// customer. A reply into a conversation assigned to a different agent
// is rejected with ErrAssignmentConflict before anything is persisted.
func (s *Service) AgentReply(ctx context.Context, conversationID, agentID, agentName, text string) (*store.Message, error) {
	if strings.TrimSpace(text) == "" {
		s.record(kindAgentReply, "rejected")
		return nil, ErrEmptyMessage
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		s.record(kindAgentReply, "error")
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	if conv.Assigned() && conv.AssignedAgentID != agentID {
		s.record(kindAgentReply, "rejected")
		return nil, fmt.Errorf("%w to %s", store.ErrAssignmentConflict, conv.AssignedAgentName)
	}

	msg := &store.Message{
		ConversationID: conversationID,
		Sender:         store.SenderAgent,
		SenderName:     agentName,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		s.record(kindAgentReply, "error")
		return nil, fmt.Errorf("persisting agent message: %w", err)
	}

	s.notifier.NotifyAgentMessage(ctx, notify.AgentChatMessage{
		ConversationID: conversationID,
		MessageID:      msg.ID,
		AgentID:        agentID,
		AgentName:      agentName,
		Text:           text,
		Timestamp:      msg.CreatedAt,
	})

	s.record(kindAgentReply, "ok")
	s.logger.Info("agent reply ingested",
		"conversation_id", conversationID,
		"message_id", msg.ID,
		"agent_id", agentID,
	)
	return msg, nil
}

// Assign puts a conversation under an agent's ownership and announces
// it. Store-level conflict rules apply: same-agent assigns are
// idempotent, different-agent assigns return ErrAssignmentConflict.
func (s *Service) Assign(ctx context.Context, conversationID, agentID, agentName string) (*store.Conversation, error) {
	conv, err := s.store.AssignConversation(ctx, conversationID, agentID, agentName)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAssigned(ctx, notify.ConversationAssigned{
		ConversationID: conversationID,
		AgentID:        agentID,
		AgentName:      agentName,
	})

	s.logger.Info("conversation assigned", "conversation_id", conversationID, "agent_id", agentID)
	return conv, nil
}

// Unassign releases a conversation and announces it. Unassigning an
// unassigned conversation returns store.ErrNotAssigned.
func (s *Service) Unassign(ctx context.Context, conversationID string) (*store.Conversation, error) {
	conv, err := s.store.UnassignConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyUnassigned(ctx, notify.ConversationUnassigned{
		ConversationID: conversationID,
	})

	s.logger.Info("conversation unassigned", "conversation_id", conversationID)
	return conv, nil
}

// OpenTicket records an escalation against a conversation.
func (s *Service) OpenTicket(ctx context.Context, ticket *store.Ticket) error {
	if _, err := s.store.GetConversation(ctx, ticket.ConversationID); err != nil {
		return fmt.Errorf("resolving conversation: %w", err)
	}
	return s.store.CreateTicket(ctx, ticket)
}

// ResolveTicket closes a ticket and announces the resolution to agents.
func (s *Service) ResolveTicket(ctx context.Context, ticketID string) (*store.Ticket, error) {
	ticket, err := s.store.ResolveTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyTicketResolved(ctx, notify.TicketResolved{
		ConversationID: ticket.ConversationID,
		TicketID:       ticket.ID,
		Status:         ticket.Status,
	})

	s.logger.Info("ticket resolved", "ticket_id", ticketID, "conversation_id", ticket.ConversationID)
	return ticket, nil
}

func (s *Service) record(kind, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordIngest(kind, outcome)
	}
}
