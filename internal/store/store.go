// ABOUTME: Store interface and data types for deskrelay persistence
// ABOUTME: Defines Customer, Conversation, Message, Ticket, Article structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAssignmentConflict is returned when a conversation is already assigned
// to a different agent. The wrapped error message names the current assignee.
var ErrAssignmentConflict = errors.New("conversation already assigned")

// ErrNotAssigned is returned when unassigning a conversation that has no assignee
var ErrNotAssigned = errors.New("conversation not assigned")

// ErrTicketResolved is returned when resolving a ticket that is already resolved
var ErrTicketResolved = errors.New("ticket already resolved")

// Conversation status values
const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"
)

// Conversation source values
const (
	SourceLiveChat     = "live_chat"
	SourceRecordedCall = "recorded_call"
)

// Message sender values
const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
)

// Ticket status values
const (
	TicketOpen     = "Open"
	TicketResolved = "Resolved"
)

// Customer represents an end user of the support chat
type Customer struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Conversation groups the messages of one customer support exchange.
// AssignedAgentID is empty while the conversation is unassigned.
type Conversation struct {
	ID                string
	CustomerID        string
	Status            string // "open", "closed"
	Source            string // "live_chat", "recorded_call"
	AssignedAgentID   string
	AssignedAgentName string
	StartedAt         time.Time
	UpdatedAt         time.Time
}

// Assigned reports whether an agent currently owns the conversation.
func (c *Conversation) Assigned() bool {
	return c.AssignedAgentID != ""
}

// Message is one persisted unit of a conversation, immutable after save.
// Analysis fields hold the enrichment produced at ingestion time; for
// degraded analyses they carry the fallback markers.
type Message struct {
	ID             string
	ConversationID string
	Sender         string // "customer", "agent"
	SenderName     string
	Text           string
	MediaRef       string // data URL or remote URL of an attached image/audio
	ExtractedText  string // OCR or transcription output

	Intent          string
	IntentScore     float64
	SentimentLabel  string
	SentimentScore  float64
	SuggestionsJSON string
	EntitiesJSON    string

	CreatedAt time.Time
}

// Ticket is an escalation raised by an agent against a conversation
type Ticket struct {
	ID             string
	ConversationID string
	RaisedByID     string
	RaisedByName   string
	Description    string
	Status         string // "Open", "Resolved"
	Priority       string // "Low", "Medium", "High", "Urgent"
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Article is a knowledge-base entry used to ground analysis suggestions
type Article struct {
	ID        string
	Title     string
	Content   string // markdown
	Tags      []string
	UpdatedAt time.Time
}

// CustomerOverview is a best-effort read-side aggregation for the agent
// dashboard. Fields are nil/zero when the underlying data is absent.
type CustomerOverview struct {
	Customer        *Customer
	Conversation    *Conversation
	LastMessage     *Message
	OpenTicketCount int
	LatestTicket    *Ticket
	TotalMessages   int
}

// Store defines the interface for deskrelay persistence
type Store interface {
	// Customers
	GetOrCreateCustomer(ctx context.Context, id, name string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)

	// Conversations
	GetOrCreateOpenConversation(ctx context.Context, customerID, source string) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	CurrentConversation(ctx context.Context, customerID string) (*Conversation, error)
	ListActiveConversations(ctx context.Context) ([]*Conversation, error)
	AssignConversation(ctx context.Context, conversationID, agentID, agentName string) (*Conversation, error)
	UnassignConversation(ctx context.Context, conversationID string) (*Conversation, error)

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	ListCustomerMessages(ctx context.Context, customerID string, limit int) ([]*Message, error)

	// Tickets
	CreateTicket(ctx context.Context, ticket *Ticket) error
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	ListTicketsByConversation(ctx context.Context, conversationID string) ([]*Ticket, error)
	ResolveTicket(ctx context.Context, id string) (*Ticket, error)

	// Knowledge base
	CreateArticle(ctx context.Context, article *Article) error
	GetArticle(ctx context.Context, id string) (*Article, error)
	ListArticles(ctx context.Context) ([]*Article, error)
	DeleteArticle(ctx context.Context, id string) error

	// Aggregations
	GetCustomerOverview(ctx context.Context, customerID string) (*CustomerOverview, error)

	// Close releases any resources held by the store
	Close() error
}
