// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides customer/conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(id),
			status TEXT NOT NULL DEFAULT 'open',
			source TEXT NOT NULL DEFAULT 'live_chat',
			assigned_agent_id TEXT NOT NULL DEFAULT '',
			assigned_agent_name TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			CHECK (status IN ('open', 'closed')),
			CHECK (source IN ('live_chat', 'recorded_call'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_customer
			ON conversations(customer_id, started_at);
		CREATE INDEX IF NOT EXISTS idx_conversations_status
			ON conversations(status);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			sender TEXT NOT NULL,
			sender_name TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			media_ref TEXT NOT NULL DEFAULT '',
			extracted_text TEXT NOT NULL DEFAULT '',
			intent TEXT NOT NULL DEFAULT '',
			intent_score REAL NOT NULL DEFAULT 0,
			sentiment_label TEXT NOT NULL DEFAULT '',
			sentiment_score REAL NOT NULL DEFAULT 0,
			suggestions_json TEXT NOT NULL DEFAULT '',
			entities_json TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,

			CHECK (sender IN ('customer', 'agent'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			raised_by_id TEXT NOT NULL,
			raised_by_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Open',
			priority TEXT NOT NULL DEFAULT 'Medium',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			CHECK (status IN ('Open', 'Resolved')),
			CHECK (priority IN ('Low', 'Medium', 'High', 'Urgent'))
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_conversation
			ON tickets(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);

		CREATE TABLE IF NOT EXISTS kb_articles (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// GetOrCreateCustomer returns the customer with the given ID, creating it
// on first contact. A changed display name on an existing customer is
// written through.
func (s *SQLiteStore) GetOrCreateCustomer(ctx context.Context, id, name string) (*Customer, error) {
	existing, err := s.GetCustomer(ctx, id)
	if err == nil {
		if name != "" && existing.Name != name {
			_, err = s.db.ExecContext(ctx, `UPDATE customers SET name = ? WHERE id = ?`, name, id)
			if err != nil {
				return nil, fmt.Errorf("updating customer name: %w", err)
			}
			existing.Name = name
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	customer := &Customer{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, created_at) VALUES (?, ?, ?)`,
		customer.ID,
		customer.Name,
		customer.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		// A concurrent first contact may have won the insert
		if isConstraintViolation(err) {
			return s.GetCustomer(ctx, id)
		}
		return nil, fmt.Errorf("inserting customer: %w", err)
	}

	s.logger.Debug("created customer", "id", customer.ID)
	return customer, nil
}

// GetCustomer retrieves a customer by ID.
// Returns ErrNotFound if the customer doesn't exist.
func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	var createdAtStr string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM customers WHERE id = ?`, id,
	).Scan(&customer.ID, &customer.Name, &createdAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer: %w", err)
	}

	customer.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &customer, nil
}

// isConstraintViolation checks if the error is a SQLite constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// GetOrCreateOpenConversation returns the customer's most recent open
// conversation, starting a new one when none is open.
func (s *SQLiteStore) GetOrCreateOpenConversation(ctx context.Context, customerID, source string) (*Conversation, error) {
	conv, err := s.CurrentConversation(ctx, customerID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	conv = &Conversation{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Status:     ConversationOpen,
		Source:     source,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, customer_id, status, source, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID,
		conv.CustomerID,
		conv.Status,
		conv.Source,
		conv.StartedAt.Format(time.RFC3339),
		conv.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "customer_id", customerID, "source", source)
	return conv, nil
}

const conversationColumns = `id, customer_id, status, source, assigned_agent_id, assigned_agent_name, started_at, updated_at`

// scanConversation reads one conversation row.
func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var conv Conversation
	var startedAtStr, updatedAtStr string

	err := row.Scan(
		&conv.ID,
		&conv.CustomerID,
		&conv.Status,
		&conv.Source,
		&conv.AssignedAgentID,
		&conv.AssignedAgentName,
		&startedAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	conv.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	conv.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	return scanConversation(row)
}

// CurrentConversation returns the most recently started open conversation
// for a customer. Returns ErrNotFound when the customer has none open.
func (s *SQLiteStore) CurrentConversation(ctx context.Context, customerID string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE customer_id = ? AND status = 'open'
		ORDER BY started_at DESC
		LIMIT 1`, customerID)
	return scanConversation(row)
}

// ListActiveConversations returns all open conversations, newest first.
func (s *SQLiteStore) ListActiveConversations(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE status = 'open'
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying active conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// AssignConversation records an agent taking ownership of a conversation.
// Assigning a conversation already owned by the same agent is an accepted
// no-op. Assigning one owned by a different agent returns
// ErrAssignmentConflict wrapped with the current assignee's name.
func (s *SQLiteStore) AssignConversation(ctx context.Context, conversationID, agentID, agentName string) (*Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, conversationID)
	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}

	if conv.Assigned() {
		if conv.AssignedAgentID == agentID {
			return conv, nil
		}
		return nil, fmt.Errorf("%w to %s", ErrAssignmentConflict, conv.AssignedAgentName)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE conversations
		SET assigned_agent_id = ?, assigned_agent_name = ?, updated_at = ?
		WHERE id = ?`,
		agentID, agentName, now.Format(time.RFC3339), conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing assignment: %w", err)
	}

	conv.AssignedAgentID = agentID
	conv.AssignedAgentName = agentName
	conv.UpdatedAt = now

	s.logger.Debug("conversation assigned", "conversation_id", conversationID, "agent_id", agentID)
	return conv, nil
}

// UnassignConversation releases a conversation back to the unassigned pool.
// Returns ErrNotAssigned when the conversation has no assignee.
func (s *SQLiteStore) UnassignConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, conversationID)
	conv, err := scanConversation(row)
	if err != nil {
		return nil, err
	}

	if !conv.Assigned() {
		return nil, ErrNotAssigned
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE conversations
		SET assigned_agent_id = '', assigned_agent_name = '', updated_at = ?
		WHERE id = ?`,
		now.Format(time.RFC3339), conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("clearing assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing unassignment: %w", err)
	}

	conv.AssignedAgentID = ""
	conv.AssignedAgentName = ""
	conv.UpdatedAt = now

	s.logger.Debug("conversation unassigned", "conversation_id", conversationID)
	return conv, nil
}

// SaveMessage persists a message. Messages are immutable once saved.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender, sender_name, text, media_ref,
			extracted_text, intent, intent_score, sentiment_label,
			sentiment_score, suggestions_json, entities_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ConversationID,
		msg.Sender,
		msg.SenderName,
		msg.Text,
		msg.MediaRef,
		msg.ExtractedText,
		msg.Intent,
		msg.IntentScore,
		msg.SentimentLabel,
		msg.SentimentScore,
		msg.SuggestionsJSON,
		msg.EntitiesJSON,
		msg.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "conversation_id", msg.ConversationID, "sender", msg.Sender)
	return nil
}

const messageColumns = `id, conversation_id, sender, sender_name, text, media_ref,
	extracted_text, intent, intent_score, sentiment_label, sentiment_score,
	suggestions_json, entities_json, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	var msg Message
	var createdAtStr string

	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Sender,
		&msg.SenderName,
		&msg.Text,
		&msg.MediaRef,
		&msg.ExtractedText,
		&msg.Intent,
		&msg.IntentScore,
		&msg.SentimentLabel,
		&msg.SentimentScore,
		&msg.SuggestionsJSON,
		&msg.EntitiesJSON,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	msg.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &msg, nil
}

// ListMessages returns a conversation's messages in chronological order.
// A limit of 0 returns all messages.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC`
	args := []any{conversationID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// ListCustomerMessages returns all messages across a customer's
// conversations in chronological order.
func (s *SQLiteStore) ListCustomerMessages(ctx context.Context, customerID string, limit int) ([]*Message, error) {
	query := `SELECT m.id, m.conversation_id, m.sender, m.sender_name, m.text, m.media_ref,
			m.extracted_text, m.intent, m.intent_score, m.sentiment_label, m.sentiment_score,
			m.suggestions_json, m.entities_json, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.customer_id = ?
		ORDER BY m.created_at ASC, m.rowid ASC`
	args := []any{customerID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying customer messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// CreateTicket persists a new ticket in Open status.
func (s *SQLiteStore) CreateTicket(ctx context.Context, ticket *Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	if ticket.Status == "" {
		ticket.Status = TicketOpen
	}
	if ticket.Priority == "" {
		ticket.Priority = "Medium"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (
			id, conversation_id, raised_by_id, raised_by_name,
			description, status, priority, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID,
		ticket.ConversationID,
		ticket.RaisedByID,
		ticket.RaisedByName,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedAt.Format(time.RFC3339),
		ticket.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting ticket: %w", err)
	}

	s.logger.Debug("created ticket", "id", ticket.ID, "conversation_id", ticket.ConversationID)
	return nil
}

const ticketColumns = `id, conversation_id, raised_by_id, raised_by_name,
	description, status, priority, created_at, updated_at`

func scanTicket(row interface{ Scan(...any) error }) (*Ticket, error) {
	var ticket Ticket
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&ticket.ID,
		&ticket.ConversationID,
		&ticket.RaisedByID,
		&ticket.RaisedByName,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ticket: %w", err)
	}

	ticket.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	ticket.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &ticket, nil
}

// GetTicket retrieves a ticket by ID.
// Returns ErrNotFound if the ticket doesn't exist.
func (s *SQLiteStore) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	return scanTicket(row)
}

// ListTicketsByConversation returns a conversation's tickets, newest first.
func (s *SQLiteStore) ListTicketsByConversation(ctx context.Context, conversationID string) ([]*Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE conversation_id = ?
		ORDER BY created_at DESC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// ResolveTicket moves a ticket to Resolved status.
// Returns ErrTicketResolved when the ticket is already resolved.
func (s *SQLiteStore) ResolveTicket(ctx context.Context, id string) (*Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	if ticket.Status == TicketResolved {
		return nil, ErrTicketResolved
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		TicketResolved, now.Format(time.RFC3339), id,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving ticket: %w", err)
	}

	ticket.Status = TicketResolved
	ticket.UpdatedAt = now

	s.logger.Debug("resolved ticket", "id", id)
	return ticket, nil
}

// CreateArticle persists a knowledge-base article.
func (s *SQLiteStore) CreateArticle(ctx context.Context, article *Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	article.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kb_articles (id, title, content, tags, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		article.ID,
		article.Title,
		article.Content,
		strings.Join(article.Tags, ","),
		article.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting article: %w", err)
	}

	s.logger.Debug("created article", "id", article.ID, "title", article.Title)
	return nil
}

func scanArticle(row interface{ Scan(...any) error }) (*Article, error) {
	var article Article
	var tagsStr, updatedAtStr string

	err := row.Scan(&article.ID, &article.Title, &article.Content, &tagsStr, &updatedAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning article: %w", err)
	}

	if tagsStr != "" {
		article.Tags = strings.Split(tagsStr, ",")
	}
	article.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &article, nil
}

// GetArticle retrieves an article by ID.
// Returns ErrNotFound if the article doesn't exist.
func (s *SQLiteStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, tags, updated_at FROM kb_articles WHERE id = ?`, id)
	return scanArticle(row)
}

// ListArticles returns all knowledge-base articles, most recently updated first.
func (s *SQLiteStore) ListArticles(ctx context.Context) ([]*Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, tags, updated_at FROM kb_articles ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// DeleteArticle removes an article.
// Returns ErrNotFound if the article doesn't exist.
func (s *SQLiteStore) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kb_articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// GetCustomerOverview assembles the dashboard view for one customer.
// The aggregation is best-effort: a missing conversation or empty history
// leaves those fields nil rather than failing the whole call.
func (s *SQLiteStore) GetCustomerOverview(ctx context.Context, customerID string) (*CustomerOverview, error) {
	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	overview := &CustomerOverview{Customer: customer}

	conv, err := s.CurrentConversation(ctx, customerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err == nil {
		overview.Conversation = conv

		row := s.db.QueryRowContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT 1`, conv.ID)
		msg, err := scanMessage(row)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if err == nil {
			overview.LastMessage = msg
		}

		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tickets WHERE conversation_id = ? AND status = 'Open'`,
			conv.ID,
		).Scan(&overview.OpenTicketCount)
		if err != nil {
			return nil, fmt.Errorf("counting open tickets: %w", err)
		}

		row = s.db.QueryRowContext(ctx, `
			SELECT `+ticketColumns+`
			FROM tickets
			WHERE conversation_id = ?
			ORDER BY created_at DESC
			LIMIT 1`, conv.ID)
		ticket, err := scanTicket(row)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if err == nil {
			overview.LatestTicket = ticket
		}
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.customer_id = ?`, customerID,
	).Scan(&overview.TotalMessages)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	return overview, nil
}
