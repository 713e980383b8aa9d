// ABOUTME: HTTP API handlers for message ingestion, conversation control, tickets, and the knowledge base.
// ABOUTME: Maps store sentinel errors onto HTTP status codes; all bodies are JSON.

package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/deskrelay/deskrelay/internal/pipeline"
	"github.com/deskrelay/deskrelay/internal/store"
)

// TextMessageRequest is the JSON request body for POST /api/messages/text.
type TextMessageRequest struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Text         string `json:"text"`
}

// ImageMessageRequest is the JSON request body for POST /api/messages/image.
// The image is carried inline as base64.
type ImageMessageRequest struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Caption      string `json:"caption,omitempty"`
	ImageBase64  string `json:"image_base64"`
	ContentType  string `json:"content_type"`
}

// AudioMessageRequest is the JSON request body for POST /api/messages/audio.
type AudioMessageRequest struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	AudioBase64  string `json:"audio_base64"`
}

// AgentReplyRequest is the JSON request body for POST /api/agent/reply.
type AgentReplyRequest struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	AgentName      string `json:"agent_name"`
	Text           string `json:"text"`
}

// AssignRequest is the JSON request body for POST /api/conversations/assign.
type AssignRequest struct {
	ConversationID string `json:"conversation_id"`
	AgentID        string `json:"agent_id"`
	AgentName      string `json:"agent_name"`
}

// UnassignRequest is the JSON request body for POST /api/conversations/unassign.
type UnassignRequest struct {
	ConversationID string `json:"conversation_id"`
}

// CreateTicketRequest is the JSON request body for POST /api/tickets.
type CreateTicketRequest struct {
	ConversationID string `json:"conversation_id"`
	RaisedByID     string `json:"raised_by_id"`
	RaisedByName   string `json:"raised_by_name"`
	Description    string `json:"description"`
	Priority       string `json:"priority,omitempty"`
}

// ResolveTicketRequest is the JSON request body for POST /api/tickets/resolve.
type ResolveTicketRequest struct {
	TicketID string `json:"ticket_id"`
}

// CreateArticleRequest is the JSON request body for POST /api/kb/articles.
type CreateArticleRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// IngestResponse is the JSON response for successful message ingestion.
type IngestResponse struct {
	MessageID      string          `json:"message_id"`
	ConversationID string          `json:"conversation_id"`
	Analysis       json.RawMessage `json:"analysis"`
	Degraded       bool            `json:"degraded"`
}

// MessageResponse is the JSON shape of one persisted message.
type MessageResponse struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Sender         string  `json:"sender"`
	SenderName     string  `json:"sender_name"`
	Text           string  `json:"text"`
	MediaRef       string  `json:"media_ref,omitempty"`
	ExtractedText  string  `json:"extracted_text,omitempty"`
	Intent         string  `json:"intent,omitempty"`
	IntentScore    float64 `json:"intent_score,omitempty"`
	SentimentLabel string  `json:"sentiment_label,omitempty"`
	SentimentScore float64 `json:"sentiment_score,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ConversationResponse is the JSON shape of one conversation.
type ConversationResponse struct {
	ID                string `json:"id"`
	CustomerID        string `json:"customer_id"`
	Status            string `json:"status"`
	Source            string `json:"source"`
	AssignedAgentID   string `json:"assigned_agent_id,omitempty"`
	AssignedAgentName string `json:"assigned_agent_name,omitempty"`
	StartedAt         string `json:"started_at"`
	UpdatedAt         string `json:"updated_at"`
}

// TicketResponse is the JSON shape of one ticket.
type TicketResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	RaisedByID     string `json:"raised_by_id"`
	RaisedByName   string `json:"raised_by_name"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// ArticleResponse is the JSON shape of one knowledge-base article.
// RenderedHTML is populated only on single-article reads.
type ArticleResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	RenderedHTML string   `json:"rendered_html,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	UpdatedAt    string   `json:"updated_at"`
}

const maxInlineMediaBytes = 8 << 20

// registerAPIRoutes registers the REST API on the mux.
func (g *Gateway) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/messages/text", g.handleTextMessage)
	mux.HandleFunc("/api/messages/image", g.handleImageMessage)
	mux.HandleFunc("/api/messages/audio", g.handleAudioMessage)
	mux.HandleFunc("/api/agent/reply", g.handleAgentReply)
	mux.HandleFunc("/api/conversations/assign", g.handleAssign)
	mux.HandleFunc("/api/conversations/unassign", g.handleUnassign)
	mux.HandleFunc("/api/conversations/active", g.handleActiveConversations)
	mux.HandleFunc("/api/conversations/", g.handleConversationRoutes)
	mux.HandleFunc("/api/customers/overview", g.handleCustomerOverview)
	mux.HandleFunc("/api/customers/", g.handleCustomerRoutes)
	mux.HandleFunc("/api/tickets", g.handleTickets)
	mux.HandleFunc("/api/tickets/resolve", g.handleResolveTicket)
	mux.HandleFunc("/api/kb/articles", g.handleArticles)
	mux.HandleFunc("/api/kb/articles/", g.handleArticleRoutes)
}

// handleTextMessage handles POST /api/messages/text.
func (g *Gateway) handleTextMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req TextMessageRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	out, err := g.pipeline.IngestText(r.Context(), req.CustomerID, req.CustomerName, req.Text)
	if err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendIngestResponse(w, out)
}

// handleImageMessage handles POST /api/messages/image.
func (g *Gateway) handleImageMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ImageMessageRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	image, err := decodeInlineMedia(req.ImageBase64)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/png"
	}

	out, err := g.pipeline.IngestImage(r.Context(), req.CustomerID, req.CustomerName, req.Caption, image, contentType)
	if err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendIngestResponse(w, out)
}

// handleAudioMessage handles POST /api/messages/audio.
func (g *Gateway) handleAudioMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req AudioMessageRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	audio, err := decodeInlineMedia(req.AudioBase64)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := g.pipeline.IngestAudio(r.Context(), req.CustomerID, req.CustomerName, audio)
	if err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendIngestResponse(w, out)
}

// handleAgentReply handles POST /api/agent/reply.
func (g *Gateway) handleAgentReply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req AgentReplyRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID == "" || req.AgentID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation_id and agent_id are required")
		return
	}

	msg, err := g.pipeline.AgentReply(r.Context(), req.ConversationID, req.AgentID, req.AgentName, req.Text)
	if err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, messageResponse(msg))
}

// handleAssign handles POST /api/conversations/assign.
func (g *Gateway) handleAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req AssignRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID == "" || req.AgentID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation_id and agent_id are required")
		return
	}

	conv, err := g.pipeline.Assign(r.Context(), req.ConversationID, req.AgentID, req.AgentName)
	if err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, conversationResponse(conv))
}

// handleUnassign handles POST /api/conversations/unassign.
func (g *Gateway) handleUnassign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req UnassignRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	conv, err := g.pipeline.Unassign(r.Context(), req.ConversationID)
	if err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, conversationResponse(conv))
}

// handleActiveConversations handles GET /api/conversations/active.
func (g *Gateway) handleActiveConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	convs, err := g.store.ListActiveConversations(r.Context())
	if err != nil {
		g.logger.Error("listing active conversations", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		response = append(response, conversationResponse(c))
	}
	g.sendJSON(w, http.StatusOK, response)
}

// handleConversationRoutes handles GET /api/conversations/{id}/messages.
func (g *Gateway) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	msgs, err := g.store.ListMessages(r.Context(), parts[0], parseLimit(r))
	if err != nil {
		g.logger.Error("listing conversation messages", "conversation_id", parts[0], "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.sendMessages(w, msgs)
}

// handleCustomerRoutes handles GET /api/customers/{id}/messages.
func (g *Gateway) handleCustomerRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/customers/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	msgs, err := g.store.ListCustomerMessages(r.Context(), parts[0], parseLimit(r))
	if err != nil {
		g.logger.Error("listing customer messages", "customer_id", parts[0], "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.sendMessages(w, msgs)
}

// handleCustomerOverview handles GET /api/customers/overview?customer_id=X.
func (g *Gateway) handleCustomerOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	overview, err := g.store.GetCustomerOverview(r.Context(), customerID)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "customer not found")
		return
	}
	if err != nil {
		g.logger.Error("building customer overview", "customer_id", customerID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := map[string]any{
		"customer": map[string]any{
			"id":   overview.Customer.ID,
			"name": overview.Customer.Name,
		},
		"open_ticket_count": overview.OpenTicketCount,
		"total_messages":    overview.TotalMessages,
	}
	if overview.Conversation != nil {
		response["conversation"] = conversationResponse(overview.Conversation)
	}
	if overview.LastMessage != nil {
		response["last_message"] = messageResponse(overview.LastMessage)
	}
	if overview.LatestTicket != nil {
		response["latest_ticket"] = ticketResponse(overview.LatestTicket)
	}
	g.sendJSON(w, http.StatusOK, response)
}

// handleTickets handles POST /api/tickets and GET /api/tickets?conversation_id=X.
func (g *Gateway) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		g.handleCreateTicket(w, r)
	case http.MethodGet:
		g.handleListTickets(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID == "" || req.Description == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation_id and description are required")
		return
	}

	ticket := &store.Ticket{
		ConversationID: req.ConversationID,
		RaisedByID:     req.RaisedByID,
		RaisedByName:   req.RaisedByName,
		Description:    req.Description,
		Priority:       req.Priority,
	}
	if err := g.pipeline.OpenTicket(r.Context(), ticket); err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendJSON(w, http.StatusCreated, ticketResponse(ticket))
}

func (g *Gateway) handleListTickets(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	tickets, err := g.store.ListTicketsByConversation(r.Context(), conversationID)
	if err != nil {
		g.logger.Error("listing tickets", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		response = append(response, ticketResponse(t))
	}
	g.sendJSON(w, http.StatusOK, response)
}

// handleResolveTicket handles POST /api/tickets/resolve.
func (g *Gateway) handleResolveTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ResolveTicketRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TicketID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "ticket_id is required")
		return
	}

	ticket, err := g.pipeline.ResolveTicket(r.Context(), req.TicketID)
	if err != nil {
		g.sendPipelineError(w, err)
		return
	}
	g.sendJSON(w, http.StatusOK, ticketResponse(ticket))
}

// handleArticles handles GET and POST /api/kb/articles.
func (g *Gateway) handleArticles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		articles, err := g.store.ListArticles(r.Context())
		if err != nil {
			g.logger.Error("listing articles", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		response := make([]ArticleResponse, 0, len(articles))
		for _, a := range articles {
			response = append(response, articleResponse(a, false))
		}
		g.sendJSON(w, http.StatusOK, response)

	case http.MethodPost:
		var req CreateArticleRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Title == "" || req.Content == "" {
			g.sendJSONError(w, http.StatusBadRequest, "title and content are required")
			return
		}
		article := &store.Article{
			Title:   req.Title,
			Content: req.Content,
			Tags:    req.Tags,
		}
		if err := g.store.CreateArticle(r.Context(), article); err != nil {
			g.logger.Error("creating article", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.sendJSON(w, http.StatusCreated, articleResponse(article, false))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleArticleRoutes handles GET and DELETE /api/kb/articles/{id}.
func (g *Gateway) handleArticleRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/kb/articles/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		article, err := g.store.GetArticle(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "article not found")
			return
		}
		if err != nil {
			g.logger.Error("getting article", "article_id", id, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.sendJSON(w, http.StatusOK, articleResponse(article, true))

	case http.MethodDelete:
		err := g.store.DeleteArticle(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "article not found")
			return
		}
		if err != nil {
			g.logger.Error("deleting article", "article_id", id, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// sendPipelineError maps pipeline and store sentinel errors to HTTP
// status codes. Conflict bodies carry the current assignee in the
// error message.
func (g *Gateway) sendPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyMessage):
		g.sendJSONError(w, http.StatusBadRequest, "message content is required")
	case errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAssignmentConflict),
		errors.Is(err, store.ErrNotAssigned),
		errors.Is(err, store.ErrTicketResolved):
		g.sendJSONError(w, http.StatusConflict, err.Error())
	default:
		g.logger.Error("pipeline request failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (g *Gateway) sendIngestResponse(w http.ResponseWriter, out *pipeline.Ingested) {
	analysisJSON, err := json.Marshal(out.Analysis)
	if err != nil {
		g.logger.Error("encoding analysis", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.sendJSON(w, http.StatusOK, IngestResponse{
		MessageID:      out.Message.ID,
		ConversationID: out.Conversation.ID,
		Analysis:       analysisJSON,
		Degraded:       out.Analysis.Degraded(),
	})
}

func (g *Gateway) sendMessages(w http.ResponseWriter, msgs []*store.Message) {
	response := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, messageResponse(m))
	}
	g.sendJSON(w, http.StatusOK, response)
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("encoding response", "error", err)
	}
}

func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func decodeInlineMedia(b64 string) ([]byte, error) {
	if b64 == "" {
		return nil, errors.New("media payload is required")
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.New("media payload is not valid base64")
	}
	if len(data) > maxInlineMediaBytes {
		return nil, errors.New("media payload too large")
	}
	return data, nil
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func messageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		SenderName:     m.SenderName,
		Text:           m.Text,
		MediaRef:       m.MediaRef,
		ExtractedText:  m.ExtractedText,
		Intent:         m.Intent,
		IntentScore:    m.IntentScore,
		SentimentLabel: m.SentimentLabel,
		SentimentScore: m.SentimentScore,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func conversationResponse(c *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                c.ID,
		CustomerID:        c.CustomerID,
		Status:            c.Status,
		Source:            c.Source,
		AssignedAgentID:   c.AssignedAgentID,
		AssignedAgentName: c.AssignedAgentName,
		StartedAt:         c.StartedAt.Format(time.RFC3339),
		UpdatedAt:         c.UpdatedAt.Format(time.RFC3339),
	}
}

func ticketResponse(t *store.Ticket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		ConversationID: t.ConversationID,
		RaisedByID:     t.RaisedByID,
		RaisedByName:   t.RaisedByName,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.Format(time.RFC3339),
	}
}

func articleResponse(a *store.Article, render bool) ArticleResponse {
	resp := ArticleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Tags:      a.Tags,
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
	if render {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(a.Content), &buf); err == nil {
			resp.RenderedHTML = buf.String()
		}
	}
	return resp
}
