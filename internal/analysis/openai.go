// ABOUTME: Chat-completion backed analyzer speaking any OpenAI-compatible endpoint.
// ABOUTME: Builds the support-assistant prompt, enriches it with knowledge-base context, and parses strict JSON.

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deskrelay/deskrelay/internal/store"
)

const (
	// DefaultModel is used when the configuration names none.
	DefaultModel = "gemini-2.0-flash"

	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	retryDelay     = time.Second
	maxKBContext   = 3
)

const systemPrompt = `You are an analysis engine for a customer support desk.
Given a customer message and recent conversation history, respond with a single JSON object and nothing else:
{
  "predicted_intent": string,
  "intent_confidence": number between 0 and 1,
  "sentiment": {"label": "positive"|"neutral"|"negative", "score": number between 0 and 1},
  "detected_entities": [{"text": string, "label": string}],
  "suggestions": {
    "knowledge_base": [string],
    "pre_written_response": string,
    "next_actions": [string]
  }
}`

// ArticleSource supplies knowledge-base articles for prompt enrichment.
type ArticleSource interface {
	ListArticles(ctx context.Context) ([]*store.Article, error)
}

// Config holds connection settings for the analysis backend.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client analyzes messages through an OpenAI-compatible chat-completion
// API. Safe for concurrent use.
type Client struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	articles ArticleSource
	logger   *slog.Logger
}

// NewClient builds an analyzer from config. A missing API key yields a
// client whose Analyze always reports ErrNotConfigured; callers degrade
// to fallback results instead of failing startup.
func NewClient(cfg Config, articles ArticleSource, logger *slog.Logger) *Client {
	c := &Client{
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		articles: articles,
		logger:   logger.With("component", "analysis"),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}

	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		c.client = openai.NewClientWithConfig(clientConfig)
	}

	return c
}

// Analyze runs the message through the chat-completion backend and
// decodes its JSON answer.
func (c *Client) Analyze(ctx context.Context, req *Request) (*Result, error) {
	if c.client == nil {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: c.buildPrompt(ctx, req)},
		},
	}

	var resp openai.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
		}

		resp, lastErr = c.client.CreateChatCompletion(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			return nil, fmt.Errorf("analysis request: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("analysis request after retries: %w", lastErr)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrMalformedOutput)
	}

	result, err := ParseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("message analyzed",
		"intent", result.PredictedIntent,
		"confidence", result.IntentConfidence,
		"sentiment", result.Sentiment.Label,
	)
	return result, nil
}

// buildPrompt assembles the user turn: history, knowledge-base context
// matched by keyword, extracted media text, and the message itself.
func (c *Client) buildPrompt(ctx context.Context, req *Request) string {
	var b strings.Builder

	if len(req.History) > 0 {
		b.WriteString("Conversation history:\n")
		for _, line := range req.History {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if kb := c.matchArticles(ctx, req.Text); len(kb) > 0 {
		b.WriteString("Relevant knowledge base articles:\n")
		for _, a := range kb {
			fmt.Fprintf(&b, "- %s: %s\n", a.Title, snippet(a.Content, 300))
		}
		b.WriteByte('\n')
	}

	if req.ExtractedText != "" {
		b.WriteString("Text extracted from attached media:\n")
		b.WriteString(req.ExtractedText)
		b.WriteString("\n\n")
	}

	b.WriteString("Customer message:\n")
	b.WriteString(req.Text)
	return b.String()
}

// matchArticles selects articles whose title or tags share a keyword
// with the message. Lookup failures only cost the enrichment.
func (c *Client) matchArticles(ctx context.Context, text string) []*store.Article {
	if c.articles == nil {
		return nil
	}

	all, err := c.articles.ListArticles(ctx)
	if err != nil {
		c.logger.Warn("knowledge base lookup failed", "error", err)
		return nil
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 3 {
			words[strings.Trim(w, ".,!?")] = true
		}
	}

	var matched []*store.Article
	for _, a := range all {
		if articleMatches(a, words) {
			matched = append(matched, a)
			if len(matched) == maxKBContext {
				break
			}
		}
	}
	return matched
}

func articleMatches(a *store.Article, words map[string]bool) bool {
	for _, tag := range a.Tags {
		if words[strings.ToLower(tag)] {
			return true
		}
	}
	for _, w := range strings.Fields(strings.ToLower(a.Title)) {
		if words[strings.Trim(w, ".,!?")] {
			return true
		}
	}
	return false
}

func snippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// ParseResult decodes a completion answer into a Result. Models often
// wrap the JSON in a markdown fence, so that is stripped first.
func ParseResult(content string) (*Result, error) {
	cleaned := StripJSONFence(content)

	var result Result
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	if result.PredictedIntent == "" {
		return nil, fmt.Errorf("%w: missing predicted_intent", ErrMalformedOutput)
	}

	if result.DetectedEntities == nil {
		result.DetectedEntities = []Entity{}
	}
	if result.Suggestions.KnowledgeBase == nil {
		result.Suggestions.KnowledgeBase = []string{}
	}
	if result.Suggestions.NextActions == nil {
		result.Suggestions.NextActions = []string{}
	}

	return &result, nil
}

// StripJSONFence removes a surrounding ```json ... ``` markdown fence.
func StripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// isRetryableError determines if an error should trigger a retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	retryable := []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"}
	for _, s := range retryable {
		if strings.Contains(errMsg, s) {
			return true
		}
	}
	return false
}
