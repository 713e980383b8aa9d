// ABOUTME: Analysis result types and degraded-mode fallback construction.
// ABOUTME: A Result is always produced for a customer message, even when the backend fails.

package analysis

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates the analysis backend has no API key.
var ErrNotConfigured = errors.New("analysis backend not configured")

// ErrMalformedOutput indicates the backend responded but its output
// could not be decoded into a Result.
var ErrMalformedOutput = errors.New("malformed analysis output")

// Fallback markers recorded in place of a real intent when analysis
// degrades. Consumers render these as "analysis unavailable" states.
const (
	MarkerSystemError  = "system_error"
	MarkerParsingError = "parsing_error"
	MarkerAPIError     = "api_error"
)

// Analyzer produces a Result for a customer message. Implementations
// return an error on degradation; callers substitute a fallback Result
// and never surface the error to the customer.
type Analyzer interface {
	Analyze(ctx context.Context, req *Request) (*Result, error)
}

// Request carries the message under analysis plus conversational context.
type Request struct {
	Text          string
	ExtractedText string   // OCR or transcript accompanying the message
	History       []string // prior messages, oldest first, "sender: text" form
}

// Sentiment is the emotional read of a message.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Entity is a span of interest detected in the message.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Suggestions are the agent-facing assists derived from the message.
type Suggestions struct {
	KnowledgeBase      []string `json:"knowledge_base"`
	PreWrittenResponse string   `json:"pre_written_response"`
	NextActions        []string `json:"next_actions"`
}

// Result is the full analysis of one customer message.
type Result struct {
	PredictedIntent  string      `json:"predicted_intent"`
	IntentConfidence float64     `json:"intent_confidence"`
	Sentiment        Sentiment   `json:"sentiment"`
	DetectedEntities []Entity    `json:"detected_entities"`
	Suggestions      Suggestions `json:"suggestions"`
	OCRExtractedText string      `json:"ocr_extracted_text,omitempty"`
}

// Degraded reports whether the result is a fallback rather than a real
// analysis.
func (r *Result) Degraded() bool {
	switch r.PredictedIntent {
	case MarkerSystemError, MarkerParsingError, MarkerAPIError:
		return true
	}
	return false
}

// Fallback builds the degraded Result recorded when analysis cannot run.
// The marker lands in the intent field; everything else is neutral.
func Fallback(marker string) *Result {
	return &Result{
		PredictedIntent:  marker,
		IntentConfidence: 0,
		Sentiment:        Sentiment{Label: "unknown", Score: 0},
		DetectedEntities: []Entity{},
		Suggestions: Suggestions{
			KnowledgeBase:      []string{},
			PreWrittenResponse: "Thanks for your message. An agent will review it shortly.",
			NextActions:        []string{"review manually"},
		},
	}
}

// FallbackFor maps an analyzer error to the fallback Result with the
// matching marker.
func FallbackFor(err error) *Result {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return Fallback(MarkerSystemError)
	case errors.Is(err, ErrMalformedOutput):
		return Fallback(MarkerParsingError)
	default:
		return Fallback(MarkerAPIError)
	}
}
