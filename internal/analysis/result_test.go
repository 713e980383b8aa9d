// ABOUTME: Tests for analysis result parsing and fallback construction.
// ABOUTME: Covers JSON fence stripping, strict decoding, and marker mapping.

package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseResult(t *testing.T) {
	content := `{
		"predicted_intent": "billing_inquiry",
		"intent_confidence": 0.93,
		"sentiment": {"label": "negative", "score": 0.81},
		"detected_entities": [{"text": "invoice 42", "label": "INVOICE"}],
		"suggestions": {
			"knowledge_base": ["Refund policy"],
			"pre_written_response": "I can help with that charge.",
			"next_actions": ["check billing history"]
		}
	}`

	result, err := ParseResult(content)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}

	if result.PredictedIntent != "billing_inquiry" {
		t.Errorf("PredictedIntent = %q, want billing_inquiry", result.PredictedIntent)
	}
	if result.IntentConfidence != 0.93 {
		t.Errorf("IntentConfidence = %v, want 0.93", result.IntentConfidence)
	}
	if result.Sentiment.Label != "negative" {
		t.Errorf("Sentiment.Label = %q, want negative", result.Sentiment.Label)
	}
	if len(result.DetectedEntities) != 1 || result.DetectedEntities[0].Label != "INVOICE" {
		t.Errorf("DetectedEntities = %v", result.DetectedEntities)
	}
	if result.Degraded() {
		t.Error("Degraded() = true for a real analysis")
	}
}

func TestParseResult_FencedJSON(t *testing.T) {
	content := "```json\n{\"predicted_intent\": \"greeting\", \"intent_confidence\": 0.5, \"sentiment\": {\"label\": \"neutral\", \"score\": 0.5}}\n```"

	result, err := ParseResult(content)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if result.PredictedIntent != "greeting" {
		t.Errorf("PredictedIntent = %q, want greeting", result.PredictedIntent)
	}
	// Nil slices are normalized so encoders always emit arrays
	if result.DetectedEntities == nil || result.Suggestions.NextActions == nil {
		t.Error("nil slices should be normalized to empty")
	}
}

func TestParseResult_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "sorry, I cannot help with that"},
		{"missing intent", `{"intent_confidence": 0.5}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(tt.content)
			if !errors.Is(err, ErrMalformedOutput) {
				t.Errorf("ParseResult() error = %v, want ErrMalformedOutput", err)
			}
		})
	}
}

func TestStripJSONFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripJSONFence(tt.input); got != tt.want {
				t.Errorf("StripJSONFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	result := Fallback(MarkerAPIError)

	if result.PredictedIntent != MarkerAPIError {
		t.Errorf("PredictedIntent = %q, want %q", result.PredictedIntent, MarkerAPIError)
	}
	if !result.Degraded() {
		t.Error("Degraded() = false for a fallback result")
	}
	if result.Sentiment.Label != "unknown" {
		t.Errorf("Sentiment.Label = %q, want unknown", result.Sentiment.Label)
	}
	if result.Suggestions.PreWrittenResponse == "" {
		t.Error("fallback should carry a pre-written response")
	}
}

func TestFallbackFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not configured", ErrNotConfigured, MarkerSystemError},
		{"malformed", fmt.Errorf("%w: bad json", ErrMalformedOutput), MarkerParsingError},
		{"api failure", errors.New("connection refused"), MarkerAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackFor(tt.err); got.PredictedIntent != tt.want {
				t.Errorf("FallbackFor(%v) marker = %q, want %q", tt.err, got.PredictedIntent, tt.want)
			}
		})
	}
}

func TestAnalyze_NotConfigured(t *testing.T) {
	c := NewClient(Config{}, nil, testLogger())

	_, err := c.Analyze(context.Background(), &Request{Text: "hello"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Analyze() error = %v, want ErrNotConfigured", err)
	}
}
