// ABOUTME: Tests for notification payload encoding.
// ABOUTME: Verifies type discriminators and field presence on the wire form.

package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/deskrelay/deskrelay/internal/analysis"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshaling wire payload: %v", err)
	}
	return m
}

func TestEncode_TypeDiscriminators(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{"analysis", CustomerMessageAnalysis{ConversationID: "c1"}, TypeCustomerMessageAnalysis},
		{"customer echo", CustomerChatMessage{ConversationID: "c1"}, TypeCustomerChatMessage},
		{"agent message", AgentChatMessage{ConversationID: "c1"}, TypeAgentChatMessage},
		{"assigned", ConversationAssigned{ConversationID: "c1"}, TypeConversationAssigned},
		{"unassigned", ConversationUnassigned{ConversationID: "c1"}, TypeConversationUnassigned},
		{"ticket resolved", TicketResolved{ConversationID: "c1"}, TypeTicketResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.n)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			m := decode(t, data)
			if m["type"] != tt.want {
				t.Errorf("type = %v, want %q", m["type"], tt.want)
			}
			if m["conversation_id"] != "c1" {
				t.Errorf("conversation_id = %v, want c1", m["conversation_id"])
			}
		})
	}
}

func TestEncode_AnalysisPayload(t *testing.T) {
	n := CustomerMessageAnalysis{
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		CustomerID:     "cust-1",
		CustomerName:   "Ada",
		Text:           "my card was charged twice",
		Analysis: &analysis.Result{
			PredictedIntent:  "billing_inquiry",
			IntentConfidence: 0.93,
			Sentiment:        analysis.Sentiment{Label: "negative", Score: 0.81},
		},
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	data, err := Encode(n)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	m := decode(t, data)
	a, ok := m["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("analysis block missing: %v", m)
	}
	if a["predicted_intent"] != "billing_inquiry" {
		t.Errorf("predicted_intent = %v, want billing_inquiry", a["predicted_intent"])
	}
	sentiment, ok := a["sentiment"].(map[string]any)
	if !ok || sentiment["label"] != "negative" {
		t.Errorf("sentiment = %v, want label negative", a["sentiment"])
	}
}
