// ABOUTME: Tests for the media extraction clients.
// ABOUTME: Uses httptest servers standing in for the vision and speech endpoints.

package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractTextFromImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"readResult":{"pages":[{"lines":[{"content":"RECEIPT #42"},{"content":"TOTAL $10.00"}]}]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{OCREndpoint: srv.URL, OCRKey: "test-key"}, testLogger())

	text, err := c.ExtractTextFromImage(context.Background(), []byte("fake-png"), "image/png")
	if err != nil {
		t.Fatalf("ExtractTextFromImage() error = %v", err)
	}
	if text != "RECEIPT #42\nTOTAL $10.00" {
		t.Errorf("text = %q, want joined lines", text)
	}
}

func TestExtractTextFromImage_NoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"readResult":{"pages":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{OCREndpoint: srv.URL, OCRKey: "k"}, testLogger())

	text, err := c.ExtractTextFromImage(context.Background(), []byte("blank"), "image/png")
	if err != nil {
		t.Fatalf("ExtractTextFromImage() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty for image without text", text)
	}
}

func TestExtractTextFromImage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{OCREndpoint: srv.URL, OCRKey: "k"}, testLogger())

	_, err := c.ExtractTextFromImage(context.Background(), []byte("x"), "image/png")
	if err == nil {
		t.Error("ExtractTextFromImage() expected error on 500")
	}
}

func TestExtractTextFromImage_NotConfigured(t *testing.T) {
	c := NewClient(Config{}, testLogger())

	_, err := c.ExtractTextFromImage(context.Background(), []byte("x"), "image/png")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestTranscribeAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("language") != "en-US" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"RecognitionStatus":"Success","DisplayText":"I would like to cancel my subscription."}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SpeechEndpoint: srv.URL, SpeechKey: "k"}, testLogger())

	text, err := c.TranscribeAudio(context.Background(), []byte("fake-wav"))
	if err != nil {
		t.Fatalf("TranscribeAudio() error = %v", err)
	}
	if text != "I would like to cancel my subscription." {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeAudio_RecognitionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"RecognitionStatus":"NoMatch","DisplayText":""}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SpeechEndpoint: srv.URL, SpeechKey: "k"}, testLogger())

	_, err := c.TranscribeAudio(context.Background(), []byte("noise"))
	if err == nil {
		t.Error("TranscribeAudio() expected error for NoMatch status")
	}
}

func TestTranscribeAudio_NotConfigured(t *testing.T) {
	c := NewClient(Config{}, testLogger())

	_, err := c.TranscribeAudio(context.Background(), []byte("x"))
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}
