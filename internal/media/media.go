// ABOUTME: Text extraction from customer media: image OCR and call audio transcription.
// ABOUTME: REST clients for Azure-style vision and speech endpoints.

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured indicates the extraction endpoint has no key or URL.
var ErrNotConfigured = errors.New("media extraction not configured")

// Extractor turns media bytes into text. Failures are terminal for the
// message being ingested; there is no degraded mode for extraction.
type Extractor interface {
	ExtractTextFromImage(ctx context.Context, image []byte, contentType string) (string, error)
	TranscribeAudio(ctx context.Context, audio []byte) (string, error)
}

// Config holds the vision and speech endpoint settings.
type Config struct {
	OCREndpoint    string
	OCRKey         string
	SpeechEndpoint string
	SpeechKey      string
	SpeechLanguage string
}

// Client implements Extractor against Azure-compatible REST endpoints.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a media extraction client. Endpoints left blank in
// config cause the corresponding operation to fail with ErrNotConfigured.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.SpeechLanguage == "" {
		cfg.SpeechLanguage = "en-US"
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("component", "media"),
	}
}

// ExtractTextFromImage sends the image to the vision OCR endpoint and
// joins the recognized lines. An image with no recognizable text returns
// an empty string and no error.
func (c *Client) ExtractTextFromImage(ctx context.Context, image []byte, contentType string) (string, error) {
	if c.cfg.OCREndpoint == "" || c.cfg.OCRKey == "" {
		return "", ErrNotConfigured
	}

	url := strings.TrimSuffix(c.cfg.OCREndpoint, "/") + "/computervision/imageanalysis:analyze?api-version=2023-02-01-preview&features=read"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("building OCR request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.OCRKey)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OCR endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("OCR endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		ReadResult struct {
			Pages []struct {
				Lines []struct {
					Content string `json:"content"`
				} `json:"lines"`
			} `json:"pages"`
		} `json:"readResult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding OCR response: %w", err)
	}

	var lines []string
	for _, page := range result.ReadResult.Pages {
		for _, line := range page.Lines {
			lines = append(lines, line.Content)
		}
	}

	text := strings.Join(lines, "\n")
	c.logger.Debug("image text extracted", "lines", len(lines), "bytes", len(image))
	return text, nil
}

// TranscribeAudio sends call audio to the speech endpoint and returns
// the combined transcript.
func (c *Client) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	if c.cfg.SpeechEndpoint == "" || c.cfg.SpeechKey == "" {
		return "", ErrNotConfigured
	}

	url := strings.TrimSuffix(c.cfg.SpeechEndpoint, "/") +
		"/speech/recognition/conversation/cognitiveservices/v1?language=" + c.cfg.SpeechLanguage
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SpeechKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling speech endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("speech endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding speech response: %w", err)
	}

	if result.RecognitionStatus != "Success" {
		return "", fmt.Errorf("speech recognition failed: %s", result.RecognitionStatus)
	}

	c.logger.Debug("audio transcribed", "bytes", len(audio), "chars", len(result.DisplayText))
	return result.DisplayText, nil
}
