// Package config handles configuration loading for deskrelay.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	ai:
//	  api_key: "${DESKRELAY_AI_KEY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  shutdown_timeout: "10s"
//	ai:
//	  request_timeout: "30s"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # REST API and WebSocket endpoints
//	  shutdown_timeout: "10s"
//
// Database:
//
//	database:
//	  path: "/var/lib/deskrelay/deskrelay.db"
//
// Analysis backend (any OpenAI-compatible endpoint):
//
//	ai:
//	  base_url: "https://generativelanguage.googleapis.com/v1beta/openai"
//	  api_key: "${DESKRELAY_AI_KEY}"
//	  model: "gemini-2.0-flash"
//	  request_timeout: "30s"
//
// Media extraction:
//
//	media:
//	  ocr_endpoint: "https://example.cognitiveservices.azure.com"
//	  ocr_key: "${DESKRELAY_OCR_KEY}"
//	  speech_endpoint: "https://example.stt.speech.microsoft.com"
//	  speech_key: "${DESKRELAY_SPEECH_KEY}"
//	  speech_language: "en-US"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Metrics:
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Usage
//
//	cfg, err := config.Load("/etc/deskrelay/deskrelay.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
