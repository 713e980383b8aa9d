// ABOUTME: Gateway orchestrator that wires the store, registry, pipeline, and HTTP server
// ABOUTME: Owns component lifecycle: startup order, health endpoints, graceful shutdown

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/deskrelay/deskrelay/internal/analysis"
	"github.com/deskrelay/deskrelay/internal/config"
	"github.com/deskrelay/deskrelay/internal/media"
	"github.com/deskrelay/deskrelay/internal/metrics"
	"github.com/deskrelay/deskrelay/internal/pipeline"
	"github.com/deskrelay/deskrelay/internal/registry"
	"github.com/deskrelay/deskrelay/internal/router"
	"github.com/deskrelay/deskrelay/internal/store"
)

// Gateway orchestrates the deskrelay server components. It owns the
// HTTP server for the REST API and WebSocket endpoints, the connection
// registry, and the ingestion pipeline.
type Gateway struct {
	config     *config.Config
	store      store.Store
	registry   *registry.Registry
	pipeline   *pipeline.Service
	metrics    *metrics.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("DESKRELAY_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway with the given configuration. All components
// are constructed here; nothing listens until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	reg := registry.New(logger, m)

	analyzer := analysis.NewClient(analysis.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.RequestTimeout,
	}, s, logger)
	if cfg.AI.APIKey == "" {
		logger.Warn("ai.api_key not configured, analysis will degrade to fallback results")
	}

	extractor := media.NewClient(media.Config{
		OCREndpoint:    cfg.Media.OCREndpoint,
		OCRKey:         cfg.Media.OCRKey,
		SpeechEndpoint: cfg.Media.SpeechEndpoint,
		SpeechKey:      cfg.Media.SpeechKey,
		SpeechLanguage: cfg.Media.SpeechLanguage,
	}, logger)

	rt := router.New(s, reg, logger)
	pipe := pipeline.New(s, analyzer, extractor, rt, m, logger)

	g := &Gateway{
		config:   cfg,
		store:    s,
		registry: reg,
		pipeline: pipe,
		metrics:  m,
		logger:   logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	g.registerAPIRoutes(mux)
	g.registerWSRoutes(mux)

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, m.Handler())
		logger.Info("metrics endpoint enabled", "path", cfg.Metrics.Path)
	}

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// Run starts the HTTP server and blocks until the context is canceled
// or the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server, closes all live connections, and
// releases the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.registry.Close()

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports readiness along with live connection counts.
// The gateway is ready as soon as the store is open; agent presence is
// informational and does not gate readiness.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d customers, %d agents connected)",
		g.registry.Len(registry.AudienceCustomer),
		g.registry.Len(registry.AudienceAgent),
	)
}
