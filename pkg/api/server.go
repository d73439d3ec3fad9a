// Package api is the HTTP surface: webhook intake, thread state reads, and
// health endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/queue"
)

// Enqueuer is the slice of the worker pool the webhook handler uses.
type Enqueuer interface {
	Enqueue(t *queue.Turn) error
	Accepting() bool
}

// Server serves the router's HTTP API.
type Server struct {
	cfg     *config.ServerConfig
	pool    Enqueuer
	store   checkpoint.Store
	version string
	token   string
	http    *http.Server
	logger  *slog.Logger
}

// NewServer builds the server and its routes. The webhook shared secret is
// read from cfg.WebhookTokenEnv; an empty value disables verification.
func NewServer(cfg *config.ServerConfig, pool Enqueuer, store checkpoint.Store, version string) *Server {
	s := &Server{
		cfg:     cfg,
		pool:    pool,
		store:   store,
		version: version,
		token:   os.Getenv(cfg.WebhookTokenEnv),
		logger:  slog.Default().With("component", "api"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestLogger(s.logger), recovery(s.logger), securityHeaders())

	engine.POST("/webhooks/crm", s.handleWebhook)
	engine.GET("/api/v1/threads/:id", s.handleGetThread)
	engine.GET("/health", s.handleHealth)
	engine.GET("/ready", s.handleReady)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the routed handler for httptest.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start begins serving in a goroutine. Listen failures are delivered on the
// returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting connections and waits for in-flight requests up to
// the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
