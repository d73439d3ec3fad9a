// Package cleanup runs the periodic retention sweep for checkpoint backends
// without native expiry.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/config"
)

// Service periodically deletes expired thread states from the checkpoint
// store. Sweeps are idempotent and safe to run from multiple replicas.
type Service struct {
	config  *config.RetentionConfig
	sweeper checkpoint.Sweeper
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates the retention service. Returns nil when the store does
// not need sweeping (Redis expires natively).
func NewService(cfg *config.RetentionConfig, store checkpoint.Store) *Service {
	sweeper, ok := store.(checkpoint.Sweeper)
	if !ok {
		return nil
	}
	return &Service{
		config:  cfg,
		sweeper: sweeper,
		logger:  slog.Default().With("component", "cleanup"),
	}
}

// Start launches the background sweep loop. The first sweep runs immediately.
// Nil-safe.
func (s *Service) Start(ctx context.Context) {
	if s == nil || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Retention sweep started",
		"interval", s.config.CleanupInterval,
		"timeout", s.config.CleanupTimeout)
}

// Stop signals the sweep loop to exit and waits for it to finish. Nil-safe.
func (s *Service) Stop() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Retention sweep stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.CleanupTimeout)
	defer cancel()

	count, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("Retention sweep failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("Retention sweep removed expired threads", "count", count)
	}
}
