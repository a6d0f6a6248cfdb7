// Package cleanup periodically removes expired sessions and challenges.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper removes expired login artifacts and reports how many sessions went.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

type Service struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(sweeper Sweeper, opts ...Option) (*Service, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("sweeper is required")
	}
	s := &Service{
		sweeper:  sweeper,
		interval: 5 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start sweeps every interval until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	n, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed", "count", n)
	}
	return n, nil
}
