// Package mirror retries blob mirrors of consent records that were saved
// locally while the blob store was unreachable.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dim/pkg/domain"
)

// Mirrorer re-mirrors the pending records of one holder.
type Mirrorer interface {
	MirrorPending(ctx context.Context, holder domain.Address) (int, error)
}

// Worker periodically retries pending mirrors for the local holder.
type Worker struct {
	consents Mirrorer
	holder   domain.Address
	interval time.Duration
	logger   *slog.Logger
}

// Option configures Worker.
type Option func(*Worker)

// WithInterval overrides the retry interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithLogger overrides the logger used for retry errors.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New constructs a Worker for holder.
func New(consents Mirrorer, holder domain.Address, opts ...Option) (*Worker, error) {
	if consents == nil {
		return nil, fmt.Errorf("consent service is required")
	}
	if holder.IsZero() {
		return nil, fmt.Errorf("holder address is required")
	}
	w := &Worker{
		consents: consents,
		holder:   holder,
		interval: time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start runs RunOnce periodically until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "consent mirror retry incomplete", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single retry pass and returns how many records reached
// the blob store.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	n, err := w.consents.MirrorPending(ctx, w.holder)
	if n > 0 {
		w.logger.InfoContext(ctx, "mirrored pending consent records", "count", n)
	}
	return n, err
}
