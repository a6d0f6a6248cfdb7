package memledger

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"dim/internal/ledger"
)

var _ ledger.EventSource = (*Ledger)(nil)

// Subscribe delivers events emitted after the call, in order.
func (l *Ledger) Subscribe(ctx context.Context, handler ledger.EventHandler) error {
	l.mu.Lock()
	head := uint64(len(l.log))
	l.mu.Unlock()
	return l.SubscribeFrom(ctx, head, handler)
}

// SubscribeFrom delivers every event with a sequence greater than after.
// A failed delivery is retried with backoff until it succeeds or ctx ends,
// so a handler sees each event at least once.
func (l *Ledger) SubscribeFrom(ctx context.Context, after uint64, handler ledger.EventHandler) error {
	cursor := after
	for {
		l.mu.Lock()
		pending := l.log[min(cursor, uint64(len(l.log))):]
		batch := make([]ledger.Envelope, len(pending))
		copy(batch, pending)
		wake := l.notify
		l.mu.Unlock()

		for _, env := range batch {
			if err := deliver(ctx, handler, env); err != nil {
				return err
			}
			cursor = env.Sequence
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func deliver(ctx context.Context, handler ledger.EventHandler, env ledger.Envelope) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return handler(ctx, env)
	}, backoff.WithContext(b, ctx))
}
