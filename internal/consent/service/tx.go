package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dim/internal/consent/models"
	dErrors "dim/pkg/domain-errors"
	platformsync "dim/pkg/platform/sync"
)

// Shard contention metrics for monitoring lock behavior
var (
	shardLockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dim_consent_shard_lock_wait_seconds",
		Help:    "Time spent waiting to acquire a consent shard lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	shardLockAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dim_consent_shard_lock_acquisitions_total",
		Help: "Total number of consent shard lock acquisitions",
	})
)

// defaultConsentTxTimeout is the maximum duration for a consent transaction.
const defaultConsentTxTimeout = 5 * time.Second

// NewShardedTx serializes writers per holder over a store whose single
// calls are already atomic, such as store.InMemoryStore.
func NewShardedTx(store Store) ConsentStoreTx {
	return &shardedConsentTx{mu: platformsync.NewShardedMutex(), store: store}
}

type shardedConsentTx struct {
	mu      *platformsync.ShardedMutex
	store   Store
	timeout time.Duration
}

func (t *shardedConsentTx) RunInTx(ctx context.Context, scope models.Scope, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultConsentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	key := scope.Holder.String()

	lockStart := time.Now()
	t.mu.Lock(key)
	shardLockWaitDuration.Observe(time.Since(lockStart).Seconds())
	shardLockAcquisitions.Inc()
	defer t.mu.Unlock(key)

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}
