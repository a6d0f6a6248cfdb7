package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	dErrors "dim/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	// Guards counts idempotency-guard failures (already reviewed/revoked/registered).
	Guards int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Guards
}

// RunConcurrent executes fn in parallel goroutines and collects results.
// Errors carrying an idempotency-guard code are counted separately from other failures.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, guards atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case isGuard(err):
				guards.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
		Guards:    guards.Load(),
	}
}

// RunConcurrentCtx executes fn in parallel goroutines with context support.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}

func isGuard(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeAlreadyReviewed, dErrors.CodeAlreadyRevoked, dErrors.CodeAlreadyRegistered:
		return true
	default:
		return false
	}
}
