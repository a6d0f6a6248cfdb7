package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks Store,BlobStore,ProofInvalidator,AuditPublisher

import (
	"context"
	"time"

	"dim/internal/audit"
	"dim/internal/consent/models"
	"dim/pkg/domain"
)

// Store persists consent records keyed by scope.
// Error contract:
//   - Find returns sentinel.ErrNotFound when no record exists
//   - Delete reports whether a record existed
//   - MarkMirrored returns sentinel.ErrNotFound when the scope holds a different locator
type Store interface {
	Find(ctx context.Context, scope models.Scope) (*models.Record, error)
	ListByHolder(ctx context.Context, holder domain.Address) ([]*models.Record, error)
	Put(ctx context.Context, rec *models.Record) error
	Delete(ctx context.Context, scope models.Scope) (bool, error)
	MarkMirrored(ctx context.Context, scope models.Scope, locator domain.Locator, at time.Time) error
}

// ConsentStoreTx runs a group of store calls for one scope atomically.
// Implementations may wrap a database transaction or, in memory, a sharded lock.
type ConsentStoreTx interface {
	RunInTx(ctx context.Context, scope models.Scope, fn func(ctx context.Context, store Store) error) error
}

// BlobStore is the content-addressed mirror target.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (domain.Locator, error)
	Get(ctx context.Context, locator domain.Locator) ([]byte, error)
}

// ProofInvalidator drops cached disclosure proofs for a scope.
type ProofInvalidator interface {
	Invalidate(ctx context.Context, holder domain.Address, relyingParty string)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}
