package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks ConsentReader,ProfileSource,ProofCache,AuditPublisher

import (
	"context"
	"time"

	"dim/internal/audit"
	consentmodels "dim/internal/consent/models"
	credentialmodels "dim/internal/credential/models"
	"dim/internal/disclosure/models"
	"dim/pkg/domain"
)

// ConsentReader answers which categories a holder granted to a domain.
// Errors are already domain errors.
type ConsentReader interface {
	Lookup(ctx context.Context, holder domain.Address, relyingParty string) (*consentmodels.Record, bool, error)
}

// ProfileSource builds the full data set of a holder.
type ProfileSource interface {
	Profile(ctx context.Context, holder domain.Address) (*credentialmodels.HolderData, error)
}

// ProofCache stores the last proof per (holder, domain).
// Error contract: Get returns sentinel.ErrNotFound on a miss.
type ProofCache interface {
	Get(ctx context.Context, holder domain.Address, relyingParty string) (*models.Proof, error)
	Set(ctx context.Context, holder domain.Address, relyingParty string, proof *models.Proof, ttl time.Duration) error
	Invalidate(ctx context.Context, holder domain.Address, relyingParty string)
	InvalidateHolder(ctx context.Context, holder domain.Address)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}
