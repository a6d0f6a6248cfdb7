package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks Ledger,View,BlobReader,AuditPublisher

import (
	"context"

	"dim/internal/audit"
	"dim/internal/ledger"
	"dim/pkg/domain"
)

// Ledger is the authoritative ledger. Mutations and the freshness-sensitive
// reads of the lifecycle go straight to it.
type Ledger interface {
	ledger.Ledger
}

// View is the read-through cache of ledger entities.
// Error contract: reads return the ledger's errors unchanged.
type View interface {
	Identity(ctx context.Context, addr domain.Address) (*ledger.Identity, error)
	IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error)
	Credentials(ctx context.Context, holder domain.Address) ([]ledger.Credential, error)
	Requests(ctx context.Context, issuer domain.Address) ([]ledger.CredentialRequest, error)
	HolderRequests(ctx context.Context, holder domain.Address) ([]ledger.CredentialRequest, error)
	MarkRegisteredPending(ctx context.Context, addr domain.Address, metadata domain.Locator)
	RecordRequest(ctx context.Context, req ledger.CredentialRequest) error
	RefreshRequest(ctx context.Context, ref ledger.RequestRef) (*ledger.CredentialRequest, error)
	InvalidateIssuer(ctx context.Context, addr domain.Address)
	InvalidateCredentials(ctx context.Context, holder domain.Address)
	InvalidateRequests(ctx context.Context, issuer domain.Address)
}

// BlobReader fetches identity metadata documents.
type BlobReader interface {
	Get(ctx context.Context, locator domain.Locator) ([]byte, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}
