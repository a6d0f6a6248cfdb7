// Package ledger defines the port to the authoritative identity ledger and
// the closed set of events it emits.
//
// The ledger owns identities, issuers, credentials and credential requests.
// Everything else in this module reads and mutates them only through the
// Ledger interface and keeps at most a per-event invalidated cache of them.
package ledger

import (
	"context"

	"dim/pkg/domain"
)

// Reader is the read side of the ledger.
//
// Error contract:
//   - GetIdentity returns an unregistered Identity for unknown addresses
//   - GetRequest and GetCredential return ErrRequestNotFound / ErrCredentialNotFound
//   - timeouts wrap context.DeadlineExceeded
type Reader interface {
	Admin(ctx context.Context) (domain.Address, error)
	GetIdentity(ctx context.Context, addr domain.Address) (*Identity, error)
	IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error)
	GetCredentials(ctx context.Context, holder domain.Address) ([]Credential, error)
	GetCredential(ctx context.Context, ref CredentialRef) (*Credential, error)
	GetCredentialRequests(ctx context.Context, issuer domain.Address) ([]CredentialRequest, error)
	GetRequest(ctx context.Context, ref RequestRef) (*CredentialRequest, error)
}

// Writer is the state-changing side of the ledger. Every call names the
// caller whose authority it is submitted under.
//
// A call that fails with a wrapped context.DeadlineExceeded may still have
// been applied. Re-read state before retrying it.
type Writer interface {
	RegisterIdentity(ctx context.Context, caller domain.Address, metadata domain.Locator) error
	ApproveIssuer(ctx context.Context, caller, issuer domain.Address) error
	RevokeIssuer(ctx context.Context, caller, issuer domain.Address) error
	RequestCredential(ctx context.Context, caller, issuer domain.Address, data domain.Locator) (RequestRef, error)
	ApproveRequest(ctx context.Context, caller domain.Address, ref RequestRef, credentialData domain.Locator) (CredentialRef, error)
	RejectRequest(ctx context.Context, caller domain.Address, ref RequestRef) error
	IssueCredential(ctx context.Context, caller, holder domain.Address, data domain.Locator) (CredentialRef, error)
	RevokeCredential(ctx context.Context, caller domain.Address, ref CredentialRef) error
}

// Ledger is the full operation set.
type Ledger interface {
	Reader
	Writer
}

// EventHandler processes one event. Returning an error asks the source to redeliver it.
type EventHandler func(ctx context.Context, env Envelope) error

// EventSource delivers ledger events at least once and in ledger order.
// Subscribe blocks until ctx is done or the source fails.
type EventSource interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}
