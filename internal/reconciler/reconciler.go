// Package reconciler keeps the local ledger view and the disclosure proof
// cache consistent with ledger state. It consumes the ledger event feed and,
// for each event that touches something the local actor can observe,
// invalidates and re-reads only the affected entity.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"dim/internal/ledger"
	"dim/pkg/domain"
)

// View is the part of the ledger view the reconciler maintains.
type View interface {
	Identity(ctx context.Context, addr domain.Address) (*ledger.Identity, error)
	IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error)
	Credentials(ctx context.Context, holder domain.Address) ([]ledger.Credential, error)
	Requests(ctx context.Context, issuer domain.Address) ([]ledger.CredentialRequest, error)
	RefreshRequest(ctx context.Context, ref ledger.RequestRef) (*ledger.CredentialRequest, error)

	InvalidateIdentity(ctx context.Context, addr domain.Address)
	InvalidateIssuer(ctx context.Context, addr domain.Address)
	InvalidateCredentials(ctx context.Context, holder domain.Address)
	InvalidateRequests(ctx context.Context, issuer domain.Address)
}

// ProofInvalidator drops cached disclosure proofs of a holder.
type ProofInvalidator interface {
	InvalidateHolder(ctx context.Context, holder domain.Address)
}

// ErrNoEvent is returned for an envelope without an event.
var ErrNoEvent = errors.New("envelope carries no event")

const (
	outcomeApplied = "applied"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// Reconciler applies ledger events on behalf of one local actor.
type Reconciler struct {
	self   domain.Address
	view   View
	proofs ProofInvalidator
	logger *slog.Logger

	mu sync.RWMutex
	// issuers of the local actor's credentials, refreshed from every
	// credential re-read.
	watched      map[domain.Address]struct{}
	lastSequence uint64
}

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithProofInvalidator(p ProofInvalidator) Option {
	return func(r *Reconciler) {
		r.proofs = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func New(self domain.Address, view View, opts ...Option) *Reconciler {
	r := &Reconciler{
		self:    self,
		view:    view,
		logger:  slog.Default(),
		watched: make(map[domain.Address]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prime loads the issuers of the local actor's credentials so that issuer
// events affecting them are recognised before any credential event arrives.
func (r *Reconciler) Prime(ctx context.Context) error {
	creds, err := r.view.Credentials(ctx, r.self)
	if err != nil {
		return fmt.Errorf("prime reconciler: %w", err)
	}
	r.watch(creds)
	return nil
}

// Run primes the reconciler and feeds it from src until ctx ends or src fails.
func (r *Reconciler) Run(ctx context.Context, src ledger.EventSource) error {
	if err := r.Prime(ctx); err != nil {
		r.logger.WarnContext(ctx, "reconciler started without credential issuers", "error", err)
	}
	return src.Subscribe(ctx, r.Handle)
}

// Handle applies one event. A returned error leaves the event unacknowledged
// so the source redelivers it; handling is idempotent.
func (r *Reconciler) Handle(ctx context.Context, env ledger.Envelope) error {
	if env.Event == nil {
		eventsTotal.WithLabelValues("none", outcomeFailed).Inc()
		return ErrNoEvent
	}
	kind := string(env.Event.Kind())

	applied, err := r.apply(ctx, env.Event)
	if err != nil {
		eventsTotal.WithLabelValues(kind, outcomeFailed).Inc()
		r.logger.WarnContext(ctx, "failed to reconcile ledger event",
			"kind", kind,
			"sequence", env.Sequence,
			"error", err,
		)
		return fmt.Errorf("reconcile %s #%d: %w", kind, env.Sequence, err)
	}

	outcome := outcomeSkipped
	if applied {
		outcome = outcomeApplied
		r.logger.DebugContext(ctx, "reconciled ledger event", "kind", kind, "sequence", env.Sequence)
	}
	eventsTotal.WithLabelValues(kind, outcome).Inc()
	r.advance(env.Sequence)
	return nil
}

func (r *Reconciler) apply(ctx context.Context, ev ledger.Event) (bool, error) {
	switch e := ev.(type) {
	case ledger.IdentityRegistered:
		return r.identityRegistered(ctx, e)
	case ledger.IssuerApproved:
		return r.issuerChanged(ctx, e.Issuer)
	case ledger.IssuerRevoked:
		return r.issuerChanged(ctx, e.Issuer)
	case ledger.CredentialIssued:
		return r.credentialChanged(ctx, e.Ref.Holder, e.Issuer)
	case ledger.CredentialRevoked:
		return r.credentialChanged(ctx, e.Ref.Holder, e.Issuer)
	case ledger.RequestCreated:
		return r.requestChanged(ctx, e.Ref, e.Requester)
	case ledger.RequestReviewed:
		return r.requestChanged(ctx, e.Ref, e.Requester)
	default:
		return false, fmt.Errorf("unhandled ledger event %T", ev)
	}
}

func (r *Reconciler) identityRegistered(ctx context.Context, e ledger.IdentityRegistered) (bool, error) {
	if e.Holder != r.self {
		return false, nil
	}
	r.view.InvalidateIdentity(ctx, e.Holder)
	_, err := r.view.Identity(ctx, e.Holder)
	return true, err
}

// issuerChanged tracks the issuer status of the local actor itself and of the
// issuers of its credentials. A change in the latter affects what the local
// holder can prove, so cached proofs are dropped too.
func (r *Reconciler) issuerChanged(ctx context.Context, issuer domain.Address) (bool, error) {
	watched := r.watches(issuer)
	if issuer != r.self && !watched {
		return false, nil
	}
	r.view.InvalidateIssuer(ctx, issuer)
	if watched {
		r.invalidateProofs(ctx)
	}
	_, err := r.view.IsApprovedIssuer(ctx, issuer)
	return true, err
}

func (r *Reconciler) credentialChanged(ctx context.Context, holder, issuer domain.Address) (bool, error) {
	if holder != r.self && issuer != r.self {
		return false, nil
	}
	r.view.InvalidateCredentials(ctx, holder)
	if holder == r.self {
		r.invalidateProofs(ctx)
	}
	creds, err := r.view.Credentials(ctx, holder)
	if err != nil {
		return true, err
	}
	if holder == r.self {
		r.watch(creds)
	}
	return true, nil
}

// requestChanged refreshes the requester's snapshot when the local actor made
// the request, and the issuer's request list when it was addressed to it.
func (r *Reconciler) requestChanged(ctx context.Context, ref ledger.RequestRef, requester domain.Address) (bool, error) {
	switch {
	case requester == r.self:
		_, err := r.view.RefreshRequest(ctx, ref)
		return true, err
	case ref.Issuer == r.self:
		r.view.InvalidateRequests(ctx, ref.Issuer)
		_, err := r.view.Requests(ctx, ref.Issuer)
		return true, err
	default:
		return false, nil
	}
}

func (r *Reconciler) invalidateProofs(ctx context.Context) {
	if r.proofs != nil {
		r.proofs.InvalidateHolder(ctx, r.self)
	}
}

func (r *Reconciler) watch(creds []ledger.Credential) {
	next := make(map[domain.Address]struct{}, len(creds))
	for _, c := range creds {
		next[c.Issuer] = struct{}{}
	}
	r.mu.Lock()
	r.watched = next
	r.mu.Unlock()
	watchedIssuers.Set(float64(len(next)))
}

func (r *Reconciler) watches(issuer domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.watched[issuer]
	return ok
}

func (r *Reconciler) advance(seq uint64) {
	r.mu.Lock()
	if seq > r.lastSequence {
		r.lastSequence = seq
		lastSequence.Set(float64(seq))
	}
	r.mu.Unlock()
}

// LastSequence is the highest event sequence handled so far.
func (r *Reconciler) LastSequence() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSequence
}
