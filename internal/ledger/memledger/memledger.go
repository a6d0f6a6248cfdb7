// Package memledger is an in-process ledger. It enforces the same
// authorization and state-machine rules as the deployed ledger and emits the
// same events, so it backs both tests and the development ledger node.
package memledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"dim/internal/ledger"
	"dim/pkg/domain"
)

// Ledger is safe for concurrent use. Every mutation is applied atomically
// together with the events it emits.
type Ledger struct {
	mu          sync.Mutex
	admin       domain.Address
	identities  map[domain.Address]ledger.Identity
	issuers     map[domain.Address]bool
	credentials map[domain.Address][]ledger.Credential
	requests    map[domain.Address][]ledger.CredentialRequest

	log    []ledger.Envelope
	notify chan struct{}

	now      func() time.Time
	beforeOp func(ctx context.Context, op string) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithHook runs fn before every operation. A non-nil error aborts the
// operation without changing state. Tests use it to inject latency and faults.
func WithHook(fn func(ctx context.Context, op string) error) Option {
	return func(l *Ledger) {
		l.beforeOp = fn
	}
}

// New creates an empty ledger administered by admin.
func New(admin domain.Address, opts ...Option) *Ledger {
	l := &Ledger{
		admin:       admin,
		identities:  make(map[domain.Address]ledger.Identity),
		issuers:     make(map[domain.Address]bool),
		credentials: make(map[domain.Address][]ledger.Credential),
		requests:    make(map[domain.Address][]ledger.CredentialRequest),
		notify:      make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ ledger.Ledger = (*Ledger)(nil)

func (l *Ledger) enter(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.beforeOp != nil {
		return l.beforeOp(ctx, op)
	}
	return nil
}

// emit appends events to the log and wakes subscribers. Caller holds l.mu.
func (l *Ledger) emit(events ...ledger.Event) {
	at := l.now().UTC()
	for _, ev := range events {
		l.log = append(l.log, ledger.Envelope{
			Sequence:  uint64(len(l.log) + 1),
			EmittedAt: at,
			Event:     ev,
		})
	}
	close(l.notify)
	l.notify = make(chan struct{})
}

func (l *Ledger) Admin(ctx context.Context) (domain.Address, error) {
	if err := l.enter(ctx, "admin"); err != nil {
		return "", err
	}
	return l.admin, nil
}

func (l *Ledger) GetIdentity(ctx context.Context, addr domain.Address) (*ledger.Identity, error) {
	if err := l.enter(ctx, "get_identity"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.identities[addr]
	if !ok {
		return &ledger.Identity{Address: addr}, nil
	}
	return &id, nil
}

func (l *Ledger) IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error) {
	if err := l.enter(ctx, "is_approved_issuer"); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issuers[addr], nil
}

func (l *Ledger) GetCredentials(ctx context.Context, holder domain.Address) ([]ledger.Credential, error) {
	if err := l.enter(ctx, "get_credentials"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneCredentials(l.credentials[holder]), nil
}

func (l *Ledger) GetCredential(ctx context.Context, ref ledger.CredentialRef) (*ledger.Credential, error) {
	if err := l.enter(ctx, "get_credential"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.credentialLocked(ref)
	if err != nil {
		return nil, err
	}
	out := cloneCredential(*c)
	return &out, nil
}

func (l *Ledger) GetCredentialRequests(ctx context.Context, issuer domain.Address) ([]ledger.CredentialRequest, error) {
	if err := l.enter(ctx, "get_credential_requests"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	reqs := l.requests[issuer]
	out := make([]ledger.CredentialRequest, len(reqs))
	for i, r := range reqs {
		out[i] = cloneRequest(r)
	}
	return out, nil
}

func (l *Ledger) GetRequest(ctx context.Context, ref ledger.RequestRef) (*ledger.CredentialRequest, error) {
	if err := l.enter(ctx, "get_request"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	r, err := l.requestLocked(ref)
	if err != nil {
		return nil, err
	}
	out := cloneRequest(*r)
	return &out, nil
}

func (l *Ledger) RegisterIdentity(ctx context.Context, caller domain.Address, metadata domain.Locator) error {
	if err := l.enter(ctx, "register_identity"); err != nil {
		return err
	}
	if caller.IsZero() {
		return ledger.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.identities[caller].Registered {
		return ledger.ErrAlreadyRegistered
	}
	l.identities[caller] = ledger.Identity{
		Address:         caller,
		Registered:      true,
		MetadataLocator: metadata,
		Owner:           caller,
		RegisteredAt:    l.now().UTC(),
	}
	l.emit(ledger.IdentityRegistered{Holder: caller, MetadataLocator: metadata})
	return nil
}

// ApproveIssuer is idempotent: approving an approved issuer changes nothing and emits nothing.
func (l *Ledger) ApproveIssuer(ctx context.Context, caller, issuer domain.Address) error {
	if err := l.enter(ctx, "approve_issuer"); err != nil {
		return err
	}
	if caller != l.admin {
		return ledger.ErrNotAdmin
	}
	if issuer == caller {
		return ledger.ErrSelfApproval
	}
	if issuer.IsZero() {
		return ledger.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.issuers[issuer] {
		return nil
	}
	l.issuers[issuer] = true
	l.emit(ledger.IssuerApproved{Issuer: issuer})
	return nil
}

// RevokeIssuer is idempotent. Credentials already issued by the issuer stay valid.
func (l *Ledger) RevokeIssuer(ctx context.Context, caller, issuer domain.Address) error {
	if err := l.enter(ctx, "revoke_issuer"); err != nil {
		return err
	}
	if caller != l.admin {
		return ledger.ErrNotAdmin
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.issuers[issuer] {
		return nil
	}
	delete(l.issuers, issuer)
	l.emit(ledger.IssuerRevoked{Issuer: issuer})
	return nil
}

func (l *Ledger) RequestCredential(ctx context.Context, caller, issuer domain.Address, data domain.Locator) (ledger.RequestRef, error) {
	if err := l.enter(ctx, "request_credential"); err != nil {
		return ledger.RequestRef{}, err
	}
	if data.IsZero() {
		return ledger.RequestRef{}, ledger.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.identities[caller].Registered {
		return ledger.RequestRef{}, ledger.ErrNotRegistered
	}
	if !l.issuers[issuer] {
		return ledger.RequestRef{}, ledger.ErrIssuerNotApproved
	}
	ref := ledger.RequestRef{Issuer: issuer, Index: uint64(len(l.requests[issuer]))}
	l.requests[issuer] = append(l.requests[issuer], ledger.CredentialRequest{
		Ref:         ref,
		Requester:   caller,
		DataLocator: data,
		RequestedAt: l.now().UTC(),
	})
	l.emit(ledger.RequestCreated{Ref: ref, Requester: caller, DataLocator: data})
	return ref, nil
}

func (l *Ledger) ApproveRequest(ctx context.Context, caller domain.Address, ref ledger.RequestRef, credentialData domain.Locator) (ledger.CredentialRef, error) {
	if err := l.enter(ctx, "approve_request"); err != nil {
		return ledger.CredentialRef{}, err
	}
	if credentialData.IsZero() {
		return ledger.CredentialRef{}, ledger.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	req, err := l.reviewableLocked(caller, ref)
	if err != nil {
		return ledger.CredentialRef{}, err
	}
	now := l.now().UTC()
	cred := l.issueLocked(caller, req.Requester, credentialData, now)
	req.Reviewed = true
	req.Approved = true
	req.ReviewedAt = &now
	req.Credential = &cred
	l.emit(
		ledger.CredentialIssued{Ref: cred, Issuer: caller, DataLocator: credentialData},
		ledger.RequestReviewed{Ref: ref, Requester: req.Requester, Approved: true},
	)
	return cred, nil
}

func (l *Ledger) RejectRequest(ctx context.Context, caller domain.Address, ref ledger.RequestRef) error {
	if err := l.enter(ctx, "reject_request"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	req, err := l.reviewableLocked(caller, ref)
	if err != nil {
		return err
	}
	now := l.now().UTC()
	req.Reviewed = true
	req.Approved = false
	req.ReviewedAt = &now
	l.emit(ledger.RequestReviewed{Ref: ref, Requester: req.Requester, Approved: false})
	return nil
}

// IssueCredential issues directly to a registered holder without a request.
func (l *Ledger) IssueCredential(ctx context.Context, caller, holder domain.Address, data domain.Locator) (ledger.CredentialRef, error) {
	if err := l.enter(ctx, "issue_credential"); err != nil {
		return ledger.CredentialRef{}, err
	}
	if data.IsZero() {
		return ledger.CredentialRef{}, ledger.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.issuers[caller] {
		return ledger.CredentialRef{}, ledger.ErrNotIssuer
	}
	if !l.identities[holder].Registered {
		return ledger.CredentialRef{}, ledger.ErrNotRegistered
	}
	cred := l.issueLocked(caller, holder, data, l.now().UTC())
	l.emit(ledger.CredentialIssued{Ref: cred, Issuer: caller, DataLocator: data})
	return cred, nil
}

// RevokeCredential may be called by the admin or the credential's issuer.
func (l *Ledger) RevokeCredential(ctx context.Context, caller domain.Address, ref ledger.CredentialRef) error {
	if err := l.enter(ctx, "revoke_credential"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.credentialLocked(ref)
	if err != nil {
		return err
	}
	if caller != l.admin && caller != c.Issuer {
		return ledger.ErrNotIssuer
	}
	if c.Revoked {
		return ledger.ErrAlreadyRevoked
	}
	now := l.now().UTC()
	c.Revoked = true
	c.RevokedAt = &now
	l.emit(ledger.CredentialRevoked{Ref: ref, Issuer: c.Issuer})
	return nil
}

func (l *Ledger) reviewableLocked(caller domain.Address, ref ledger.RequestRef) (*ledger.CredentialRequest, error) {
	req, err := l.requestLocked(ref)
	if err != nil {
		return nil, err
	}
	if caller != ref.Issuer || !l.issuers[caller] {
		return nil, ledger.ErrNotIssuer
	}
	if req.Reviewed {
		return nil, ledger.ErrAlreadyReviewed
	}
	return req, nil
}

func (l *Ledger) issueLocked(issuer, holder domain.Address, data domain.Locator, at time.Time) ledger.CredentialRef {
	ref := ledger.CredentialRef{Holder: holder, Index: uint64(len(l.credentials[holder]))}
	l.credentials[holder] = append(l.credentials[holder], ledger.Credential{
		Ref:         ref,
		Issuer:      issuer,
		DataLocator: data,
		IssuedAt:    at,
	})
	return ref
}

func (l *Ledger) requestLocked(ref ledger.RequestRef) (*ledger.CredentialRequest, error) {
	reqs := l.requests[ref.Issuer]
	if ref.Index >= uint64(len(reqs)) {
		return nil, ledger.ErrRequestNotFound
	}
	return &reqs[ref.Index], nil
}

func (l *Ledger) credentialLocked(ref ledger.CredentialRef) (*ledger.Credential, error) {
	creds := l.credentials[ref.Holder]
	if ref.Index >= uint64(len(creds)) {
		return nil, ledger.ErrCredentialNotFound
	}
	return &creds[ref.Index], nil
}

func cloneCredentials(in []ledger.Credential) []ledger.Credential {
	out := make([]ledger.Credential, len(in))
	for i, c := range in {
		out[i] = cloneCredential(c)
	}
	return out
}

func cloneCredential(c ledger.Credential) ledger.Credential {
	if c.RevokedAt != nil {
		at := *c.RevokedAt
		c.RevokedAt = &at
	}
	return c
}

func cloneRequest(r ledger.CredentialRequest) ledger.CredentialRequest {
	if r.ReviewedAt != nil {
		at := *r.ReviewedAt
		r.ReviewedAt = &at
	}
	if r.Credential != nil {
		ref := *r.Credential
		r.Credential = &ref
	}
	return r
}

// Events returns a copy of the event log from sequence after+1 onwards.
func (l *Ledger) Events(after uint64) []ledger.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	if after >= uint64(len(l.log)) {
		return nil
	}
	return slices.Clone(l.log[after:])
}
