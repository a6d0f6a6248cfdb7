// Package service is the holder-local consent store: which data categories a
// holder has granted to which relying-party domain.
//
// The local store is the authority. Each grant is also mirrored to the blob
// store as a versioned document, best-effort: a failed mirror is reported as
// a warning on the result and retried later, never as the grant's error.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dim/internal/audit"
	"dim/internal/blobstore"
	"dim/internal/category"
	"dim/internal/consent/metrics"
	"dim/internal/consent/models"
	"dim/internal/platform/remote"
	"dim/internal/sentinel"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/platform/circuit"
)

const (
	defaultBlobTimeout     = 10 * time.Second
	defaultSignatureWindow = 10 * time.Minute
)

// Service persists consent decisions and mirrors them to the blob store.
type Service struct {
	store       Store
	tx          ConsentStoreTx
	blobs       BlobStore
	proofs      ProofInvalidator
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	breaker     *circuit.Breaker
	retry       remote.RetryPolicy
	blobTimeout time.Duration
	sigWindow   time.Duration
	now         func() time.Time
}

type Option func(*Service)

// WithTx sets the transactional boundary for writes. Without it writes are
// serialized per holder over the store.
func WithTx(tx ConsentStoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithProofInvalidator(p ProofInvalidator) Option {
	return func(s *Service) {
		s.proofs = p
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithMetrics sets the metrics instance for the service
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMirrorRetry configures retries of a single mirror write.
func WithMirrorRetry(p remote.RetryPolicy) Option {
	return func(s *Service) {
		s.retry = p
	}
}

// WithMirrorBreaker replaces the default mirror circuit breaker.
func WithMirrorBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

// WithBlobTimeout bounds each blob call that has no caller deadline.
func WithBlobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.blobTimeout = d
		}
	}
}

// WithSignatureWindow bounds how far a grant's signed timestamp may be from
// the service clock, in either direction.
func WithSignatureWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sigWindow = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		store:       store,
		blobs:       blobs,
		logger:      slog.Default(),
		breaker:     circuit.New("consent-mirror"),
		retry:       remote.DefaultRetryPolicy(),
		blobTimeout: defaultBlobTimeout,
		sigWindow:   defaultSignatureWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(store)
	}
	return s
}

// Grant records that holder allows relyingParty to see ids, replacing any
// earlier grant for the same domain. signature must be the holder's signature
// over models.SignatureMessage at signedAt, which becomes the record's grant
// time. The returned locator is the content address of the mirrored document
// and is valid even if the mirror failed.
func (s *Service) Grant(ctx context.Context, holder domain.Address, relyingParty string, ids []category.ID, signedAt time.Time, signature string) (*models.GrantResult, error) {
	start := time.Now()
	scope, err := models.NewScope(holder, relyingParty)
	if err != nil {
		return nil, err
	}
	rec, err := models.NewRecord(scope, ids, signedAt, signature)
	if err != nil {
		return nil, err
	}
	if err := s.checkSignedAt(rec.GrantedAt); err != nil {
		return nil, err
	}
	if err := rec.VerifySignature(); err != nil {
		return nil, err
	}
	doc, err := rec.Encode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode consent document")
	}
	rec.Locator = blobstore.LocatorFor(doc)

	replaced := false
	err = s.tx.RunInTx(ctx, scope, func(ctx context.Context, st Store) error {
		_, err := st.Find(ctx, scope)
		switch {
		case err == nil:
			replaced = true
		case !errors.Is(err, sentinel.ErrNotFound):
			return err
		}
		// Last point at which an abandoned grant leaves the prior record.
		if err := ctx.Err(); err != nil {
			return err
		}
		return st.Put(ctx, rec)
	})
	if err != nil {
		return nil, storeError("failed to grant consent", err)
	}
	s.observeGrant(replaced, time.Since(start))
	s.invalidateProof(ctx, scope)
	s.emitAudit(ctx, audit.Event{
		Actor:    holder,
		Action:   audit.ActionConsentGranted,
		Subject:  string(rec.Locator),
		Domain:   scope.Domain,
		Decision: decisionFor(replaced),
	})

	res := &models.GrantResult{Record: rec, Locator: rec.Locator}
	if err := s.mirror(ctx, rec, doc); err != nil {
		s.logger.WarnContext(ctx, "consent mirror failed; local grant stands",
			"domain", scope.Domain,
			"locator", rec.Locator,
			"error", err,
		)
		res.Warning = err
	}
	return res, nil
}

// Revoke deletes the holder's record for relyingParty. Revoking a missing
// record is a successful no-op. Proofs already handed out stay valid.
func (s *Service) Revoke(ctx context.Context, holder domain.Address, relyingParty string) (bool, error) {
	scope, err := models.NewScope(holder, relyingParty)
	if err != nil {
		return false, err
	}
	var removed bool
	err = s.tx.RunInTx(ctx, scope, func(ctx context.Context, st Store) error {
		var err error
		removed, err = st.Delete(ctx, scope)
		return err
	})
	if err != nil {
		return false, storeError("failed to revoke consent", err)
	}
	s.invalidateProof(ctx, scope)
	if removed {
		if s.metrics != nil {
			s.metrics.IncrementConsentsRevoked()
			s.metrics.DecrementActiveConsents(1)
		}
		s.emitAudit(ctx, audit.Event{
			Actor:    holder,
			Action:   audit.ActionConsentRevoked,
			Domain:   scope.Domain,
			Decision: "revoked",
		})
	}
	return removed, nil
}

// Lookup returns the record for (holder, relyingParty), if any.
func (s *Service) Lookup(ctx context.Context, holder domain.Address, relyingParty string) (*models.Record, bool, error) {
	scope, err := models.NewScope(holder, relyingParty)
	if err != nil {
		return nil, false, err
	}
	start := time.Now()
	rec, err := s.store.Find(ctx, scope)
	s.observeStore("find", time.Since(start))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError("failed to read consent", err)
	}
	return rec, true, nil
}

// IsGranted reports whether the holder's record for relyingParty covers id.
func (s *Service) IsGranted(ctx context.Context, holder domain.Address, relyingParty string, id category.ID) (bool, error) {
	if _, err := category.Get(id); err != nil {
		return false, err
	}
	rec, ok, err := s.Lookup(ctx, holder, relyingParty)
	if err != nil {
		return false, err
	}
	granted := ok && rec.Covers(id)
	if s.metrics != nil {
		s.metrics.IncrementConsentCheck(string(id), granted)
	}
	return granted, nil
}

// List returns every record of holder ordered by domain.
func (s *Service) List(ctx context.Context, holder domain.Address) ([]*models.Record, error) {
	start := time.Now()
	recs, err := s.store.ListByHolder(ctx, holder)
	s.observeStore("list", time.Since(start))
	if err != nil {
		return nil, storeError("failed to list consents", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveRecordsPerHolder(float64(len(recs)))
	}
	return recs, nil
}

// Restore re-installs a mirrored consent document for holder. The document
// must hash to locator and decode as a current-version record. A newer local
// grant for the same domain is never overwritten.
func (s *Service) Restore(ctx context.Context, holder domain.Address, locator domain.Locator) (*models.Record, error) {
	raw, err := s.fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	if err := blobstore.Verify(locator, raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "consent document does not match its locator")
	}
	rec, err := models.DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	if !rec.Holder.Equal(holder) {
		return nil, dErrors.New(dErrors.CodeForbidden, "consent document belongs to another holder")
	}
	if err := rec.VerifySignature(); err != nil {
		return nil, err
	}
	rec.Locator = locator
	mirrored := s.now().UTC()
	rec.MirroredAt = &mirrored

	scope := rec.Scope()
	installed := false
	err = s.tx.RunInTx(ctx, scope, func(ctx context.Context, st Store) error {
		existing, err := st.Find(ctx, scope)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
		case err != nil:
			return err
		case existing.Locator == locator:
			rec = existing
			return nil
		case existing.GrantedAt.After(rec.GrantedAt):
			return dErrors.New(dErrors.CodeConflict, "a newer consent exists for this domain")
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		installed = true
		return st.Put(ctx, rec)
	})
	if err != nil {
		return nil, storeError("failed to restore consent", err)
	}
	if installed {
		s.invalidateProof(ctx, scope)
		s.emitAudit(ctx, audit.Event{
			Actor:   holder,
			Action:  audit.ActionConsentRestored,
			Subject: string(locator),
			Domain:  scope.Domain,
		})
	}
	return rec, nil
}

// checkSignedAt rejects grants signed too long ago or too far ahead, so an
// old signature cannot reinstate a revoked grant.
func (s *Service) checkSignedAt(at time.Time) error {
	d := s.now().Sub(at)
	if d > s.sigWindow || d < -s.sigWindow {
		return dErrors.New(dErrors.CodeProofExpired, "consent signature timestamp is outside the accepted window")
	}
	return nil
}

// storeError translates a failed store call exactly once.
func storeError(msg string, err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg+": abandoned before commit, prior record unchanged")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, msg+": consent store unavailable")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func decisionFor(replaced bool) string {
	if replaced {
		return "replaced"
	}
	return "granted"
}

func (s *Service) invalidateProof(ctx context.Context, scope models.Scope) {
	if s.proofs != nil {
		s.proofs.Invalidate(ctx, scope.Holder, scope.Domain)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

func (s *Service) observeGrant(replaced bool, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementConsentsGranted(replaced)
	s.metrics.ObserveConsentGrantLatency(d.Seconds())
	if !replaced {
		s.metrics.IncrementActiveConsents(1)
	}
}

func (s *Service) observeStore(op string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveStoreOperationLatency(op, d.Seconds())
	}
}
