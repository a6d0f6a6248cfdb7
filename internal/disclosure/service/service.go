// Package service is the disclosure engine. It projects a holder's data down
// to what a relying party was granted, signs a proof over the projection,
// and verifies proofs produced by any agent.
//
// Projection is default-deny: without a consent record only the holder
// account leaves the agent.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"dim/internal/audit"
	"dim/internal/category"
	consentmodels "dim/internal/consent/models"
	"dim/internal/disclosure/canonical"
	"dim/internal/disclosure/metrics"
	"dim/internal/disclosure/models"
	"dim/internal/platform/tracer"
	"dim/internal/sentinel"
	"dim/internal/signer"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

const (
	defaultMaxAge     = 15 * time.Minute
	defaultMaxSkew    = 30 * time.Second
	consentTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Service produces and checks disclosure proofs.
type Service struct {
	consent  ConsentReader
	profiles ProfileSource
	signer   signer.Signer
	cache    ProofCache
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   tracer.Tracer
	maxAge   time.Duration
	maxSkew  time.Duration
	cacheTTL time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithProofCache(c ProofCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithReplayWindow sets how old a proof may be and how far in the future
// its timestamp may lie before Verify rejects it.
func WithReplayWindow(maxAge, maxSkew time.Duration) Option {
	return func(s *Service) {
		if maxAge > 0 {
			s.maxAge = maxAge
		}
		if maxSkew >= 0 {
			s.maxSkew = maxSkew
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a disclosure Service. The signer is the holder's signing
// capability; Disclose only answers for its address.
func New(consent ConsentReader, profiles ProfileSource, sg signer.Signer, opts ...Option) *Service {
	s := &Service{
		consent:  consent,
		profiles: profiles,
		signer:   sg,
		logger:   slog.Default(),
		maxAge:   defaultMaxAge,
		maxSkew:  defaultMaxSkew,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = tracer.OrNoop(s.tracer)
	// Half the replay window leaves a relying party time to verify a cached proof.
	s.cacheTTL = s.maxAge / 2
	return s
}

// Project returns the fields of full that holder granted to relyingParty.
// A domain that cannot name a consent record gets the default-deny projection.
func (s *Service) Project(ctx context.Context, full map[string]any, holder domain.Address, relyingParty string) (models.Projection, error) {
	if _, err := consentmodels.NewScope(holder, relyingParty); err != nil {
		return project(full, holder, nil)
	}
	rec, ok, err := s.consent.Lookup(ctx, holder, relyingParty)
	if err != nil {
		return nil, err
	}
	if !ok {
		rec = nil
	}
	return project(full, holder, rec)
}

func project(full map[string]any, holder domain.Address, rec *consentmodels.Record) (models.Projection, error) {
	if rec == nil {
		return models.Projection{
			category.HolderAddressField: holder.String(),
			models.FieldConsentGiven:    false,
		}, nil
	}
	fields, err := category.FieldsFor(rec.Categories)
	if err != nil {
		return nil, err
	}
	out := make(models.Projection, len(fields)+3)
	for _, f := range fields {
		if v, ok := full[f]; ok && v != nil {
			out[f] = v
		}
	}
	out[category.HolderAddressField] = holder.String()
	out[models.FieldConsentGiven] = true
	out[models.FieldConsentTimestamp] = rec.GrantedAt.UTC().Format(consentTimeLayout)
	out[models.FieldGrantedCategories] = slices.Clone(rec.Categories)
	return out, nil
}

// Prove signs the selected fields of full at the current time.
func (s *Service) Prove(ctx context.Context, full map[string]any, selected []string, sg signer.Signer) (*models.Proof, error) {
	return s.ProveAt(ctx, full, selected, sg, s.now())
}

// ProveAt signs the selected fields of full with timestamp at. Fields absent
// from full are skipped. Identical inputs give identical hashes.
func (s *Service) ProveAt(ctx context.Context, full map[string]any, selected []string, sg signer.Signer, at time.Time) (*models.Proof, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDisclosureProve)
	proof, err := s.prove(ctx, full, selected, sg, at)
	span.End(err)
	return proof, err
}

func (s *Service) prove(ctx context.Context, full map[string]any, selected []string, sg signer.Signer, at time.Time) (*models.Proof, error) {
	if sg == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "signer required")
	}
	start := time.Now()
	subset := make(map[string]any, len(selected))
	for _, f := range selected {
		if v, ok := full[f]; ok {
			subset[f] = v
		}
	}
	encoded, err := canonical.Marshal(subset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "disclosure data is not representable as JSON")
	}
	data, err := canonical.Decode(encoded)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode canonical data")
	}

	proof := &models.Proof{
		Data:      data.(map[string]any),
		DataHash:  signer.Keccak256Hex(encoded),
		Timestamp: at.UnixMilli(),
		Signer:    sg.Address(),
		Version:   models.ProofVersion,
	}
	sig, err := sg.Sign(ctx, []byte(proof.Message()))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "signing abandoned")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signer unavailable")
	}
	proof.Signature = signer.EncodeSignature(sig)
	if s.metrics != nil {
		s.metrics.ObserveProofSigned(time.Since(start).Seconds())
	}
	return proof, nil
}

// Verify checks that proof was signed by expected within the replay window.
// It does not look at proof.Data; see VerifyContent.
func (s *Service) Verify(proof *models.Proof, expected domain.Address) (bool, error) {
	err := s.verify(proof, expected)
	if s.metrics != nil {
		result := "valid"
		if err != nil {
			result = string(dErrors.CodeOf(err))
		}
		s.metrics.IncrementVerification(result)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) verify(proof *models.Proof, expected domain.Address) error {
	if proof == nil {
		return dErrors.New(dErrors.CodeBadRequest, "proof required")
	}
	if proof.Version != "" && proof.Version != models.ProofVersion {
		return dErrors.New(dErrors.CodeValidation, "unsupported proof version "+proof.Version)
	}
	sig, err := signer.DecodeSignature(proof.Signature)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeSignatureInvalid, "malformed proof signature")
	}
	recovered, err := signer.Recover([]byte(proof.Message()), sig)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeSignatureInvalid, "proof signature does not recover")
	}
	if !recovered.Equal(proof.Signer) {
		return dErrors.New(dErrors.CodeSignatureInvalid, "proof signature does not match its signer")
	}
	if !proof.Signer.Equal(expected) {
		return dErrors.New(dErrors.CodeSignerMismatch, "proof was signed by "+proof.Signer.String())
	}
	now := s.now()
	issued := proof.IssuedAt()
	if issued.After(now.Add(s.maxSkew)) {
		return dErrors.New(dErrors.CodeProofExpired, "proof timestamp is in the future")
	}
	if issued.Before(now.Add(-s.maxAge)) {
		return dErrors.New(dErrors.CodeProofExpired, "proof is older than the replay window")
	}
	return nil
}

// VerifyContent checks that proof.Data hashes to proof.DataHash.
func (s *Service) VerifyContent(proof *models.Proof) (bool, error) {
	if proof == nil || proof.Data == nil {
		return false, dErrors.New(dErrors.CodeBadRequest, "proof data required")
	}
	encoded, err := canonical.Marshal(proof.Data)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeSignatureInvalid, "proof data is not canonical JSON")
	}
	if signer.Keccak256Hex(encoded) != proof.DataHash {
		return false, dErrors.New(dErrors.CodeSignatureInvalid, "proof data does not match its hash")
	}
	return true, nil
}

// Disclose answers relyingParty's request for ids on behalf of holder. When
// the holder's consent does not cover every id the result lists the missing
// ids and carries no data. Otherwise the granted projection of the holder
// profile is signed, cached and returned.
func (s *Service) Disclose(ctx context.Context, holder domain.Address, relyingParty string, ids []category.ID) (*models.Disclosure, error) {
	if !holder.Equal(s.signer.Address()) {
		return nil, dErrors.New(dErrors.CodeForbidden, "agent discloses only for its own holder")
	}
	ids = category.Normalize(ids)
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one data category required")
	}
	if err := category.Validate(ids); err != nil {
		return nil, err
	}
	scope, err := consentmodels.NewScope(holder, relyingParty)
	if err != nil {
		return nil, err
	}

	out := &models.Disclosure{Holder: holder, Domain: scope.Domain, Requested: ids}
	rec, ok, err := s.consent.Lookup(ctx, holder, scope.Domain)
	if err != nil {
		return nil, err
	}
	if missing := missingFor(rec, ok, ids); len(missing) > 0 {
		out.Status = models.StatusNeedsConsent
		out.Missing = missing
		s.observeDisclosure(out.Status)
		s.emitAudit(ctx, audit.Event{
			Actor:    holder,
			Action:   audit.ActionDisclosureDenied,
			Domain:   scope.Domain,
			Decision: string(out.Status),
		})
		return out, nil
	}

	out.Status = models.StatusDisclosed
	if proof := s.cached(ctx, holder, scope.Domain); proof != nil {
		out.Proof = proof
		out.Cached = true
		s.observeDisclosure(out.Status)
		return out, nil
	}

	profile, err := s.profiles.Profile(ctx, holder)
	if err != nil {
		return nil, err
	}
	projection, err := project(profile.Fields(), holder, rec)
	if err != nil {
		return nil, err
	}
	proof, err := s.Prove(ctx, projection, projection.Fields(), s.signer)
	if err != nil {
		return nil, err
	}
	out.Proof = proof
	if s.cache != nil {
		if err := s.cache.Set(ctx, holder, scope.Domain, proof, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "failed to cache disclosure proof", "domain", scope.Domain, "error", err)
		}
	}
	s.observeDisclosure(out.Status)
	s.emitAudit(ctx, audit.Event{
		Actor:    holder,
		Action:   audit.ActionDisclosureIssued,
		Subject:  proof.DataHash,
		Domain:   scope.Domain,
		Decision: string(out.Status),
	})
	return out, nil
}

func missingFor(rec *consentmodels.Record, ok bool, ids []category.ID) []category.ID {
	if !ok || rec == nil {
		return ids
	}
	return rec.Missing(ids)
}

// cached returns a still-fresh cached proof, or nil.
func (s *Service) cached(ctx context.Context, holder domain.Address, relyingParty string) *models.Proof {
	if s.cache == nil {
		return nil
	}
	proof, err := s.cache.Get(ctx, holder, relyingParty)
	result := "hit"
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		result = "miss"
	case err != nil:
		result = "error"
		s.logger.WarnContext(ctx, "proof cache unavailable", "domain", relyingParty, "error", err)
	case s.now().Sub(proof.IssuedAt()) >= s.cacheTTL:
		result = "miss"
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheLookup(result)
	}
	if result != "hit" {
		return nil
	}
	return proof
}

func (s *Service) observeDisclosure(status models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementDisclosure(string(status))
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
