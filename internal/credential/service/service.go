// Package service implements the credential lifecycle: identity registration,
// issuer approval, credential requests and their review, and revocation.
//
// Every ledger call runs under a per-call timeout. A mutation that times out
// is reported as indeterminate because it may still land; callers re-read
// state before retrying. Idempotency guards whose target state already holds
// (approve an approved issuer, revoke a revoked credential, lose a review
// race) succeed with OutcomeNoOp or OutcomeSuperseded.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"dim/internal/audit"
	"dim/internal/credential/metrics"
	"dim/internal/ledger"
	"dim/internal/platform/tracer"
	"dim/internal/sentinel"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

const defaultLedgerTimeout = 10 * time.Second

// Service coordinates lifecycle calls against the ledger.
type Service struct {
	ledger        Ledger
	view          View
	blobs         BlobReader
	auditor       AuditPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        tracer.Tracer
	ledgerTimeout time.Duration
	now           func() time.Time

	admin atomic.Pointer[domain.Address]
}

type Option func(*Service)

func WithBlobReader(b BlobReader) Option {
	return func(s *Service) {
		s.blobs = b
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

// WithLedgerTimeout bounds each ledger call that has no caller deadline.
func WithLedgerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ledgerTimeout = d
		}
	}
}

// WithClock overrides the timestamp source for local snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(l Ledger, v View, opts ...Option) *Service {
	s := &Service{
		ledger:        l,
		view:          v,
		logger:        slog.Default(),
		ledgerTimeout: defaultLedgerTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = tracer.OrNoop(s.tracer)
	return s
}

// call runs one ledger call under the ledger timeout and a span.
func (s *Service) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ledgerTimeout)
		defer cancel()
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerCall, tracer.String(tracer.AttrOperation, op))
	start := time.Now()
	err := fn(ctx)
	s.observeLedgerLatency(op, time.Since(start))
	span.End(err)
	return err
}

// adminAddress returns the ledger admin. The admin never changes, so the
// first successful read is kept.
func (s *Service) adminAddress(ctx context.Context) (domain.Address, error) {
	if a := s.admin.Load(); a != nil {
		return *a, nil
	}
	var admin domain.Address
	err := s.call(ctx, "admin", func(ctx context.Context) error {
		var err error
		admin, err = s.ledger.Admin(ctx)
		return err
	})
	if err != nil {
		return "", s.readError("read admin", err)
	}
	s.admin.Store(&admin)
	return admin, nil
}

// writeError translates a failed mutation exactly once.
func (s *Service) writeError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeIndeterminate, msg+": outcome unknown, re-read state before retrying")
	}
	return translate(msg, err)
}

// readError translates a failed read exactly once.
func (s *Service) readError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg+": ledger timeout")
	}
	return translate(msg, err)
}

func translate(msg string, err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotAdmin), errors.Is(err, ledger.ErrNotIssuer),
		errors.Is(err, ledger.ErrSelfApproval), errors.Is(err, sentinel.ErrForbidden):
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, msg+": caller is not authorized")
	case errors.Is(err, ledger.ErrNotRegistered):
		return dErrors.Wrap(err, dErrors.CodeNotRegistered, msg+": identity is not registered")
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		return dErrors.Wrap(err, dErrors.CodeAlreadyRegistered, msg+": identity already registered")
	case errors.Is(err, ledger.ErrAlreadyReviewed):
		return dErrors.Wrap(err, dErrors.CodeAlreadyReviewed, msg+": request already reviewed")
	case errors.Is(err, ledger.ErrAlreadyRevoked):
		return dErrors.Wrap(err, dErrors.CodeAlreadyRevoked, msg+": credential already revoked")
	case errors.Is(err, ledger.ErrIssuerNotApproved):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg+": issuer is not approved")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg+": not found")
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, msg+": rejected by ledger")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, msg+": ledger unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
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

// observe records the result of an operation and logs failures.
func (s *Service) observe(ctx context.Context, op string, outcome string, err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		if s.metrics != nil {
			s.metrics.IncrementFailure(op, string(code))
		}
		level := slog.LevelInfo
		if dErrors.IsTransient(err) || code == dErrors.CodeInternal {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "credential operation failed", "operation", op, "code", code, "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementOperation(op, outcome)
	}
}

func (s *Service) observeLedgerLatency(op string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveLedgerLatency(op, d.Seconds())
	}
}
