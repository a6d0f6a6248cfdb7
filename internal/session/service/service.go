// Package service implements wallet login for relying parties: the agent
// hands out a single-use challenge, the wallet signs it, and a verified
// signature from a registered holder becomes a bearer-token session.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"dim/internal/audit"
	credentialmodels "dim/internal/credential/models"
	"dim/internal/sentinel"
	"dim/internal/session/metrics"
	"dim/internal/session/models"
	"dim/internal/session/store"
	"dim/internal/signer"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/requestcontext"
)

const (
	defaultChallengeTTL = 5 * time.Minute
	defaultMaxSkew      = 30 * time.Second
)

// Failure reasons recorded on audit events and metrics.
const (
	reasonChallenge = "challenge_unknown"
	reasonAccount   = "account_mismatch"
	reasonTimestamp = "timestamp_out_of_window"
	reasonSignature = "signature_invalid"
	reasonNotHolder = "not_registered"
)

type Service struct {
	store        Store
	profiles     ProfileSource
	tokens       TokenIssuer
	auditor      AuditPublisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	challengeTTL time.Duration
	maxSkew      time.Duration
	now          func() time.Time
}

type Option func(*Service)

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

// WithChallengeTTL sets how long a challenge may be redeemed.
func WithChallengeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.challengeTTL = d
		}
	}
}

// WithMaxSkew sets the tolerated wallet clock drift.
func WithMaxSkew(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.maxSkew = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st Store, profiles ProfileSource, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:        st,
		profiles:     profiles,
		tokens:       tokens,
		logger:       slog.Default(),
		challengeTTL: defaultChallengeTTL,
		maxSkew:      defaultMaxSkew,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge issues a fresh challenge for account.
func (s *Service) Challenge(ctx context.Context, account domain.Address) (*models.Challenge, error) {
	if account.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "account required")
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	c := models.NewChallenge(account, nonce, s.now(), s.challengeTTL)
	if err := s.store.PutChallenge(ctx, c); err != nil {
		return nil, storeError("failed to issue challenge", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementChallengesIssued()
	}
	return c, nil
}

// VerifyCommand is a signed challenge presented by a wallet.
type VerifyCommand struct {
	ChallengeID domain.ChallengeID
	Account     domain.Address
	SignedAt    time.Time
	Signature   string
}

// Verify redeems a signed challenge. The challenge is consumed whether or not
// the signature checks out, so a failed attempt cannot be replayed.
func (s *Service) Verify(ctx context.Context, cmd VerifyCommand) (*models.LoginResult, error) {
	start := time.Now()
	now := s.now()

	c, err := s.store.TakeChallenge(ctx, cmd.ChallengeID, now)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.authFailure(ctx, cmd.Account, reasonChallenge,
			dErrors.New(dErrors.CodeUnauthorized, "challenge is unknown, used or expired"))
	}
	if err != nil {
		return nil, storeError("failed to redeem challenge", err)
	}
	if !c.Account.Equal(cmd.Account) {
		return nil, s.authFailure(ctx, cmd.Account, reasonAccount,
			dErrors.New(dErrors.CodeUnauthorized, "challenge was issued to another account"))
	}
	if !s.inWindow(c, cmd.SignedAt, now) {
		return nil, s.authFailure(ctx, cmd.Account, reasonTimestamp,
			dErrors.New(dErrors.CodeUnauthorized, "signature timestamp outside the challenge window"))
	}
	sig, err := signer.DecodeSignature(cmd.Signature)
	if err != nil {
		return nil, s.authFailure(ctx, cmd.Account, reasonSignature,
			dErrors.New(dErrors.CodeUnauthorized, "malformed signature"))
	}
	if err := signer.Verify([]byte(c.Message(cmd.SignedAt)), sig, c.Account); err != nil {
		return nil, s.authFailure(ctx, cmd.Account, reasonSignature,
			dErrors.New(dErrors.CodeUnauthorized, "signature does not match account"))
	}

	profile, err := s.profiles.Profile(ctx, c.Account)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotRegistered) {
			return nil, s.authFailure(ctx, cmd.Account, reasonNotHolder, err)
		}
		return nil, err
	}

	session := &models.Session{
		ID:                domain.NewSessionID(),
		Account:           c.Account,
		Challenge:         c.Value,
		DeviceLabel:       requestcontext.Device(ctx),
		DeviceFingerprint: requestcontext.DeviceFingerprint(ctx),
		CreatedAt:         now.UTC(),
		ExpiresAt:         now.UTC().Add(s.tokens.TTL()),
	}
	tok, jti, err := s.tokens.Issue(session.Account, session.ID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}
	session.JTI = jti
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, storeError("failed to create session", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementSessionsCreated()
		s.metrics.ObserveLoginLatency(time.Since(start).Seconds())
	}
	s.emitAudit(ctx, audit.Event{
		Actor:   session.Account,
		Action:  audit.ActionSessionCreated,
		Subject: session.ID.String(),
		Device:  session.DeviceLabel,
	})
	s.logger.InfoContext(ctx, "session created",
		"session_id", session.ID.String(),
		"account", session.Account.String(),
		"device", session.DeviceLabel,
	)
	return &models.LoginResult{Token: tok, Session: session, Profile: profile}, nil
}

// inWindow accepts signing times from the challenge issue time to its expiry,
// widened by the clock skew and never later than now plus skew.
func (s *Service) inWindow(c *models.Challenge, signedAt, now time.Time) bool {
	if signedAt.IsZero() {
		return false
	}
	if signedAt.Before(c.IssuedAt.Add(-s.maxSkew)) {
		return false
	}
	if signedAt.After(c.ExpiresAt.Add(s.maxSkew)) {
		return false
	}
	return !signedAt.After(now.Add(s.maxSkew))
}

// IsTokenRevoked reports whether the token's session is gone, revoked or
// expired. It satisfies auth.RevocationChecker.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	session, err := s.store.FindByJTI(ctx, jti)
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, storeError("failed to check session", err)
	}
	return !session.IsActive(s.now()), nil
}

// Profile returns the current profile of a logged-in account.
func (s *Service) Profile(ctx context.Context, account domain.Address) (*credentialmodels.HolderData, error) {
	return s.profiles.Profile(ctx, account)
}

// Sessions lists the account's sessions, newest first.
func (s *Service) Sessions(ctx context.Context, account domain.Address) ([]*models.Session, error) {
	sessions, err := s.store.ListByAccount(ctx, account)
	if err != nil {
		return nil, storeError("failed to list sessions", err)
	}
	return sessions, nil
}

// Logout revokes one of account's sessions. Revoking a revoked session is a
// successful no-op.
func (s *Service) Logout(ctx context.Context, account domain.Address, id domain.SessionID) error {
	if id.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "session id required")
	}
	session, err := s.store.FindSession(ctx, id)
	if err != nil {
		return storeError("failed to find session", err)
	}
	if !session.Account.Equal(account) {
		return dErrors.New(dErrors.CodeForbidden, "session belongs to another account")
	}
	err = s.store.RevokeSession(ctx, id, s.now())
	if errors.Is(err, store.ErrSessionRevoked) {
		return nil
	}
	if err != nil {
		return storeError("failed to revoke session", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementSessionsRevoked()
	}
	s.logger.InfoContext(ctx, "session revoked", "session_id", id.String())
	return nil
}

// SweepExpired removes expired sessions and challenges.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storeError("failed to sweep sessions", err)
	}
	if s.metrics != nil {
		s.metrics.AddExpiredSwept(n)
	}
	return n, nil
}

func (s *Service) authFailure(ctx context.Context, account domain.Address, reason string, err error) error {
	if s.metrics != nil {
		s.metrics.IncrementAuthFailure(reason)
	}
	s.logger.WarnContext(ctx, "wallet login failed",
		"reason", reason,
		"account", account.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.Event{
		Actor:    account,
		Action:   audit.ActionAuthFailed,
		Decision: "denied",
		Reason:   reason,
		Device:   requestcontext.Device(ctx),
	})
	return err
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

// storeError translates a failed store call exactly once.
func storeError(msg string, err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, msg+": session store unavailable")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
