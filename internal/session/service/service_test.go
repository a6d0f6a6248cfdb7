package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dim/internal/audit"
	credentialmodels "dim/internal/credential/models"
	"dim/internal/session/models"
	"dim/internal/session/store"
	"dim/internal/session/token"
	"dim/internal/signer"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/requestcontext"
	"dim/pkg/testutil"
)

type fakeProfiles struct {
	registered map[domain.Address]bool
}

func (f *fakeProfiles) Profile(_ context.Context, holder domain.Address) (*credentialmodels.HolderData, error) {
	if !f.registered[holder] {
		return nil, dErrors.New(dErrors.CodeNotRegistered, "holder is not registered")
	}
	return &credentialmodels.HolderData{Account: holder, Registered: true, Name: "Alice"}, nil
}

type SessionSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	tokens  *token.Service
	audits  *audit.InMemoryStore
	service *Service
	wallet  *signer.KeySigner
	other   *signer.KeySigner
	clock   time.Time
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	actors := testutil.NewActors()
	s.wallet = actors.Holder
	s.other = actors.Stranger
	s.store = store.NewInMemory()
	s.tokens = token.NewService("test-key", "dim-test", "relying-parties", time.Hour)
	s.audits = audit.NewInMemoryStore()
	s.clock = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	profiles := &fakeProfiles{registered: map[domain.Address]bool{
		s.wallet.Address(): true,
	}}
	s.service = New(s.store, profiles, s.tokens,
		WithAuditor(audit.NewPublisher(s.audits)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithChallengeTTL(time.Minute),
		WithMaxSkew(5*time.Second),
		WithClock(func() time.Time { return s.clock }),
	)
}

// signed asks for a challenge and signs it with w at the current clock.
func (s *SessionSuite) signed(w *signer.KeySigner, account domain.Address) VerifyCommand {
	ctx := context.Background()
	c, err := s.service.Challenge(ctx, account)
	s.Require().NoError(err)
	sig, err := w.Sign(ctx, []byte(c.Message(s.clock)))
	s.Require().NoError(err)
	return VerifyCommand{
		ChallengeID: c.ID,
		Account:     account,
		SignedAt:    s.clock,
		Signature:   signer.EncodeSignature(sig),
	}
}

func (s *SessionSuite) TestChallengeShape() {
	c, err := s.service.Challenge(context.Background(), s.wallet.Address())
	s.Require().NoError(err)
	s.Contains(c.Value, models.ChallengePrefix)
	s.Equal(s.clock, c.IssuedAt)
	s.Equal(s.clock.Add(time.Minute), c.ExpiresAt)
	s.Contains(c.Message(s.clock), "DIM Authentication\nChallenge: "+c.Value)
	s.Contains(c.Message(s.clock), "Account: "+s.wallet.Address().String())

	again, err := s.service.Challenge(context.Background(), s.wallet.Address())
	s.Require().NoError(err)
	s.NotEqual(c.Value, again.Value)

	_, err = s.service.Challenge(context.Background(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *SessionSuite) TestLoginIssuesValidToken() {
	ctx := requestcontext.WithDevice(context.Background(), "Chrome on macOS")
	cmd := s.signed(s.wallet, s.wallet.Address())

	res, err := s.service.Verify(ctx, cmd)
	s.Require().NoError(err)
	s.Equal("Alice", res.Profile.Name)
	s.Equal("Chrome on macOS", res.Session.DeviceLabel)
	s.Equal(s.clock.Add(time.Hour), res.Session.ExpiresAt)

	claims, err := s.tokens.ValidateToken(res.Token)
	s.Require().NoError(err)
	s.Equal(s.wallet.Address().String(), claims.Subject)
	s.Equal(res.Session.ID.String(), claims.SessionID)
	s.Equal(res.Session.JTI, claims.JTI)

	revoked, err := s.service.IsTokenRevoked(ctx, claims.JTI)
	s.Require().NoError(err)
	s.False(revoked)

	events, err := s.audits.ListByActor(ctx, s.wallet.Address())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionSessionCreated, events[0].Action)
	s.Equal("Chrome on macOS", events[0].Device)
}

func (s *SessionSuite) TestChallengeIsSingleUse() {
	ctx := context.Background()
	cmd := s.signed(s.wallet, s.wallet.Address())
	_, err := s.service.Verify(ctx, cmd)
	s.Require().NoError(err)

	_, err = s.service.Verify(ctx, cmd)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *SessionSuite) TestFailedAttemptBurnsChallenge() {
	ctx := context.Background()
	cmd := s.signed(s.wallet, s.wallet.Address())
	good := cmd.Signature
	cmd.Signature = "0x" + good[4:] + "00"

	_, err := s.service.Verify(ctx, cmd)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	cmd.Signature = good
	_, err = s.service.Verify(ctx, cmd)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *SessionSuite) TestVerifyRejections() {
	ctx := context.Background()

	s.Run("unknown challenge", func() {
		cmd := s.signed(s.wallet, s.wallet.Address())
		cmd.ChallengeID = domain.NewChallengeID()
		_, err := s.service.Verify(ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("expired challenge", func() {
		cmd := s.signed(s.wallet, s.wallet.Address())
		s.clock = s.clock.Add(2 * time.Minute)
		defer func() { s.clock = s.clock.Add(-2 * time.Minute) }()
		_, err := s.service.Verify(ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("signed by another key", func() {
		cmd := s.signed(s.other, s.wallet.Address())
		_, err := s.service.Verify(ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("presented for another account", func() {
		cmd := s.signed(s.wallet, s.wallet.Address())
		cmd.Account = s.other.Address()
		_, err := s.service.Verify(ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("timestamp before challenge", func() {
		c, err := s.service.Challenge(ctx, s.wallet.Address())
		s.Require().NoError(err)
		at := s.clock.Add(-time.Minute)
		sig, err := s.wallet.Sign(ctx, []byte(c.Message(at)))
		s.Require().NoError(err)
		_, err = s.service.Verify(ctx, VerifyCommand{
			ChallengeID: c.ID, Account: s.wallet.Address(), SignedAt: at, Signature: signer.EncodeSignature(sig),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("timestamp in the future", func() {
		c, err := s.service.Challenge(ctx, s.wallet.Address())
		s.Require().NoError(err)
		at := s.clock.Add(30 * time.Second)
		sig, err := s.wallet.Sign(ctx, []byte(c.Message(at)))
		s.Require().NoError(err)
		_, err = s.service.Verify(ctx, VerifyCommand{
			ChallengeID: c.ID, Account: s.wallet.Address(), SignedAt: at, Signature: signer.EncodeSignature(sig),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("signed time differs from presented time", func() {
		cmd := s.signed(s.wallet, s.wallet.Address())
		cmd.SignedAt = cmd.SignedAt.Add(time.Millisecond)
		_, err := s.service.Verify(ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("malformed signature", func() {
		cmd := s.signed(s.wallet, s.wallet.Address())
		cmd.Signature = "0xzz"
		_, err := s.service.Verify(ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unregistered wallet", func() {
		cmd := s.signed(s.other, s.other.Address())
		_, err := s.service.Verify(ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	failures, err := s.audits.ListByActor(ctx, s.wallet.Address())
	s.Require().NoError(err)
	s.NotEmpty(failures)
	for _, e := range failures {
		s.Equal(audit.ActionAuthFailed, e.Action)
		s.NotEmpty(e.Reason)
	}
}

func (s *SessionSuite) TestLogout() {
	ctx := context.Background()
	res, err := s.service.Verify(ctx, s.signed(s.wallet, s.wallet.Address()))
	s.Require().NoError(err)

	err = s.service.Logout(ctx, s.other.Address(), res.Session.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Require().NoError(s.service.Logout(ctx, s.wallet.Address(), res.Session.ID))
	s.Require().NoError(s.service.Logout(ctx, s.wallet.Address(), res.Session.ID), "second logout is a no-op")

	revoked, err := s.service.IsTokenRevoked(ctx, res.Session.JTI)
	s.Require().NoError(err)
	s.True(revoked)

	err = s.service.Logout(ctx, s.wallet.Address(), domain.NewSessionID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	err = s.service.Logout(ctx, s.wallet.Address(), domain.SessionID{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *SessionSuite) TestExpiryAndSweep() {
	ctx := context.Background()
	res, err := s.service.Verify(ctx, s.signed(s.wallet, s.wallet.Address()))
	s.Require().NoError(err)

	unknown, err := s.service.IsTokenRevoked(ctx, "never-issued")
	s.Require().NoError(err)
	s.True(unknown)

	s.clock = s.clock.Add(2 * time.Hour)
	expired, err := s.service.IsTokenRevoked(ctx, res.Session.JTI)
	s.Require().NoError(err)
	s.True(expired)

	n, err := s.service.SweepExpired(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	sessions, err := s.service.Sessions(ctx, s.wallet.Address())
	s.Require().NoError(err)
	s.Empty(sessions)
}

func (s *SessionSuite) TestSessionsNewestFirst() {
	ctx := context.Background()
	first, err := s.service.Verify(ctx, s.signed(s.wallet, s.wallet.Address()))
	s.Require().NoError(err)
	s.clock = s.clock.Add(time.Second)
	second, err := s.service.Verify(ctx, s.signed(s.wallet, s.wallet.Address()))
	s.Require().NoError(err)

	sessions, err := s.service.Sessions(ctx, s.wallet.Address())
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(second.Session.ID, sessions[0].ID)
	s.Equal(first.Session.ID, sessions[1].ID)
}
