package memledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dim/internal/ledger"
	"dim/pkg/domain"
)

var (
	admin    = domain.MustAddress("0xa000000000000000000000000000000000000001")
	issuerA  = domain.MustAddress("0x1500000000000000000000000000000000000001")
	issuerB  = domain.MustAddress("0x1500000000000000000000000000000000000002")
	holderA  = domain.MustAddress("0x4000000000000000000000000000000000000001")
	stranger = domain.MustAddress("0x5000000000000000000000000000000000000001")
)

type MemLedgerSuite struct {
	suite.Suite
	ctx    context.Context
	ledger *Ledger
	clock  time.Time
}

func TestMemLedgerSuite(t *testing.T) {
	suite.Run(t, new(MemLedgerSuite))
}

func (s *MemLedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ledger = New(admin, WithClock(func() time.Time { return s.clock }))
}

func (s *MemLedgerSuite) registerAndApprove() {
	s.Require().NoError(s.ledger.RegisterIdentity(s.ctx, holderA, "ipfs://zmeta"))
	s.Require().NoError(s.ledger.ApproveIssuer(s.ctx, admin, issuerA))
}

func (s *MemLedgerSuite) TestRegisterIdentity() {
	s.Run("unknown address reads as unregistered", func() {
		id, err := s.ledger.GetIdentity(s.ctx, stranger)
		s.Require().NoError(err)
		s.False(id.Registered)
		s.Equal(stranger, id.Address)
	})

	s.Run("registers once", func() {
		s.Require().NoError(s.ledger.RegisterIdentity(s.ctx, holderA, "ipfs://zmeta"))
		id, err := s.ledger.GetIdentity(s.ctx, holderA)
		s.Require().NoError(err)
		s.True(id.Registered)
		s.Equal(holderA, id.Owner)
		s.Equal(domain.Locator("ipfs://zmeta"), id.MetadataLocator)
		s.Equal(s.clock, id.RegisteredAt)

		err = s.ledger.RegisterIdentity(s.ctx, holderA, "ipfs://zother")
		s.ErrorIs(err, ledger.ErrAlreadyRegistered)
	})
}

func (s *MemLedgerSuite) TestIssuerApproval() {
	s.Run("only admin toggles issuers", func() {
		s.ErrorIs(s.ledger.ApproveIssuer(s.ctx, stranger, issuerA), ledger.ErrNotAdmin)
		s.ErrorIs(s.ledger.RevokeIssuer(s.ctx, issuerA, issuerA), ledger.ErrNotAdmin)
	})

	s.Run("admin cannot approve itself", func() {
		s.ErrorIs(s.ledger.ApproveIssuer(s.ctx, admin, admin), ledger.ErrSelfApproval)
	})

	s.Run("approve and revoke are idempotent", func() {
		s.Require().NoError(s.ledger.ApproveIssuer(s.ctx, admin, issuerA))
		s.Require().NoError(s.ledger.ApproveIssuer(s.ctx, admin, issuerA))
		ok, err := s.ledger.IsApprovedIssuer(s.ctx, issuerA)
		s.Require().NoError(err)
		s.True(ok)

		s.Require().NoError(s.ledger.RevokeIssuer(s.ctx, admin, issuerA))
		s.Require().NoError(s.ledger.RevokeIssuer(s.ctx, admin, issuerA))
		ok, err = s.ledger.IsApprovedIssuer(s.ctx, issuerA)
		s.Require().NoError(err)
		s.False(ok)

		kinds := kindsOf(s.ledger.Events(0))
		s.Equal([]ledger.EventKind{ledger.KindIssuerApproved, ledger.KindIssuerRevoked}, kinds)
	})
}

func (s *MemLedgerSuite) TestRequestLifecycle() {
	s.Run("unregistered caller cannot request", func() {
		s.Require().NoError(s.ledger.ApproveIssuer(s.ctx, admin, issuerA))
		_, err := s.ledger.RequestCredential(s.ctx, stranger, issuerA, "ipfs://zreq")
		s.ErrorIs(err, ledger.ErrNotRegistered)
	})

	s.Run("unapproved issuer cannot be asked", func() {
		s.Require().NoError(s.ledger.RegisterIdentity(s.ctx, holderA, "ipfs://zmeta"))
		_, err := s.ledger.RequestCredential(s.ctx, holderA, issuerB, "ipfs://zreq")
		s.ErrorIs(err, ledger.ErrIssuerNotApproved)
	})

	s.Run("approve issues a credential to the requester", func() {
		ref, err := s.ledger.RequestCredential(s.ctx, holderA, issuerA, "ipfs://zreq")
		s.Require().NoError(err)
		s.Equal(ledger.RequestRef{Issuer: issuerA, Index: 0}, ref)

		req, err := s.ledger.GetRequest(s.ctx, ref)
		s.Require().NoError(err)
		s.Equal(ledger.RequestPending, req.Status())

		cred, err := s.ledger.ApproveRequest(s.ctx, issuerA, ref, "ipfs://zcred")
		s.Require().NoError(err)
		s.Equal(ledger.CredentialRef{Holder: holderA, Index: 0}, cred)

		req, err = s.ledger.GetRequest(s.ctx, ref)
		s.Require().NoError(err)
		s.Equal(ledger.RequestApproved, req.Status())
		s.Equal(&cred, req.Credential)

		creds, err := s.ledger.GetCredentials(s.ctx, holderA)
		s.Require().NoError(err)
		s.Require().Len(creds, 1)
		s.Equal(issuerA, creds[0].Issuer)
		s.True(creds[0].IsValid())
	})

	s.Run("second review is rejected and state is unchanged", func() {
		ref := ledger.RequestRef{Issuer: issuerA, Index: 0}
		err := s.ledger.RejectRequest(s.ctx, issuerA, ref)
		s.ErrorIs(err, ledger.ErrAlreadyReviewed)

		req, err := s.ledger.GetRequest(s.ctx, ref)
		s.Require().NoError(err)
		s.Equal(ledger.RequestApproved, req.Status())
	})

	s.Run("only the addressed issuer may review", func() {
		s.Require().NoError(s.ledger.ApproveIssuer(s.ctx, admin, issuerB))
		ref, err := s.ledger.RequestCredential(s.ctx, holderA, issuerA, "ipfs://zreq2")
		s.Require().NoError(err)
		s.ErrorIs(s.ledger.RejectRequest(s.ctx, issuerB, ref), ledger.ErrNotIssuer)
		s.ErrorIs(s.ledger.RejectRequest(s.ctx, admin, ref), ledger.ErrNotIssuer)
		s.Require().NoError(s.ledger.RejectRequest(s.ctx, issuerA, ref))
	})

	s.Run("unknown request", func() {
		_, err := s.ledger.GetRequest(s.ctx, ledger.RequestRef{Issuer: issuerA, Index: 99})
		s.ErrorIs(err, ledger.ErrRequestNotFound)
	})
}

func (s *MemLedgerSuite) TestRevokedIssuerCannotReview() {
	s.registerAndApprove()
	ref, err := s.ledger.RequestCredential(s.ctx, holderA, issuerA, "ipfs://zreq")
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.RevokeIssuer(s.ctx, admin, issuerA))

	_, err = s.ledger.ApproveRequest(s.ctx, issuerA, ref, "ipfs://zcred")
	s.ErrorIs(err, ledger.ErrNotIssuer)
}

func (s *MemLedgerSuite) TestRevokeCredential() {
	s.registerAndApprove()
	cred, err := s.ledger.IssueCredential(s.ctx, issuerA, holderA, "ipfs://zcred")
	s.Require().NoError(err)

	s.Run("stranger cannot revoke", func() {
		s.ErrorIs(s.ledger.RevokeCredential(s.ctx, stranger, cred), ledger.ErrNotIssuer)
	})

	s.Run("revoked is terminal", func() {
		s.clock = s.clock.Add(time.Hour)
		s.Require().NoError(s.ledger.RevokeCredential(s.ctx, admin, cred))
		s.ErrorIs(s.ledger.RevokeCredential(s.ctx, issuerA, cred), ledger.ErrAlreadyRevoked)

		got, err := s.ledger.GetCredential(s.ctx, cred)
		s.Require().NoError(err)
		s.True(got.Revoked)
		s.Require().NotNil(got.RevokedAt)
		s.Equal(s.clock, *got.RevokedAt)
	})

	s.Run("issuer revocation leaves credentials valid", func() {
		other, err := s.ledger.IssueCredential(s.ctx, issuerA, holderA, "ipfs://zcred2")
		s.Require().NoError(err)
		s.Require().NoError(s.ledger.RevokeIssuer(s.ctx, admin, issuerA))
		got, err := s.ledger.GetCredential(s.ctx, other)
		s.Require().NoError(err)
		s.True(got.IsValid())
	})
}

func (s *MemLedgerSuite) TestReadsReturnCopies() {
	s.registerAndApprove()
	cred, err := s.ledger.IssueCredential(s.ctx, issuerA, holderA, "ipfs://zcred")
	s.Require().NoError(err)

	creds, err := s.ledger.GetCredentials(s.ctx, holderA)
	s.Require().NoError(err)
	creds[0].Revoked = true

	got, err := s.ledger.GetCredential(s.ctx, cred)
	s.Require().NoError(err)
	s.False(got.Revoked)
}

func (s *MemLedgerSuite) TestHookAbortsWithoutStateChange() {
	boom := errors.New("injected")
	l := New(admin, WithHook(func(_ context.Context, op string) error {
		if op == "register_identity" {
			return boom
		}
		return nil
	}))
	s.ErrorIs(l.RegisterIdentity(s.ctx, holderA, "ipfs://zmeta"), boom)
	id, err := l.GetIdentity(s.ctx, holderA)
	s.Require().NoError(err)
	s.False(id.Registered)
	s.Empty(l.Events(0))
}

func (s *MemLedgerSuite) TestSubscribeDeliversInOrderAndRetries() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		got      []ledger.EventKind
		failOnce = true
	)
	done := make(chan struct{})
	handler := func(_ context.Context, env ledger.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		if env.Event.Kind() == ledger.KindIssuerApproved && failOnce {
			failOnce = false
			return errors.New("transient")
		}
		got = append(got, env.Event.Kind())
		if len(got) == 3 {
			close(done)
		}
		return nil
	}

	s.Require().NoError(s.ledger.RegisterIdentity(s.ctx, holderA, "ipfs://zmeta"))

	errCh := make(chan error, 1)
	go func() { errCh <- s.ledger.SubscribeFrom(ctx, 0, handler) }()

	s.Require().NoError(s.ledger.ApproveIssuer(s.ctx, admin, issuerA))
	_, err := s.ledger.RequestCredential(s.ctx, holderA, issuerA, "ipfs://zreq")
	s.Require().NoError(err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("events not delivered")
	}
	cancel()
	s.ErrorIs(<-errCh, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]ledger.EventKind{
		ledger.KindIdentityRegistered,
		ledger.KindIssuerApproved,
		ledger.KindRequestCreated,
	}, got)
}

func kindsOf(envs []ledger.Envelope) []ledger.EventKind {
	out := make([]ledger.EventKind, len(envs))
	for i, env := range envs {
		out[i] = env.Event.Kind()
	}
	return out
}
