package httpledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"dim/internal/ledger"
	"dim/internal/ledger/ledgerapi"
	"dim/internal/ledger/memledger"
	"dim/internal/platform/remote"
	"dim/internal/sentinel"
	"dim/internal/signer"
	"dim/pkg/domain"
	"dim/pkg/testutil"
)

type ClientSuite struct {
	suite.Suite
	ctx    context.Context
	actors testutil.Actors
	ledger *memledger.Ledger
	server *httptest.Server
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
	s.actors = testutil.NewActors()
	s.ledger = memledger.New(s.actors.Admin.Address())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(ledgerapi.RequireSignedCall(logger, ledgerapi.DefaultMaxSkew, time.Now))
	ledgerapi.NewHandler(s.ledger, logger).Register(r)
	s.server = httptest.NewServer(r)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

// impersonator signs with its own key while claiming another address.
type impersonator struct {
	signer.Signer
	as domain.Address
}

func (i *impersonator) Address() domain.Address { return i.as }

func (s *ClientSuite) TestCredentialFlowOverHTTP() {
	admin := New(Config{BaseURL: s.server.URL}, s.actors.Admin)
	issuer := New(Config{BaseURL: s.server.URL}, s.actors.Issuer)
	holder := New(Config{BaseURL: s.server.URL}, s.actors.Holder)

	gotAdmin, err := holder.Admin(s.ctx)
	s.Require().NoError(err)
	s.Equal(s.actors.Admin.Address(), gotAdmin)

	s.Require().NoError(holder.RegisterIdentity(s.ctx, s.actors.Holder.Address(), "ipfs://zmeta"))
	s.Require().NoError(admin.ApproveIssuer(s.ctx, s.actors.Admin.Address(), s.actors.Issuer.Address()))

	approved, err := holder.IsApprovedIssuer(s.ctx, s.actors.Issuer.Address())
	s.Require().NoError(err)
	s.True(approved)

	ref, err := holder.RequestCredential(s.ctx, s.actors.Holder.Address(), s.actors.Issuer.Address(), "ipfs://zreq")
	s.Require().NoError(err)

	pending, err := issuer.GetCredentialRequests(s.ctx, s.actors.Issuer.Address())
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(ledger.RequestPending, pending[0].Status())

	cred, err := issuer.ApproveRequest(s.ctx, s.actors.Issuer.Address(), ref, "ipfs://zcred")
	s.Require().NoError(err)

	_, err = issuer.ApproveRequest(s.ctx, s.actors.Issuer.Address(), ref, "ipfs://zcred")
	s.ErrorIs(err, ledger.ErrAlreadyReviewed)

	got, err := holder.GetCredential(s.ctx, cred)
	s.Require().NoError(err)
	s.Equal(s.actors.Issuer.Address(), got.Issuer)

	s.Require().NoError(issuer.RevokeCredential(s.ctx, s.actors.Issuer.Address(), cred))
	s.ErrorIs(admin.RevokeCredential(s.ctx, s.actors.Admin.Address(), cred), ledger.ErrAlreadyRevoked)

	id, err := holder.GetIdentity(s.ctx, s.actors.Holder.Address())
	s.Require().NoError(err)
	s.True(id.Registered)
}

func (s *ClientSuite) TestFaultsMapToLedgerErrors() {
	stranger := New(Config{BaseURL: s.server.URL}, s.actors.Stranger)

	err := stranger.ApproveIssuer(s.ctx, s.actors.Stranger.Address(), s.actors.Issuer.Address())
	s.ErrorIs(err, ledger.ErrNotAdmin)

	_, err = stranger.RequestCredential(s.ctx, s.actors.Stranger.Address(), s.actors.Issuer.Address(), "ipfs://zreq")
	s.ErrorIs(err, ledger.ErrNotRegistered)

	_, err = stranger.GetRequest(s.ctx, ledger.RequestRef{Issuer: s.actors.Issuer.Address(), Index: 4})
	s.ErrorIs(err, ledger.ErrRequestNotFound)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ClientSuite) TestCannotSubmitForAnotherCaller() {
	holder := New(Config{BaseURL: s.server.URL}, s.actors.Holder)
	err := holder.ApproveIssuer(s.ctx, s.actors.Admin.Address(), s.actors.Issuer.Address())
	s.ErrorIs(err, sentinel.ErrForbidden)

	ok, err := holder.IsApprovedIssuer(s.ctx, s.actors.Issuer.Address())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ClientSuite) TestNodeRejectsForgedAndStaleCalls() {
	s.Run("signature from another key", func() {
		forged := &impersonator{Signer: s.actors.Stranger, as: s.actors.Admin.Address()}
		c := New(Config{BaseURL: s.server.URL}, forged)
		err := c.ApproveIssuer(s.ctx, s.actors.Admin.Address(), s.actors.Issuer.Address())
		s.ErrorIs(err, sentinel.ErrForbidden)
	})

	s.Run("timestamp outside skew", func() {
		stale := New(Config{BaseURL: s.server.URL, Now: func() time.Time {
			return time.Now().Add(-time.Hour)
		}}, s.actors.Holder)
		err := stale.RegisterIdentity(s.ctx, s.actors.Holder.Address(), "ipfs://zmeta")
		s.ErrorIs(err, sentinel.ErrForbidden)
	})

	s.Run("replayed call", func() {
		fixed := time.Now()
		c := New(Config{BaseURL: s.server.URL, Now: func() time.Time { return fixed }}, s.actors.Admin)
		s.Require().NoError(c.RevokeIssuer(s.ctx, s.actors.Admin.Address(), s.actors.Issuer.Address()))
		err := c.RevokeIssuer(s.ctx, s.actors.Admin.Address(), s.actors.Issuer.Address())
		s.ErrorIs(err, sentinel.ErrForbidden)
	})
}

func TestReadsRetryAndWritesDoNot(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	actors := testutil.NewActors()
	c := New(Config{
		BaseURL: srv.URL,
		Retry:   &remote.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}, actors.Holder)

	_, err := c.GetIdentity(context.Background(), actors.Holder.Address())
	if !errors.Is(err, sentinel.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 read attempts, got %d", got)
	}

	calls.Store(0)
	err = c.RegisterIdentity(context.Background(), actors.Holder.Address(), "ipfs://zmeta")
	if !errors.Is(err, sentinel.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single write attempt, got %d", got)
	}
}

func TestWriteTimeoutIsDeadlineExceeded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	actors := testutil.NewActors()
	c := New(Config{BaseURL: srv.URL}, actors.Holder)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.RegisterIdentity(ctx, actors.Holder.Address(), "ipfs://zmeta")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
