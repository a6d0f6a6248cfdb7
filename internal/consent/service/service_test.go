package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dim/internal/audit"
	"dim/internal/blobstore"
	"dim/internal/category"
	"dim/internal/consent/models"
	"dim/internal/consent/store"
	"dim/internal/platform/remote"
	"dim/internal/sentinel"
	"dim/internal/signer"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/testutil"
)

// flakyBlobs fails Put while down is set.
type flakyBlobs struct {
	*blobstore.InMemoryStore
	down atomic.Bool
	puts atomic.Int32
}

func (f *flakyBlobs) Put(ctx context.Context, data []byte) (domain.Locator, error) {
	f.puts.Add(1)
	if f.down.Load() {
		return "", sentinel.ErrUnavailable
	}
	return f.InMemoryStore.Put(ctx, data)
}

type proofSpy struct {
	mu     sync.Mutex
	scopes []string
}

func (p *proofSpy) Invalidate(_ context.Context, holder domain.Address, relyingParty string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scopes = append(p.scopes, holder.String()+"-"+relyingParty)
}

func (p *proofSpy) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.scopes)
}

type ConsentSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	blobs   *flakyBlobs
	proofs  *proofSpy
	audits  *audit.InMemoryStore
	service *Service
	signer  *signer.KeySigner
	holder  domain.Address
	clock   time.Time
}

func TestConsentSuite(t *testing.T) {
	suite.Run(t, new(ConsentSuite))
}

func (s *ConsentSuite) SetupTest() {
	s.store = store.New()
	s.blobs = &flakyBlobs{InMemoryStore: blobstore.NewInMemoryStore()}
	s.proofs = &proofSpy{}
	s.audits = audit.NewInMemoryStore()
	s.signer = testutil.NewActors().Holder
	s.holder = s.signer.Address()
	s.clock = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.service = New(s.store, s.blobs,
		WithProofInvalidator(s.proofs),
		WithAuditor(audit.NewPublisher(s.audits)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMirrorRetry(remote.RetryPolicy{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}),
		WithClock(func() time.Time { return s.clock }),
	)
}

func (s *ConsentSuite) tick() {
	s.clock = s.clock.Add(time.Second)
}

// sign returns the holder's consent signature at the suite clock.
func (s *ConsentSuite) sign(d string, ids ...category.ID) string {
	return signGrant(s.T(), s.signer, d, ids, s.clock)
}

func (s *ConsentSuite) grant(d string, ids ...category.ID) *models.GrantResult {
	res, err := s.service.Grant(context.Background(), s.holder, d, ids, s.clock, s.sign(d, ids...))
	s.Require().NoError(err)
	return res
}

func (s *ConsentSuite) TestGrantRequiresHolderSignature() {
	ctx := context.Background()
	ids := []category.ID{category.BasicIdentity}
	stranger := testutil.NewActors().Stranger

	s.Run("signature by another key", func() {
		sig := signGrant(s.T(), stranger, "bank.example", ids, s.clock)
		_, err := s.service.Grant(ctx, s.holder, "bank.example", ids, s.clock, sig)
		s.True(dErrors.HasCode(err, dErrors.CodeSignerMismatch))
	})

	s.Run("garbage signature", func() {
		_, err := s.service.Grant(ctx, s.holder, "bank.example", ids, s.clock, "0xsig")
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})

	s.Run("signature over other categories", func() {
		sig := s.sign("bank.example", category.WalletAddress)
		_, err := s.service.Grant(ctx, s.holder, "bank.example", ids, s.clock, sig)
		s.Require().Error(err)
	})

	s.Run("signature timestamp differs from the claimed grant time", func() {
		sig := s.sign("bank.example", ids...)
		_, err := s.service.Grant(ctx, s.holder, "bank.example", ids, s.clock.Add(time.Second), sig)
		s.Require().Error(err)
	})

	s.Run("stale signature cannot reinstate a grant", func() {
		old := s.clock.Add(-time.Hour)
		sig := signGrant(s.T(), s.signer, "bank.example", ids, old)
		_, err := s.service.Grant(ctx, s.holder, "bank.example", ids, old, sig)
		s.True(dErrors.HasCode(err, dErrors.CodeProofExpired))
	})

	_, ok, err := s.service.Lookup(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.False(ok, "rejected grants must not be stored")
}

func (s *ConsentSuite) TestGrantStoresSignedTime() {
	signedAt := s.clock.Add(-2 * time.Minute)
	ids := []category.ID{category.BasicIdentity}
	sig := signGrant(s.T(), s.signer, "bank.example", ids, signedAt)

	res, err := s.service.Grant(context.Background(), s.holder, "bank.example", ids, signedAt, sig)
	s.Require().NoError(err)
	s.Equal(signedAt, res.Record.GrantedAt)
	s.NoError(res.Record.VerifySignature())
}

func (s *ConsentSuite) TestGrantReplacesNotMerges() {
	ctx := context.Background()
	s.grant("bank.example", category.BasicIdentity, category.IssuerInformation)
	s.tick()
	s.grant("bank.example", category.CredentialsCount)

	rec, ok, err := s.service.Lookup(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal([]category.ID{category.CredentialsCount}, rec.Categories)

	granted, err := s.service.IsGranted(ctx, s.holder, "bank.example", category.BasicIdentity)
	s.Require().NoError(err)
	s.False(granted)
}

func (s *ConsentSuite) TestGrantNormalizesInput() {
	res := s.grant("  Bank.Example ", category.WalletAddress, category.BasicIdentity, category.WalletAddress)
	s.Equal("bank.example", res.Record.Domain)
	s.Equal([]category.ID{category.BasicIdentity, category.WalletAddress}, res.Record.Categories)
}

func (s *ConsentSuite) TestGrantReturnsDeterministicLocatorAndMirrors() {
	ctx := context.Background()
	res := s.grant("bank.example", category.BasicIdentity)
	s.Nil(res.Warning)

	doc, err := res.Record.Encode()
	s.Require().NoError(err)
	s.Equal(blobstore.LocatorFor(doc), res.Locator)

	raw, err := s.blobs.Get(ctx, res.Locator)
	s.Require().NoError(err)
	decoded, err := models.DecodeDocument(raw)
	s.Require().NoError(err)
	s.Equal(res.Record.Categories, decoded.Categories)

	rec, _, err := s.service.Lookup(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.Equal(models.MirrorDone, rec.MirrorState())
	s.Equal(1, s.proofs.count())
}

func (s *ConsentSuite) TestUnknownCategoryLeavesPriorRecord() {
	ctx := context.Background()
	s.grant("bank.example", category.BasicIdentity)

	ids := []category.ID{category.CredentialsCount, "passport_scan"}
	_, err := s.service.Grant(ctx, s.holder, "bank.example", ids, s.clock, s.sign("bank.example", ids...))
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownCategory))

	rec, ok, err := s.service.Lookup(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal([]category.ID{category.BasicIdentity}, rec.Categories)
}

func (s *ConsentSuite) TestAbandonedGrantLeavesPriorRecord() {
	s.grant("bank.example", category.BasicIdentity)
	s.tick()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.service.Grant(ctx, s.holder, "bank.example", []category.ID{category.IssuerInformation}, s.clock, s.sign("bank.example", category.IssuerInformation))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	rec, ok, err := s.service.Lookup(context.Background(), s.holder, "bank.example")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal([]category.ID{category.BasicIdentity}, rec.Categories)
}

func (s *ConsentSuite) TestMirrorFailureIsAWarning() {
	ctx := context.Background()
	s.blobs.down.Store(true)

	res, err := s.service.Grant(ctx, s.holder, "bank.example", []category.ID{category.BasicIdentity}, s.clock, s.sign("bank.example", category.BasicIdentity))
	s.Require().NoError(err, "local grant must not depend on the mirror")
	s.Require().Error(res.Warning)
	s.True(dErrors.HasCode(res.Warning, dErrors.CodeStoreUnavailable))
	s.NotEmpty(res.Locator)

	rec, ok, err := s.service.Lookup(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(models.MirrorPending, rec.MirrorState())

	s.blobs.down.Store(false)
	n, err := s.service.MirrorPending(ctx, s.holder)
	s.Require().NoError(err)
	s.Equal(1, n)

	raw, err := s.blobs.Get(ctx, res.Locator)
	s.Require().NoError(err)
	s.NotEmpty(raw)

	n, err = s.service.MirrorPending(ctx, s.holder)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ConsentSuite) TestRevokeIsForwardOnly() {
	ctx := context.Background()

	removed, err := s.service.Revoke(ctx, s.holder, "nobody.example")
	s.Require().NoError(err, "revoking a missing record is a no-op")
	s.False(removed)

	s.grant("bank.example", category.BasicIdentity)
	removed, err = s.service.Revoke(ctx, s.holder, "BANK.example")
	s.Require().NoError(err)
	s.True(removed)

	_, ok, err := s.service.Lookup(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.False(ok)

	removed, err = s.service.Revoke(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.False(removed)
}

func (s *ConsentSuite) TestIsGranted() {
	ctx := context.Background()
	s.grant("bank.example", category.BasicIdentity)

	ok, err := s.service.IsGranted(ctx, s.holder, "bank.example", category.BasicIdentity)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.service.IsGranted(ctx, s.holder, "shop.example", category.BasicIdentity)
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.service.IsGranted(ctx, s.holder, "bank.example", "biometrics")
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownCategory))
}

func (s *ConsentSuite) TestList() {
	s.grant("shop.example", category.BasicIdentity)
	s.grant("bank.example", category.WalletAddress)

	recs, err := s.service.List(context.Background(), s.holder)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal("bank.example", recs[0].Domain)

	other, err := s.service.List(context.Background(), testutil.AddressN(6))
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *ConsentSuite) TestRestore() {
	ctx := context.Background()
	res := s.grant("bank.example", category.BasicIdentity, category.CredentialsCount)
	_, err := s.service.Revoke(ctx, s.holder, "bank.example")
	s.Require().NoError(err)

	s.Run("reinstalls a revoked record from its mirror", func() {
		rec, err := s.service.Restore(ctx, s.holder, res.Locator)
		s.Require().NoError(err)
		s.Equal(res.Record.Categories, rec.Categories)
		s.Equal(res.Locator, rec.Locator)

		ok, err := s.service.IsGranted(ctx, s.holder, "bank.example", category.CredentialsCount)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("restoring the current record is a no-op", func() {
		_, err := s.service.Restore(ctx, s.holder, res.Locator)
		s.Require().NoError(err)
	})

	s.Run("another holder's document is refused", func() {
		_, err := s.service.Restore(ctx, testutil.NewActors().Stranger.Address(), res.Locator)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("an older document never overwrites a newer grant", func() {
		s.tick()
		s.grant("bank.example", category.WalletAddress)
		_, err := s.service.Restore(ctx, s.holder, res.Locator)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("missing blob is not found", func() {
		_, err := s.service.Restore(ctx, s.holder, blobstore.LocatorFor([]byte("nothing")))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("document with a forged signature fails closed", func() {
		scope, err := models.NewScope(s.holder, "forged.example")
		s.Require().NoError(err)
		forged, err := models.NewRecord(scope, []category.ID{category.BasicIdentity}, s.clock, "0x"+strings.Repeat("ab", 65))
		s.Require().NoError(err)
		doc, err := forged.Encode()
		s.Require().NoError(err)
		loc, err := s.blobs.Put(ctx, doc)
		s.Require().NoError(err)

		_, err = s.service.Restore(ctx, s.holder, loc)
		s.Require().Error(err)
		_, ok, err := s.service.Lookup(ctx, s.holder, "forged.example")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("non-document blob fails closed", func() {
		loc, err := s.blobs.Put(ctx, []byte(`{"version":"1.0","userAccount":"`+s.holder.String()+`"}`))
		s.Require().NoError(err)
		_, err = s.service.Restore(ctx, s.holder, loc)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ConsentSuite) TestConcurrentGrantsNeverMerge() {
	ctx := context.Background()
	sets := [][]category.ID{
		{category.BasicIdentity},
		{category.CredentialsCount, category.RegistrationDate},
		{category.IssuerInformation},
		{category.SpecificCredentials, category.WalletAddress},
	}

	sigs := make([]string, len(sets))
	for i, ids := range sets {
		sigs[i] = s.sign("bank.example", ids...)
	}

	result := testutil.RunConcurrentCtx(ctx, 24, func(ctx context.Context, idx int) error {
		_, err := s.service.Grant(ctx, s.holder, "bank.example", sets[idx%len(sets)], s.clock, sigs[idx%len(sets)])
		return err
	})
	s.Equal(int32(24), result.Successes)

	rec, ok, err := s.service.Lookup(ctx, s.holder, "bank.example")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Contains(sets, rec.Categories, "final record must equal exactly one grant")
}

func (s *ConsentSuite) TestAuditTrail() {
	ctx := context.Background()
	s.grant("bank.example", category.BasicIdentity)
	s.tick()
	s.grant("bank.example", category.WalletAddress)
	_, err := s.service.Revoke(ctx, s.holder, "bank.example")
	s.Require().NoError(err)

	events, err := s.audits.ListByActor(ctx, s.holder)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(audit.ActionConsentGranted, events[0].Action)
	s.Equal("granted", events[0].Decision)
	s.Equal("replaced", events[1].Decision)
	s.Equal(audit.ActionConsentRevoked, events[2].Action)
}

func signGrant(t *testing.T, s signer.Signer, d string, ids []category.ID, at time.Time) string {
	t.Helper()
	scope, err := models.NewScope(s.Address(), d)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := models.Sign(context.Background(), s, scope, ids, at)
	if err != nil {
		t.Fatal(err)
	}
	return sig
}
