package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dim/internal/blobstore"
	"dim/internal/category"
	consentmodels "dim/internal/consent/models"
	consentservice "dim/internal/consent/service"
	"dim/internal/consent/store"
	credentialmodels "dim/internal/credential/models"
	"dim/internal/disclosure/cache"
	"dim/internal/disclosure/models"
	"dim/internal/ledger"
	"dim/internal/signer"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/testutil"
)

type fakeProfiles struct {
	data  *credentialmodels.HolderData
	calls int
}

func (f *fakeProfiles) Profile(_ context.Context, holder domain.Address) (*credentialmodels.HolderData, error) {
	f.calls++
	if f.data == nil || !f.data.Account.Equal(holder) {
		return nil, dErrors.New(dErrors.CodeNotRegistered, "holder is not registered")
	}
	d := *f.data
	return &d, nil
}

type DisclosureSuite struct {
	suite.Suite
	actors   testutil.Actors
	holder   *signer.KeySigner
	consent  *consentservice.Service
	profiles *fakeProfiles
	cache    *cache.MemoryCache
	service  *Service
	now      time.Time
}

func TestDisclosureSuite(t *testing.T) {
	suite.Run(t, new(DisclosureSuite))
}

func (s *DisclosureSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.actors = testutil.NewActors()
	s.holder = s.actors.Holder
	s.now = time.Now().UTC().Truncate(time.Millisecond)
	s.cache = cache.NewMemoryCache()
	s.consent = consentservice.New(store.New(), blobstore.NewInMemoryStore(),
		consentservice.WithProofInvalidator(s.cache),
		consentservice.WithLogger(logger),
		consentservice.WithClock(func() time.Time { return s.now }),
	)

	registered := s.now.Add(-24 * time.Hour)
	s.profiles = &fakeProfiles{data: &credentialmodels.HolderData{
		Account:         s.holder.Address(),
		Registered:      true,
		Name:            "Ada Lovelace",
		ProfileImage:    "ipfs://avatar",
		CredentialCount: 1,
		Credentials: []ledger.Credential{{
			Ref:         ledger.CredentialRef{Holder: s.holder.Address(), Index: 0},
			Issuer:      s.actors.Issuer.Address(),
			DataLocator: "ipfs://degree",
			IssuedAt:    registered,
		}},
		IssuerDetails:    []credentialmodels.IssuerDetail{{Issuer: s.actors.Issuer.Address(), Type: "verified", Approved: true}},
		RegistrationDate: &registered,
	}}

	s.service = New(s.consent, s.profiles, s.holder,
		WithProofCache(s.cache),
		WithLogger(logger),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *DisclosureSuite) grant(d string, ids ...category.ID) {
	scope, err := consentmodels.NewScope(s.holder.Address(), d)
	s.Require().NoError(err)
	sig, err := consentmodels.Sign(context.Background(), s.holder, scope, ids, s.now)
	s.Require().NoError(err)
	_, err = s.consent.Grant(context.Background(), s.holder.Address(), d, ids, s.now, sig)
	s.Require().NoError(err)
}

func (s *DisclosureSuite) TestProjectDefaultDeny() {
	ctx := context.Background()
	inputs := []map[string]any{
		nil,
		{},
		s.profiles.data.Fields(),
		{"name": "Eve", "credentials": []string{"x"}, "secret": 42},
	}
	want := models.Projection{"account": s.holder.Address().String(), "consentGiven": false}
	for _, full := range inputs {
		got, err := s.service.Project(ctx, full, s.holder.Address(), "bank.example")
		s.Require().NoError(err)
		s.Equal(want, got)
	}

	s.grant("bank.example", category.BasicIdentity)
	for _, d := range []string{"", "   ", "bank.example/login", "bank example"} {
		got, err := s.service.Project(ctx, s.profiles.data.Fields(), s.holder.Address(), d)
		s.Require().NoError(err, "domain %q", d)
		s.Equal(want, got, "domain %q", d)
	}
}

func (s *DisclosureSuite) TestBankScenario() {
	ctx := context.Background()
	s.grant("bank.example", category.BasicIdentity, category.CredentialsCount)

	projection, err := s.service.Project(ctx, s.profiles.data.Fields(), s.holder.Address(), "bank.example")
	s.Require().NoError(err)
	s.ElementsMatch([]string{
		"account", "name", "profileImage", "credentialCount",
		"consentGiven", "consentTimestamp", "grantedCategories",
	}, projection.Fields())
	s.True(projection.ConsentGiven())
	s.Equal("Ada Lovelace", projection["name"])

	proof, err := s.service.Prove(ctx, projection, projection.Fields(), s.holder)
	s.Require().NoError(err)

	ok, err := s.service.Verify(proof, s.holder.Address())
	s.Require().NoError(err)
	s.True(ok)

	for _, other := range []domain.Address{s.actors.Issuer.Address(), s.actors.Stranger.Address(), testutil.AddressN(9)} {
		ok, err := s.service.Verify(proof, other)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeSignerMismatch))
	}
}

func (s *DisclosureSuite) TestProofDeterminism() {
	ctx := context.Background()
	type issuer struct {
		Type   string `json:"type"`
		Issuer string `json:"issuer"`
	}
	a := map[string]any{
		"name":          "Ada",
		"issuerDetails": []issuer{{Type: "verified", Issuer: "0x01"}},
		"count":         2,
	}
	var b map[string]any
	s.Require().NoError(json.Unmarshal([]byte(`{"count":2.0,"issuerDetails":[{"issuer":"0x01","type":"verified"}],"name":"Ada"}`), &b))

	fields := []string{"name", "issuerDetails", "count"}
	p1, err := s.service.ProveAt(ctx, a, fields, s.holder, s.now)
	s.Require().NoError(err)
	p2, err := s.service.ProveAt(ctx, b, []string{"count", "name", "issuerDetails"}, s.holder, s.now)
	s.Require().NoError(err)
	s.Equal(p1.DataHash, p2.DataHash)
	s.Equal(p1.Timestamp, p2.Timestamp)

	p3, err := s.service.ProveAt(ctx, a, []string{"name"}, s.holder, s.now)
	s.Require().NoError(err)
	s.NotEqual(p1.DataHash, p3.DataHash)
}

func (s *DisclosureSuite) TestProveSkipsAbsentFields() {
	proof, err := s.service.Prove(context.Background(), map[string]any{"name": "Ada"}, []string{"name", "ssn"}, s.holder)
	s.Require().NoError(err)
	s.Equal(map[string]any{"name": "Ada"}, proof.Data)
}

func (s *DisclosureSuite) TestVerifyRejectsTampering() {
	proof, err := s.service.Prove(context.Background(), map[string]any{"name": "Ada"}, []string{"name"}, s.holder)
	s.Require().NoError(err)

	flip := func(str string, i int) string {
		b := []byte(str)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		return string(b)
	}

	for i := 2; i < len(proof.DataHash); i++ {
		tampered := *proof
		tampered.DataHash = flip(proof.DataHash, i)
		ok, err := s.service.Verify(&tampered, s.holder.Address())
		s.False(ok, "hash position %d", i)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid), "hash position %d", i)
	}
	for i := 2; i < len(proof.Signature); i++ {
		tampered := *proof
		tampered.Signature = flip(proof.Signature, i)
		ok, err := s.service.Verify(&tampered, s.holder.Address())
		s.False(ok, "signature position %d", i)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid), "signature position %d", i)
	}

	s.Run("recovery byte shifted below 27", func() {
		raw, err := signer.DecodeSignature(proof.Signature)
		s.Require().NoError(err)
		raw[64] -= 27
		tampered := *proof
		tampered.Signature = signer.EncodeSignature(raw)
		ok, err := s.service.Verify(&tampered, s.holder.Address())
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})

	s.Run("timestamp is signed", func() {
		tampered := *proof
		tampered.Timestamp--
		ok, _ := s.service.Verify(&tampered, s.holder.Address())
		s.False(ok)
	})

	s.Run("claimed signer is checked", func() {
		tampered := *proof
		tampered.Signer = s.actors.Stranger.Address()
		ok, err := s.service.Verify(&tampered, s.actors.Stranger.Address())
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})

	s.Run("truncated signature", func() {
		tampered := *proof
		tampered.Signature = proof.Signature[:40]
		ok, err := s.service.Verify(&tampered, s.holder.Address())
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})
}

func (s *DisclosureSuite) TestVerifyReplayWindow() {
	ctx := context.Background()
	full := map[string]any{"name": "Ada"}
	tests := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{"fresh", s.now, false},
		{"within skew", s.now.Add(10 * time.Second), false},
		{"near the window edge", s.now.Add(-defaultMaxAge + time.Second), false},
		{"future", s.now.Add(time.Minute), true},
		{"too old", s.now.Add(-defaultMaxAge - time.Second), true},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			proof, err := s.service.ProveAt(ctx, full, []string{"name"}, s.holder, tt.at)
			s.Require().NoError(err)
			ok, err := s.service.Verify(proof, s.holder.Address())
			s.Equal(!tt.expired, ok)
			if tt.expired {
				s.True(dErrors.HasCode(err, dErrors.CodeProofExpired))
			}
		})
	}
}

func (s *DisclosureSuite) TestVerifyContent() {
	proof, err := s.service.Prove(context.Background(), map[string]any{"name": "Ada", "credentialCount": 3}, []string{"name", "credentialCount"}, s.holder)
	s.Require().NoError(err)

	ok, err := s.service.VerifyContent(proof)
	s.Require().NoError(err)
	s.True(ok)

	s.Run("survives a JSON round trip", func() {
		raw, err := json.Marshal(proof)
		s.Require().NoError(err)
		var received models.Proof
		s.Require().NoError(json.Unmarshal(raw, &received))
		ok, err := s.service.VerifyContent(&received)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("rejects altered data", func() {
		tampered := *proof
		tampered.Data = map[string]any{"name": "Eve", "credentialCount": 3}
		ok, err := s.service.VerifyContent(&tampered)
		s.False(ok)
		s.True(dErrors.HasCode(err, dErrors.CodeSignatureInvalid))
	})

	s.Run("requires data", func() {
		tampered := *proof
		tampered.Data = nil
		_, err := s.service.VerifyContent(&tampered)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *DisclosureSuite) TestDisclose() {
	ctx := context.Background()
	holder := s.holder.Address()
	requested := []category.ID{category.CredentialsCount, category.BasicIdentity}

	s.Run("needs consent without a record", func() {
		out, err := s.service.Disclose(ctx, holder, "bank.example", requested)
		s.Require().NoError(err)
		s.Equal(models.StatusNeedsConsent, out.Status)
		s.Equal([]category.ID{category.BasicIdentity, category.CredentialsCount}, out.Missing)
		s.Nil(out.Proof)
	})

	s.Run("lists only the ids not yet granted", func() {
		s.grant("bank.example", category.BasicIdentity)
		out, err := s.service.Disclose(ctx, holder, "bank.example", requested)
		s.Require().NoError(err)
		s.Equal(models.StatusNeedsConsent, out.Status)
		s.Equal([]category.ID{category.CredentialsCount}, out.Missing)
	})

	var first *models.Proof
	s.Run("discloses once granted", func() {
		s.grant("bank.example", category.BasicIdentity, category.CredentialsCount)
		out, err := s.service.Disclose(ctx, holder, "Bank.Example", requested)
		s.Require().NoError(err)
		s.Equal(models.StatusDisclosed, out.Status)
		s.Equal("bank.example", out.Domain)
		s.False(out.Cached)
		s.Require().NotNil(out.Proof)
		s.NotContains(out.Proof.Data, "credentials")
		s.Contains(out.Proof.Data, "credentialCount")

		ok, err := s.service.Verify(out.Proof, holder)
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.service.VerifyContent(out.Proof)
		s.Require().NoError(err)
		s.True(ok)
		first = out.Proof
	})

	s.Run("reuses the cached proof", func() {
		calls := s.profiles.calls
		out, err := s.service.Disclose(ctx, holder, "bank.example", []category.ID{category.BasicIdentity})
		s.Require().NoError(err)
		s.True(out.Cached)
		s.Equal(first.Signature, out.Proof.Signature)
		s.Equal(calls, s.profiles.calls)
	})

	s.Run("a new grant invalidates the cached proof", func() {
		s.now = s.now.Add(time.Second)
		s.grant("bank.example", category.BasicIdentity, category.CredentialsCount, category.RegistrationDate)
		out, err := s.service.Disclose(ctx, holder, "bank.example", requested)
		s.Require().NoError(err)
		s.False(out.Cached)
		s.Contains(out.Proof.Data, "registrationDate")
	})

	s.Run("revocation returns to needs consent", func() {
		_, err := s.consent.Revoke(ctx, holder, "bank.example")
		s.Require().NoError(err)
		out, err := s.service.Disclose(ctx, holder, "bank.example", requested)
		s.Require().NoError(err)
		s.Equal(models.StatusNeedsConsent, out.Status)
	})

	s.Run("rejects unknown categories", func() {
		_, err := s.service.Disclose(ctx, holder, "bank.example", []category.ID{"dna"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownCategory))
	})

	s.Run("rejects an empty request", func() {
		_, err := s.service.Disclose(ctx, holder, "bank.example", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("only answers for the local holder", func() {
		_, err := s.service.Disclose(ctx, s.actors.Stranger.Address(), "bank.example", requested)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
