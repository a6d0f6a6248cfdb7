package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/pkg/domain"
)

var (
	holder = domain.MustAddress("0x1111111111111111111111111111111111111111")
	issuer = domain.MustAddress("0x2222222222222222222222222222222222222222")
)

func TestEventRoundTripPerKind(t *testing.T) {
	events := []Event{
		IdentityRegistered{Holder: holder, MetadataLocator: "ipfs://zmeta"},
		IssuerApproved{Issuer: issuer},
		IssuerRevoked{Issuer: issuer},
		CredentialIssued{Ref: CredentialRef{Holder: holder, Index: 2}, Issuer: issuer, DataLocator: "ipfs://zcred"},
		CredentialRevoked{Ref: CredentialRef{Holder: holder, Index: 2}, Issuer: issuer},
		RequestCreated{Ref: RequestRef{Issuer: issuer, Index: 0}, Requester: holder, DataLocator: "ipfs://zreq"},
		RequestReviewed{Ref: RequestRef{Issuer: issuer, Index: 0}, Requester: holder, Approved: true},
	}
	emitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, ev := range events {
		t.Run(string(ev.Kind()), func(t *testing.T) {
			data, err := EncodeEvent(Envelope{Sequence: uint64(i + 1), EmittedAt: emitted, Event: ev})
			require.NoError(t, err)

			env, err := DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, uint64(i+1), env.Sequence)
			assert.True(t, env.EmittedAt.Equal(emitted))
			assert.Equal(t, ev, env.Event)
		})
	}
}

func TestDecodeEventFailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"unknown kind", `{"kind":"identity_burned","payload":{"holder":"` + holder.String() + `"}}`, ErrUnknownEventKind},
		{"missing kind", `{"payload":{}}`, ErrUnknownEventKind},
		{"not json", `kind=issuer_approved`, ErrMalformedEvent},
		{"empty payload", `{"kind":"issuer_approved"}`, ErrMalformedEvent},
		{"unknown payload field", `{"kind":"issuer_approved","payload":{"issuer":"` + issuer.String() + `","admin":true}}`, ErrMalformedEvent},
		{"missing address", `{"kind":"issuer_revoked","payload":{}}`, ErrMalformedEvent},
		{"credential without locator", `{"kind":"credential_issued","payload":{"ref":{"holder":"` + holder.String() + `","index":0},"issuer":"` + issuer.String() + `"}}`, ErrMalformedEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.raw))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeEventNormalizesAddresses(t *testing.T) {
	raw := `{"kind":"issuer_approved","sequence":3,"payload":{"issuer":"0x2222222222222222222222222222222222222222"}}`
	env, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, IssuerApproved{Issuer: issuer}, env.Event)
}

func TestRequestStatus(t *testing.T) {
	assert.Equal(t, RequestPending, CredentialRequest{}.Status())
	assert.Equal(t, RequestPending, CredentialRequest{Approved: true}.Status())
	assert.Equal(t, RequestApproved, CredentialRequest{Reviewed: true, Approved: true}.Status())
	assert.Equal(t, RequestRejected, CredentialRequest{Reviewed: true}.Status())
}

func TestParseRequestRef(t *testing.T) {
	ref, err := ParseRequestRef(issuer.String() + "/7")
	require.NoError(t, err)
	assert.Equal(t, RequestRef{Issuer: issuer, Index: 7}, ref)
	assert.Equal(t, issuer.String()+"/7", ref.String())

	for _, bad := range []string{"", issuer.String(), issuer.String() + "/-1", "nope/1"} {
		_, err := ParseRequestRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestWireCodes(t *testing.T) {
	for _, f := range wireFaults {
		code, status, ok := WireCode(f.err)
		require.True(t, ok)
		assert.Equal(t, f.code, code)
		assert.Equal(t, f.status, status)
		assert.ErrorIs(t, FromWireCode(code), f.err)
	}
	_, _, ok := WireCode(assert.AnError)
	assert.False(t, ok)
	assert.Nil(t, FromWireCode("teapot"))
}
