package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/testutil"
)

var (
	account   = testutil.AddressN(7)
	sessionID = domain.NewSessionID()
	svc       = NewService("test-signing-key", "dim-test", "relying-parties", time.Hour)
)

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	tok, jti, err := svc.Issue(account, sessionID, now)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.Len(t, jti, 32)

	claims, err := svc.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, account.String(), claims.Subject)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, jti, claims.ID)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)

	mw, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, account.String(), mw.Subject)
	assert.Equal(t, sessionID.String(), mw.SessionID)
	assert.Equal(t, jti, mw.JTI)
}

func TestIssueUniqueJTI(t *testing.T) {
	now := time.Now()
	_, a, err := svc.Issue(account, sessionID, now)
	require.NoError(t, err)
	_, b, err := svc.Issue(account, sessionID, now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIssueRejectsEmptyParts(t *testing.T) {
	_, _, err := svc.Issue("", sessionID, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, _, err = svc.Issue(account, domain.SessionID{}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseRejects(t *testing.T) {
	valid, _, err := svc.Issue(account, sessionID, time.Now())
	require.NoError(t, err)

	expired, _, err := svc.Issue(account, sessionID, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	other := NewService("another-key", "dim-test", "relying-parties", time.Hour)
	foreignKey, _, err := other.Issue(account, sessionID, time.Now())
	require.NoError(t, err)

	wrongIssuer := NewService("test-signing-key", "elsewhere", "relying-parties", time.Hour)
	badIssuer, _, err := wrongIssuer.Issue(account, sessionID, time.Now())
	require.NoError(t, err)

	wrongAudience := NewService("test-signing-key", "dim-test", "admins", time.Hour)
	badAudience, _, err := wrongAudience.Issue(account, sessionID, time.Now())
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{SessionID: sessionID.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		token string
		msg   string
	}{
		"empty":          {"", "empty token"},
		"garbage":        {"not-a-token", "invalid token"},
		"expired":        {expired, "token expired"},
		"foreign key":    {foreignKey, "invalid token"},
		"wrong issuer":   {badIssuer, "invalid token"},
		"wrong audience": {badAudience, "invalid token"},
		"alg none":       {unsigned, "invalid token"},
		"truncated":      {valid[:len(valid)-4], "invalid token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Parse(tc.token)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}
