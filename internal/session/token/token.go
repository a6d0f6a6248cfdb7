// Package token issues and validates the HS256 bearer tokens handed to
// relying parties after a wallet login.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/platform/middleware/auth"
	"dim/pkg/secrets"
)

// Claims are the session token claims. Subject is the wallet address.
type Claims struct {
	SessionID string `json:"sid"`
	Env       string `json:"env,omitempty"`
	jwt.RegisteredClaims
}

// Service handles token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	env        string
}

func NewService(signingKey, issuer, audience string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// SetEnv annotates issued tokens with an environment string.
func (s *Service) SetEnv(env string) {
	s.env = env
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for account bound to sessionID. It returns the token
// and its JTI.
func (s *Service) Issue(account domain.Address, sessionID domain.SessionID, now time.Time) (string, string, error) {
	if account.IsZero() {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "account required")
	}
	if sessionID.IsNil() {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "session id required")
	}

	jti, err := secrets.Nonce(16)
	if err != nil {
		return "", "", err
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID.String(),
		Env:       s.env,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Parse validates signature, algorithm, expiry, issuer and audience.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ValidateToken satisfies auth.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (*auth.Claims, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.Claims{
		Subject:   claims.Subject,
		SessionID: claims.SessionID,
		JTI:       claims.ID,
	}, nil
}
