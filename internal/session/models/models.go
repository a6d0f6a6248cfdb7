package models

import (
	"fmt"
	"time"

	credentialmodels "dim/internal/credential/models"
	"dim/pkg/domain"
)

// ChallengePrefix starts every login challenge string.
const ChallengePrefix = "DIM-Auth-"

// Challenge is a single-use login nonce handed to a wallet. The wallet signs
// Message and trades the signature for a session.
type Challenge struct {
	ID        domain.ChallengeID `json:"id"`
	Account   domain.Address     `json:"account"`
	Value     string             `json:"challenge"`
	IssuedAt  time.Time          `json:"issuedAt"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// NewChallenge builds the challenge string from the issue time and nonce.
func NewChallenge(account domain.Address, nonce string, issuedAt time.Time, ttl time.Duration) *Challenge {
	issuedAt = issuedAt.UTC().Truncate(time.Millisecond)
	return &Challenge{
		ID:        domain.NewChallengeID(),
		Account:   account,
		Value:     fmt.Sprintf("%s%d-%s", ChallengePrefix, issuedAt.UnixMilli(), nonce),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
}

func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Message is the text the wallet signs. signedAt is chosen by the wallet and
// must fall inside the challenge window.
func (c *Challenge) Message(signedAt time.Time) string {
	return Message(c.Value, c.Account, signedAt)
}

func Message(challenge string, account domain.Address, signedAt time.Time) string {
	return fmt.Sprintf("DIM Authentication\nChallenge: %s\nAccount: %s\nTimestamp: %d",
		challenge, account.String(), signedAt.UnixMilli())
}

// Session is a relying-party login backed by a wallet signature.
type Session struct {
	ID                domain.SessionID `json:"id"`
	Account           domain.Address   `json:"account"`
	Challenge         string           `json:"challenge"`
	JTI               string           `json:"jti"`
	DeviceLabel       string           `json:"deviceLabel,omitempty"`
	DeviceFingerprint string           `json:"deviceFingerprint,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	ExpiresAt         time.Time        `json:"expiresAt"`
	RevokedAt         *time.Time       `json:"revokedAt,omitempty"`
}

// IsActive reports whether the session is unrevoked and unexpired at now.
func (s *Session) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Revoke marks the session revoked. It returns false if it already was.
func (s *Session) Revoke(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	t := now.UTC()
	s.RevokedAt = &t
	return true
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}

// LoginResult is returned by a successful challenge verification.
type LoginResult struct {
	Token   string
	Session *Session
	Profile *credentialmodels.HolderData
}
