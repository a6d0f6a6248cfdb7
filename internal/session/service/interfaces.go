package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks Store,ProfileSource,TokenIssuer,AuditPublisher

import (
	"context"
	"time"

	"dim/internal/audit"
	credentialmodels "dim/internal/credential/models"
	"dim/internal/session/models"
	"dim/pkg/domain"
)

// Store persists challenges and sessions. See the store package for the
// error contract.
type Store interface {
	PutChallenge(ctx context.Context, c *models.Challenge) error
	TakeChallenge(ctx context.Context, id domain.ChallengeID, now time.Time) (*models.Challenge, error)
	CreateSession(ctx context.Context, session *models.Session) error
	FindSession(ctx context.Context, id domain.SessionID) (*models.Session, error)
	FindByJTI(ctx context.Context, jti string) (*models.Session, error)
	ListByAccount(ctx context.Context, account domain.Address) ([]*models.Session, error)
	RevokeSession(ctx context.Context, id domain.SessionID, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ProfileSource builds the holder profile returned with a session. Errors
// are already domain errors.
type ProfileSource interface {
	Profile(ctx context.Context, holder domain.Address) (*credentialmodels.HolderData, error)
}

// TokenIssuer signs session bearer tokens.
type TokenIssuer interface {
	Issue(account domain.Address, sessionID domain.SessionID, now time.Time) (token string, jti string, err error)
	TTL() time.Duration
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}
