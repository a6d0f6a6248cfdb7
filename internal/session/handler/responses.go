package handler

import (
	"time"

	credentialmodels "dim/internal/credential/models"
	"dim/internal/session/models"
	"dim/pkg/domain"
)

// ChallengeResponse carries the challenge and a ready-to-sign message stamped
// with the issue time. Wallets may sign a later timestamp instead.
type ChallengeResponse struct {
	ChallengeID string    `json:"challengeId"`
	Challenge   string    `json:"challenge"`
	Message     string    `json:"message"`
	Timestamp   int64     `json:"timestamp"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type LoginResponse struct {
	Token     string                       `json:"token"`
	TokenType string                       `json:"tokenType"`
	SessionID string                       `json:"sessionId"`
	ExpiresAt time.Time                    `json:"expiresAt"`
	Challenge string                       `json:"challenge"`
	Profile   *credentialmodels.HolderData `json:"profile"`
}

// ProfileResponse is the session-scoped view of the logged-in holder.
type ProfileResponse struct {
	Account      domain.Address               `json:"account"`
	SessionID    string                       `json:"sessionId"`
	Profile      *credentialmodels.HolderData `json:"profile"`
	LastActivity time.Time                    `json:"lastActivity"`
}

type SessionResponse struct {
	ID        string     `json:"id"`
	Device    string     `json:"device,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	Current   bool       `json:"current"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

func toChallengeResponse(c *models.Challenge) ChallengeResponse {
	return ChallengeResponse{
		ChallengeID: c.ID.String(),
		Challenge:   c.Value,
		Message:     c.Message(c.IssuedAt),
		Timestamp:   c.IssuedAt.UnixMilli(),
		ExpiresAt:   c.ExpiresAt,
	}
}

func toLoginResponse(res *models.LoginResult) LoginResponse {
	return LoginResponse{
		Token:     res.Token,
		TokenType: "Bearer",
		SessionID: res.Session.ID.String(),
		ExpiresAt: res.Session.ExpiresAt,
		Challenge: res.Session.Challenge,
		Profile:   res.Profile,
	}
}

func toSessionsResponse(sessions []*models.Session, current domain.SessionID) SessionsResponse {
	out := SessionsResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, SessionResponse{
			ID:        s.ID.String(),
			Device:    s.DeviceLabel,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			RevokedAt: s.RevokedAt,
			Current:   s.ID == current,
		})
	}
	return out
}
