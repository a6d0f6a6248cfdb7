// Package handler exposes wallet login for relying parties. Challenge and
// verify are public; the remaining routes expect the session middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	credentialmodels "dim/internal/credential/models"
	"dim/internal/session/models"
	"dim/internal/session/service"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the session operations the handler needs.
type Service interface {
	Challenge(ctx context.Context, account domain.Address) (*models.Challenge, error)
	Verify(ctx context.Context, cmd service.VerifyCommand) (*models.LoginResult, error)
	Profile(ctx context.Context, account domain.Address) (*credentialmodels.HolderData, error)
	Sessions(ctx context.Context, account domain.Address) ([]*models.Session, error)
	Logout(ctx context.Context, account domain.Address, id domain.SessionID) error
}

type Handler struct {
	logger   *slog.Logger
	sessions Service
	now      func() time.Time
}

func New(sessions Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		sessions: sessions,
		now:      time.Now,
	}
}

// RegisterPublic registers the login routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/challenge", h.handleChallenge)
	r.Post("/auth/verify", h.handleVerify)
}

// RegisterProtected registers the routes that need a session in context.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/profile", h.handleProfile)
	r.Get("/auth/sessions", h.handleSessions)
	r.Delete("/auth/sessions/{id}", h.handleLogout)
	r.Post("/auth/logout", h.handleLogoutCurrent)
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ChallengeRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	account, _ := domain.ParseAddress(req.Account)
	c, err := h.sessions.Challenge(ctx, account)
	if err != nil {
		h.fail(ctx, w, "failed to issue challenge", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toChallengeResponse(c))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	res, err := h.sessions.Verify(ctx, req.Command())
	if err != nil {
		h.fail(ctx, w, "wallet login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLoginResponse(res))
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	profile, err := h.sessions.Profile(ctx, account)
	if err != nil {
		h.fail(ctx, w, "failed to load profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ProfileResponse{
		Account:      account,
		SessionID:    requestcontext.SessionID(ctx).String(),
		Profile:      profile,
		LastActivity: h.now().UTC(),
	})
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	sessions, err := h.sessions.Sessions(ctx, account)
	if err != nil {
		h.fail(ctx, w, "failed to list sessions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionsResponse(sessions, requestcontext.SessionID(ctx)))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	id, err := domain.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logout(ctx, w, account, id)
}

func (h *Handler) handleLogoutCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.caller(ctx, w)
	if !ok {
		return
	}
	h.logout(ctx, w, account, requestcontext.SessionID(ctx))
}

func (h *Handler) logout(ctx context.Context, w http.ResponseWriter, account domain.Address, id domain.SessionID) {
	if err := h.sessions.Logout(ctx, account, id); err != nil {
		h.fail(ctx, w, "failed to revoke session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) caller(ctx context.Context, w http.ResponseWriter) (domain.Address, bool) {
	account := requestcontext.Caller(ctx)
	if account.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session required"))
		return "", false
	}
	return account, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelInfo
	if dErrors.IsTransient(err) || dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
