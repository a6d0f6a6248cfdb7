// Package handler exposes the local holder's consent records over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dim/internal/category"
	"dim/internal/consent/models"
	"dim/internal/signer"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the consent operations the handler needs.
type Service interface {
	Grant(ctx context.Context, holder domain.Address, relyingParty string, ids []category.ID, signedAt time.Time, signature string) (*models.GrantResult, error)
	Revoke(ctx context.Context, holder domain.Address, relyingParty string) (bool, error)
	Lookup(ctx context.Context, holder domain.Address, relyingParty string) (*models.Record, bool, error)
	IsGranted(ctx context.Context, holder domain.Address, relyingParty string, id category.ID) (bool, error)
	List(ctx context.Context, holder domain.Address) ([]*models.Record, error)
	Restore(ctx context.Context, holder domain.Address, locator domain.Locator) (*models.Record, error)
}

// Handler handles consent endpoints for the agent's own holder address.
type Handler struct {
	logger  *slog.Logger
	consent Service
	signer  signer.Signer
	now     func() time.Time
}

// New creates a consent Handler. The signer's address is the holder.
func New(consent Service, s signer.Signer, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
		signer:  s,
		now:     time.Now,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.handleGrant)
	r.Get("/consents", h.handleList)
	r.Post("/consents/restore", h.handleRestore)
	r.Get("/consents/{domain}", h.handleLookup)
	r.Delete("/consents/{domain}", h.handleRevoke)
	r.Get("/consents/{domain}/categories/{category}", h.handleCheck)
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	holder := h.signer.Address()

	req, ok := httputil.DecodeAndPrepare[GrantRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	signedAt, signature := req.SignedTime(), req.Signature
	if signature == "" {
		signedAt = h.now().UTC().Truncate(time.Millisecond)
		var err error
		if signature, err = h.sign(ctx, holder, req, signedAt); err != nil {
			h.fail(ctx, w, "failed to sign consent", err)
			return
		}
	}

	res, err := h.consent.Grant(ctx, holder, req.Domain, req.IDs(), signedAt, signature)
	if err != nil {
		h.fail(ctx, w, "failed to grant consent", err)
		return
	}

	resp := GrantResponse{Consent: toConsentResponse(res.Record), Locator: res.Locator}
	if res.Warning != nil {
		resp.Warning = string(dErrors.CodeStoreUnavailable) + ": consent saved locally, blob mirror pending"
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// sign produces the holder signature with the agent key.
func (h *Handler) sign(ctx context.Context, holder domain.Address, req *GrantRequest, at time.Time) (string, error) {
	scope, err := models.NewScope(holder, req.Domain)
	if err != nil {
		return "", err
	}
	sig, err := models.Sign(ctx, h.signer, scope, req.IDs(), at)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "signer unavailable")
	}
	return sig, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := h.consent.List(ctx, h.signer.Address())
	if err != nil {
		h.fail(ctx, w, "failed to list consents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(recs))
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	relyingParty := chi.URLParam(r, "domain")
	rec, ok, err := h.consent.Lookup(ctx, h.signer.Address(), relyingParty)
	if err != nil {
		h.fail(ctx, w, "failed to read consent", err)
		return
	}
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no consent for this domain"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(rec))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	relyingParty := models.NormalizeDomain(chi.URLParam(r, "domain"))
	removed, err := h.consent.Revoke(ctx, h.signer.Address(), relyingParty)
	if err != nil {
		h.fail(ctx, w, "failed to revoke consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RevokeResponse{Domain: relyingParty, Revoked: removed})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	relyingParty := models.NormalizeDomain(chi.URLParam(r, "domain"))
	id := category.ID(chi.URLParam(r, "category"))
	granted, err := h.consent.IsGranted(ctx, h.signer.Address(), relyingParty, id)
	if err != nil {
		h.fail(ctx, w, "failed to check consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CheckResponse{Domain: relyingParty, Category: id, Granted: granted})
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RestoreRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	rec, err := h.consent.Restore(ctx, h.signer.Address(), req.ToLocator())
	if err != nil {
		h.fail(ctx, w, "failed to restore consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(rec))
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
