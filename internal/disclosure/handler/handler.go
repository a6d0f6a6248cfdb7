// Package handler exposes disclosure and proof verification over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dim/internal/category"
	"dim/internal/disclosure/models"
	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the disclosure operations the handler needs.
type Service interface {
	Disclose(ctx context.Context, holder domain.Address, relyingParty string, ids []category.ID) (*models.Disclosure, error)
	Verify(proof *models.Proof, expected domain.Address) (bool, error)
	VerifyContent(proof *models.Proof) (bool, error)
}

type Handler struct {
	logger     *slog.Logger
	disclosure Service
	self       domain.Address
}

// New creates a disclosure Handler answering for the holder self.
func New(disclosure Service, self domain.Address, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		disclosure: disclosure,
		self:       self,
	}
}

// Register registers the holder's disclosure route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/disclosures", h.handleDisclose)
}

// RegisterPublic registers proof verification for relying parties.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/disclosures/verify", h.handleVerify)
}

func (h *Handler) handleDisclose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DiscloseRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	out, err := h.disclosure.Disclose(ctx, h.self, req.Domain, req.IDs())
	if err != nil {
		h.fail(ctx, w, "failed to disclose", err)
		return
	}
	if out.Status == models.StatusNeedsConsent {
		h.logger.InfoContext(ctx, "disclosure needs consent",
			"request_id", requestID,
			"domain", out.Domain,
			"missing", out.Missing,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// handleVerify answers 200 for any well-formed proof. A rejected proof is
// reported with valid=false and the rejection code.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	resp := VerifyResponse{}
	valid, err := h.disclosure.Verify(req.Proof, req.Expected())
	if err == nil && req.Proof.Data != nil {
		resp.ContentChecked = true
		valid, err = h.disclosure.VerifyContent(req.Proof)
	}
	if err != nil {
		if !isRejection(err) {
			h.fail(ctx, w, "failed to verify proof", err)
			return
		}
		resp.Reason = string(dErrors.CodeOf(err))
	}
	resp.Valid = valid && err == nil
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func isRejection(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeSignatureInvalid, dErrors.CodeSignerMismatch, dErrors.CodeProofExpired:
		return true
	default:
		return false
	}
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
