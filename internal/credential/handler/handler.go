// Package handler exposes the credential lifecycle of the local actor over
// HTTP. Every mutation is made as the agent's own address.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dim/internal/credential/models"
	"dim/internal/ledger"
	"dim/pkg/domain"
	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
	dErrors "dim/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,BlobWriter

// Service is the credential lifecycle as the handler uses it.
type Service interface {
	RegisterIdentity(ctx context.Context, caller domain.Address, metadata domain.Locator) (*ledger.Identity, error)
	Identity(ctx context.Context, addr domain.Address) (*ledger.Identity, error)
	Profile(ctx context.Context, holder domain.Address) (*models.HolderData, error)
	ApproveIssuer(ctx context.Context, caller, issuer domain.Address) (*models.IssuerResult, error)
	RevokeIssuer(ctx context.Context, caller, issuer domain.Address) (*models.IssuerResult, error)
	IsApprovedIssuer(ctx context.Context, addr domain.Address) (bool, error)
	RequestCredential(ctx context.Context, caller, issuer domain.Address, data domain.Locator) (*models.RequestResult, error)
	ReviewRequest(ctx context.Context, caller domain.Address, ref ledger.RequestRef, decision ledger.Decision, credentialData domain.Locator) (*models.RequestResult, error)
	IssueCredential(ctx context.Context, caller, holder domain.Address, data domain.Locator) (*models.IssueResult, error)
	RevokeCredential(ctx context.Context, caller domain.Address, holder domain.Address, index uint64) (*models.RevokeResult, error)
	Credentials(ctx context.Context, holder domain.Address) ([]ledger.Credential, error)
	Requests(ctx context.Context, issuer domain.Address) ([]ledger.CredentialRequest, error)
	HolderRequests(ctx context.Context, holder domain.Address) ([]ledger.CredentialRequest, error)
}

// BlobWriter pins JSON documents before they are referenced on the ledger.
type BlobWriter interface {
	Put(ctx context.Context, data []byte) (domain.Locator, error)
}

type Handler struct {
	service Service
	blobs   BlobWriter
	self    domain.Address
	logger  *slog.Logger
}

// New creates a handler acting as self.
func New(service Service, blobs BlobWriter, self domain.Address, logger *slog.Logger) *Handler {
	return &Handler{service: service, blobs: blobs, self: self, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/identity", h.handleRegisterIdentity)
	r.Get("/identity/{address}", h.handleGetIdentity)
	r.Get("/profile/{address}", h.handleGetProfile)

	r.Get("/issuers/{address}", h.handleGetIssuer)
	r.Post("/issuers/{address}/approve", h.handleApproveIssuer)
	r.Post("/issuers/{address}/revoke", h.handleRevokeIssuer)

	r.Post("/requests", h.handleRequestCredential)
	r.Get("/requests", h.handleListIncomingRequests)
	r.Get("/requests/mine", h.handleListOwnRequests)
	r.Post("/requests/{issuer}/{index}/review", h.handleReviewRequest)

	r.Post("/credentials", h.handleIssueCredential)
	r.Get("/credentials/{holder}", h.handleListCredentials)
	r.Post("/credentials/{holder}/{index}/revoke", h.handleRevokeCredential)
}

func (h *Handler) handleRegisterIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterIdentityRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	doc, err := req.Document()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode metadata"))
		return
	}
	loc, ok := h.pin(ctx, w, doc, "metadata")
	if !ok {
		return
	}

	id, err := h.service.RegisterIdentity(ctx, h.self, loc)
	if err != nil {
		h.fail(ctx, w, "failed to register identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, toIdentityResponse(id))
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	id, err := h.service.Identity(ctx, addr)
	if err != nil {
		h.fail(ctx, w, "failed to read identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toIdentityResponse(id))
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	profile, err := h.service.Profile(ctx, addr)
	if err != nil {
		h.fail(ctx, w, "failed to build profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile.Fields())
}

func (h *Handler) handleGetIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	approved, err := h.service.IsApprovedIssuer(ctx, addr)
	if err != nil {
		h.fail(ctx, w, "failed to read issuer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IssuerResponse{Issuer: addr, Approved: approved})
}

func (h *Handler) handleApproveIssuer(w http.ResponseWriter, r *http.Request) {
	h.setIssuer(w, r, h.service.ApproveIssuer, "failed to approve issuer")
}

func (h *Handler) handleRevokeIssuer(w http.ResponseWriter, r *http.Request) {
	h.setIssuer(w, r, h.service.RevokeIssuer, "failed to revoke issuer")
}

func (h *Handler) setIssuer(w http.ResponseWriter, r *http.Request, apply func(context.Context, domain.Address, domain.Address) (*models.IssuerResult, error), msg string) {
	ctx := r.Context()
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	res, err := apply(ctx, h.self, addr)
	if err != nil {
		h.fail(ctx, w, msg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IssuerResponse{Issuer: res.Issuer, Approved: res.Approved, Outcome: res.Outcome})
}

func (h *Handler) handleRequestCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RequestCredentialRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	loc, ok := h.pin(ctx, w, req.Data, "request data")
	if !ok {
		return
	}
	res, err := h.service.RequestCredential(ctx, h.self, req.issuer, loc)
	if err != nil {
		h.fail(ctx, w, "failed to request credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(*res.Request))
}

func (h *Handler) handleListIncomingRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqs, err := h.service.Requests(ctx, h.self)
	if err != nil {
		h.fail(ctx, w, "failed to list requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": toRequestResponses(reqs)})
}

func (h *Handler) handleListOwnRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqs, err := h.service.HolderRequests(ctx, h.self)
	if err != nil {
		h.fail(ctx, w, "failed to list own requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": toRequestResponses(reqs)})
}

func (h *Handler) handleReviewRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	issuer, ok := addressParam(w, r, "issuer")
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	decision := ledger.Decision(req.Decision)
	var loc domain.Locator
	if decision == ledger.DecisionApprove {
		if loc, ok = h.pin(ctx, w, req.Credential, "credential data"); !ok {
			return
		}
	}

	res, err := h.service.ReviewRequest(ctx, h.self, ledger.RequestRef{Issuer: issuer, Index: index}, decision, loc)
	if err != nil {
		h.fail(ctx, w, "failed to review request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReviewResponse{
		Outcome:    res.Outcome,
		Request:    toRequestResponse(*res.Request),
		Credential: toCredentialRef(res.Credential),
	})
}

func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueCredentialRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	loc, ok := h.pin(ctx, w, req.Data, "credential data")
	if !ok {
		return
	}
	res, err := h.service.IssueCredential(ctx, h.self, req.holder, loc)
	if err != nil {
		h.fail(ctx, w, "failed to issue credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{
		Outcome:    res.Outcome,
		Credential: CredentialRef{Holder: res.Credential.Holder, Index: res.Credential.Index},
		Locator:    loc,
	})
}

func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, ok := addressParam(w, r, "holder")
	if !ok {
		return
	}
	creds, err := h.service.Credentials(ctx, holder)
	if err != nil {
		h.fail(ctx, w, "failed to list credentials", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"credentials": toCredentialResponses(creds)})
}

func (h *Handler) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, ok := addressParam(w, r, "holder")
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	res, err := h.service.RevokeCredential(ctx, h.self, holder, index)
	if err != nil {
		h.fail(ctx, w, "failed to revoke credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RevokeResponse{
		Outcome:    res.Outcome,
		Credential: CredentialRef{Holder: res.Credential.Holder, Index: res.Credential.Index},
	})
}

// pin stores doc in the blob store. It writes the error response itself.
func (h *Handler) pin(ctx context.Context, w http.ResponseWriter, doc []byte, what string) (domain.Locator, bool) {
	loc, err := h.blobs.Put(ctx, doc)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to pin document",
			"document", what,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to store "+what))
		return "", false
	}
	return loc, true
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

func addressParam(w http.ResponseWriter, r *http.Request, name string) (domain.Address, bool) {
	addr, err := domain.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid "+name+" address"))
		return "", false
	}
	return addr, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid index"))
		return 0, false
	}
	return index, true
}
