package ledgerapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dim/internal/ledger"
	"dim/pkg/domain"
	"dim/pkg/platform/httputil"
)

// Handler serves a ledger.Ledger. Mount it behind RequireSignedCall.
type Handler struct {
	ledger ledger.Ledger
	logger *slog.Logger
}

func NewHandler(l ledger.Ledger, logger *slog.Logger) *Handler {
	return &Handler{ledger: l, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get(PathAdmin, h.handleAdmin)

	r.Post(PathIdentities, h.handleRegisterIdentity)
	r.Get(PathIdentities+"/{address}", h.handleGetIdentity)

	r.Get(PathIssuers+"/{address}", h.handleGetIssuer)
	r.Post(PathIssuers+"/{address}/approve", h.handleApproveIssuer)
	r.Post(PathIssuers+"/{address}/revoke", h.handleRevokeIssuer)

	r.Post(PathCredentials, h.handleIssueCredential)
	r.Get(PathCredentials+"/{holder}", h.handleGetCredentials)
	r.Get(PathCredentials+"/{holder}/{index}", h.handleGetCredential)
	r.Post(PathCredentials+"/{holder}/{index}/revoke", h.handleRevokeCredential)

	r.Post(PathRequests, h.handleRequestCredential)
	r.Get(PathRequests+"/{issuer}", h.handleGetRequests)
	r.Get(PathRequests+"/{issuer}/{index}", h.handleGetRequest)
	r.Post(PathRequests+"/{issuer}/{index}/approve", h.handleApproveRequest)
	r.Post(PathRequests+"/{issuer}/{index}/reject", h.handleRejectRequest)
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.ledger.Admin(r.Context())
	if err != nil {
		h.fail(w, r, "admin", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdminResponse{Address: admin})
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	id, err := h.ledger.GetIdentity(r.Context(), addr)
	if err != nil {
		h.fail(w, r, "get identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, id)
}

func (h *Handler) handleGetIssuer(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	approved, err := h.ledger.IsApprovedIssuer(r.Context(), addr)
	if err != nil {
		h.fail(w, r, "get issuer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IssuerResponse{Address: addr, Approved: approved})
}

func (h *Handler) handleGetCredentials(w http.ResponseWriter, r *http.Request) {
	holder, ok := addressParam(w, r, "holder")
	if !ok {
		return
	}
	creds, err := h.ledger.GetCredentials(r.Context(), holder)
	if err != nil {
		h.fail(w, r, "get credentials", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CredentialsResponse{Credentials: creds})
}

func (h *Handler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	ref, ok := credentialRefParam(w, r)
	if !ok {
		return
	}
	cred, err := h.ledger.GetCredential(r.Context(), ref)
	if err != nil {
		h.fail(w, r, "get credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	issuer, ok := addressParam(w, r, "issuer")
	if !ok {
		return
	}
	reqs, err := h.ledger.GetCredentialRequests(r.Context(), issuer)
	if err != nil {
		h.fail(w, r, "get requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RequestsResponse{Requests: reqs})
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ref, ok := requestRefParam(w, r)
	if !ok {
		return
	}
	req, err := h.ledger.GetRequest(r.Context(), ref)
	if err != nil {
		h.fail(w, r, "get request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleRegisterIdentity(w http.ResponseWriter, r *http.Request) {
	var body RegisterIdentityRequest
	if !decodeBody(w, r, &body) {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := h.ledger.RegisterIdentity(r.Context(), caller, body.MetadataLocator); err != nil {
		h.fail(w, r, "register identity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApproveIssuer(w http.ResponseWriter, r *http.Request) {
	h.toggleIssuer(w, r, "approve issuer", h.ledger.ApproveIssuer)
}

func (h *Handler) handleRevokeIssuer(w http.ResponseWriter, r *http.Request) {
	h.toggleIssuer(w, r, "revoke issuer", h.ledger.RevokeIssuer)
}

func (h *Handler) toggleIssuer(w http.ResponseWriter, r *http.Request, op string,
	apply func(ctx context.Context, caller, issuer domain.Address) error,
) {
	issuer, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := apply(r.Context(), caller, issuer); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRequestCredential(w http.ResponseWriter, r *http.Request) {
	var body RequestCredentialRequest
	if !decodeBody(w, r, &body) {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	ref, err := h.ledger.RequestCredential(r.Context(), caller, body.Issuer, body.DataLocator)
	if err != nil {
		h.fail(w, r, "request credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ref)
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	ref, ok := requestRefParam(w, r)
	if !ok {
		return
	}
	var body ApproveRequestRequest
	if !decodeBody(w, r, &body) {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	cred, err := h.ledger.ApproveRequest(r.Context(), caller, ref, body.CredentialLocator)
	if err != nil {
		h.fail(w, r, "approve request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	ref, ok := requestRefParam(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := h.ledger.RejectRequest(r.Context(), caller, ref); err != nil {
		h.fail(w, r, "reject request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	var body IssueCredentialRequest
	if !decodeBody(w, r, &body) {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	cred, err := h.ledger.IssueCredential(r.Context(), caller, body.Holder, body.DataLocator)
	if err != nil {
		h.fail(w, r, "issue credential", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cred)
}

func (h *Handler) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	ref, ok := credentialRefParam(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFromContext(r.Context())
	if err := h.ledger.RevokeCredential(r.Context(), caller, ref); err != nil {
		h.fail(w, r, "revoke credential", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail writes ledger faults with their wire code. Anything else is an internal error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if code, status, ok := ledger.WireCode(err); ok {
		writeFault(w, status, code, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "ledger call failed", "op", op, "error", err)
	writeFault(w, http.StatusInternalServerError, "internal_error", "")
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeFault(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
		return false
	}
	return true
}

func addressParam(w http.ResponseWriter, r *http.Request, name string) (domain.Address, bool) {
	addr, err := domain.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		writeFault(w, http.StatusBadRequest, "invalid_argument", name+" must be an address")
		return "", false
	}
	return addr, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	idx, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		writeFault(w, http.StatusBadRequest, "invalid_argument", "index must be a non-negative integer")
		return 0, false
	}
	return idx, true
}

func requestRefParam(w http.ResponseWriter, r *http.Request) (ledger.RequestRef, bool) {
	issuer, ok := addressParam(w, r, "issuer")
	if !ok {
		return ledger.RequestRef{}, false
	}
	idx, ok := indexParam(w, r)
	if !ok {
		return ledger.RequestRef{}, false
	}
	return ledger.RequestRef{Issuer: issuer, Index: idx}, true
}

func credentialRefParam(w http.ResponseWriter, r *http.Request) (ledger.CredentialRef, bool) {
	holder, ok := addressParam(w, r, "holder")
	if !ok {
		return ledger.CredentialRef{}, false
	}
	idx, ok := indexParam(w, r)
	if !ok {
		return ledger.CredentialRef{}, false
	}
	return ledger.CredentialRef{Holder: holder, Index: idx}, true
}
