package blobstore

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dim/internal/sentinel"
	"dim/pkg/platform/httputil"
	dErrors "dim/pkg/domain-errors"
)

// maxBlobBytes bounds the size of a single pinned blob.
const maxBlobBytes = 4 << 20

// Handler serves a Store over HTTP in the shape HTTPStore expects.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/blobs", h.handlePut)
	r.Get("/blobs/{cid}", h.handleGet)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBlobBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read body"))
		return
	}
	if len(data) > maxBlobBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "blob too large"))
		return
	}
	loc, err := h.store.Put(ctx, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to put blob", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to store blob"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, putResponse{Locator: loc})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc, err := LocatorFromContentID(chi.URLParam(r, "cid"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid content id"))
		return
	}
	data, err := h.store.Get(ctx, loc)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "blob not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to get blob", "locator", loc, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to load blob"))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func decodeJSON(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Join(sentinel.ErrInvalidInput, err)
	}
	return nil
}
