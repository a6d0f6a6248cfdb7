package category

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dim/pkg/platform/httputil"
)

// Handler serves the catalog read-only.
type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Register(r chi.Router) {
	r.Get("/categories", h.handleList)
	r.Get("/categories/{id}", h.handleGet)
}

type listResponse struct {
	Categories []Category `json:"categories"`
	Required   []ID       `json:"required"`
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, listResponse{Categories: All(), Required: Required()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := Get(ID(chi.URLParam(r, "id")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}
