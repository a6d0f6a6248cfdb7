package category

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler().Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandlerListsCatalog(t *testing.T) {
	w := serve(t, "/categories")
	require.Equal(t, http.StatusOK, w.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Categories, len(All()))
	assert.Equal(t, Required(), body.Required)
}

func TestHandlerGetsOneCategory(t *testing.T) {
	w := serve(t, "/categories/basic_identity")
	require.Equal(t, http.StatusOK, w.Code)

	var c Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, BasicIdentity, c.ID)
	assert.Contains(t, c.Fields, FieldName)
}

func TestHandlerRejectsUnknownCategory(t *testing.T) {
	w := serve(t, "/categories/favourite_colour")
	assert.GreaterOrEqual(t, w.Code, 400)
	assert.Less(t, w.Code, 500)
}
