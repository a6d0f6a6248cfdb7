package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dim/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) AllowN(context.Context, string, int, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis down")
}

func serve(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/challenge", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("admits within budget and rejects over it", func(t *testing.T) {
		h := New(NewMemoryStore(), Policy{Class: "auth", Limit: 2, Window: time.Minute}).Middleware(ok)

		first := serve(h, "10.0.0.1")
		assert.Equal(t, http.StatusNoContent, first.Code)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.1").Code)

		rejected := serve(h, "10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
		assert.NotEmpty(t, rejected.Header().Get("Retry-After"))
		assert.Contains(t, rejected.Body.String(), "rate_limited")

		assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.2").Code)
	})

	t.Run("store failure lets requests through", func(t *testing.T) {
		h := New(failingStore{}, Policy{Class: "auth", Limit: 1, Window: time.Minute}).Middleware(ok)
		assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.1").Code)
		assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.1").Code)
	})
}
