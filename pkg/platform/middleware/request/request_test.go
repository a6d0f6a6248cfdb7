package request

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
)

func TestRequestID(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requestcontext.RequestID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "generates when absent", header: "", keep: false},
		{name: "keeps a valid client id", header: "trace.span_1234", keep: true},
		{name: "replaces oversized ids", header: strings.Repeat("a", MaxRequestIDLength+1), keep: false},
		{name: "replaces ids with newlines", header: "abc\ninjected", keep: false},
		{name: "replaces ids with spaces", header: "a b", keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header["X-Request-Id"] = []string{tt.header}
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, captured, w.Header().Get("X-Request-ID"))
			if tt.keep {
				assert.Equal(t, tt.header, captured)
			} else {
				assert.Len(t, captured, 36)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error)
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestLoggerSkipsHealthyProbes(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Empty(t, logs.String())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Contains(t, logs.String(), `"status":503`)

	logs.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/categories", nil))
	assert.Contains(t, logs.String(), `"path":"/categories"`)
}

func TestContentTypeJSON(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		method, contentType string
		want                int
	}{
		{http.MethodPost, "application/json", http.StatusNoContent},
		{http.MethodPost, "application/json; charset=utf-8", http.StatusNoContent},
		{http.MethodPost, "", http.StatusNoContent},
		{http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
		{http.MethodPatch, "application/xml", http.StatusUnsupportedMediaType},
		{http.MethodGet, "text/plain", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/x", strings.NewReader("{}"))
		if tt.contentType != "" {
			req.Header.Set("Content-Type", tt.contentType)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.contentType)
	}
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(100)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for size, want := range map[int]int{100: http.StatusOK, 101: http.StatusRequestEntityTooLarge} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("x", size))))
		assert.Equal(t, want, w.Code, "size %d", size)
	}
}

func TestLatencyMiddlewareUsesRoutePattern(t *testing.T) {
	m := &Metrics{EndpointLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_latency_seconds",
	}, []string{"method", "route", "status"})}

	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/credentials/{holder}", func(http.ResponseWriter, *http.Request) {})

	for _, holder := range []string{"0xaa", "0xbb"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/credentials/"+holder, nil))
	}
	assert.Equal(t, 1, testutil.CollectAndCount(m.EndpointLatency))
}
