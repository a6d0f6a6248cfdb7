package device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"dim/pkg/requestcontext"
)

func serve(cfg *DeviceConfig, req *http.Request) context.Context {
	var captured context.Context
	handler := Device(cfg)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = r.Context()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return captured
}

func TestDeviceMiddleware(t *testing.T) {
	cfg := &DeviceConfig{
		CookieName:    "__Host-dim-device",
		FingerprintFn: func(ua string) string { return "fp:" + strings.ToLower(ua) },
		LabelFn:       func(ua string) string { return ua + " device" },
	}

	t.Run("reads the cookie and derives fingerprint and label", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "__Host-dim-device", Value: "dev-1"})
		req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "10.0.0.1", "Wallet"))

		ctx := serve(cfg, req)
		assert.Equal(t, "dev-1", requestcontext.DeviceID(ctx))
		assert.Equal(t, "fp:wallet", requestcontext.DeviceFingerprint(ctx))
		assert.Equal(t, "Wallet device", requestcontext.Device(ctx))
	})

	t.Run("no user agent leaves fingerprint and label empty", func(t *testing.T) {
		ctx := serve(cfg, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, requestcontext.DeviceID(ctx))
		assert.Empty(t, requestcontext.DeviceFingerprint(ctx))
		assert.Empty(t, requestcontext.Device(ctx))
	})

	t.Run("empty cookie name skips the lookup", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "__Host-dim-device", Value: "dev-1"})
		ctx := serve(&DeviceConfig{}, req)
		assert.Empty(t, requestcontext.DeviceID(ctx))
	})
}
