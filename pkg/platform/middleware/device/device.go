package device

import (
	"net/http"

	"dim/pkg/requestcontext"
)

type DeviceConfig struct {
	// CookieName names the device id cookie. Empty disables the lookup.
	CookieName string

	// FingerprintFn hashes a User-Agent into a stable device fingerprint.
	FingerprintFn func(userAgent string) string

	// LabelFn renders a User-Agent as a display label for audit records.
	LabelFn func(userAgent string) string
}

// Device enriches the context with the device id cookie, a fingerprint and
// a display label. It must run after the metadata middleware.
func Device(cfg *DeviceConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.CookieName != "" {
				if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
					ctx = requestcontext.WithDeviceID(ctx, cookie.Value)
				}
			}

			if ua := requestcontext.UserAgent(ctx); ua != "" {
				if cfg.FingerprintFn != nil {
					ctx = requestcontext.WithDeviceFingerprint(ctx, cfg.FingerprintFn(ua))
				}
				if cfg.LabelFn != nil {
					ctx = requestcontext.WithDevice(ctx, cfg.LabelFn(ua))
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
