package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
	dErrors "dim/pkg/domain-errors"
)

// HeaderToken carries the operator token on maintenance routes.
const HeaderToken = "X-Admin-Token"

// RequireAdminToken guards operator routes with a shared token. An empty
// expected token rejects every request.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
