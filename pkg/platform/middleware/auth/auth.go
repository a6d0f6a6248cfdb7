package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"dim/pkg/domain"
	"dim/pkg/platform/httputil"
	"dim/pkg/requestcontext"
	dErrors "dim/pkg/domain-errors"
)

// TokenValidator validates session bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RevocationChecker reports whether a session token was revoked before expiry.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims are the fields the middleware needs from a validated token.
type Claims struct {
	Subject   string
	SessionID string
	JTI       string
}

type revocationResult int

const (
	revocationOK revocationResult = iota
	revocationMissingJTI
	revocationRevoked
	revocationError
)

func checkRevocation(ctx context.Context, checker RevocationChecker, jti string, logger *slog.Logger) revocationResult {
	if checker == nil {
		return revocationOK
	}
	requestID := requestcontext.RequestID(ctx)
	if jti == "" {
		logger.WarnContext(ctx, "unauthorized access - missing token jti", "request_id", requestID)
		return revocationMissingJTI
	}
	revoked, err := checker.IsTokenRevoked(ctx, jti)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check token revocation", "error", err, "request_id", requestID)
		return revocationError
	}
	if revoked {
		logger.WarnContext(ctx, "unauthorized access - token revoked", "jti", jti, "request_id", requestID)
		return revocationRevoked
	}
	return revocationOK
}

func parseClaims(claims *Claims) (domain.Address, domain.SessionID, error) {
	caller, err := domain.ParseAddress(claims.Subject)
	if err != nil {
		return "", domain.SessionID{}, fmt.Errorf("invalid subject: %w", err)
	}
	sessionID, err := domain.ParseSessionID(claims.SessionID)
	if err != nil {
		return "", domain.SessionID{}, fmt.Errorf("invalid session id: %w", err)
	}
	return caller, sessionID, nil
}

// RequireSession admits requests carrying a valid, unrevoked bearer token
// and stores the wallet address and session id in the context.
func RequireSession(validator TokenValidator, revocations RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token", "error", err, "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			switch checkRevocation(ctx, revocations, claims.JTI, logger) {
			case revocationMissingJTI, revocationRevoked:
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
				return
			case revocationError:
				httputil.WriteError(w, dErrors.New(dErrors.CodeStoreUnavailable, "failed to validate token"))
				return
			}

			caller, sessionID, err := parseClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims", "error", err, "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithCaller(ctx, caller)
			ctx = requestcontext.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
