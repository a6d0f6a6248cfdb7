package ledgerapi

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"dim/internal/signer"
	"dim/pkg/domain"
	"dim/pkg/platform/httputil"
)

// DefaultMaxSkew bounds how far a call timestamp may drift from the node clock.
const DefaultMaxSkew = 5 * time.Minute

const maxCallBodyBytes = 1 << 20

type callerKey struct{}

// CallerFromContext returns the verified caller of a mutating request.
func CallerFromContext(ctx context.Context) (domain.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(domain.Address)
	return addr, ok
}

// replayGuard remembers call digests until they fall out of the skew window.
// The digest covers caller, timestamp, method, path and body, so a call is
// recognized however its signature is re-encoded.
type replayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func (g *replayGuard) firstUse(digest string, now time.Time, window time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, at := range g.seen {
		if now.Sub(at) > 2*window {
			delete(g.seen, k)
		}
	}
	if _, dup := g.seen[digest]; dup {
		return false
	}
	g.seen[digest] = now
	return true
}

// RequireSignedCall verifies the caller headers of mutating requests and
// stores the caller in the request context. Reads pass through.
func RequireSignedCall(logger *slog.Logger, maxSkew time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	guard := &replayGuard{seen: make(map[string]time.Time)}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			body, err := io.ReadAll(io.LimitReader(r.Body, maxCallBodyBytes))
			if err != nil {
				writeFault(w, http.StatusBadRequest, "invalid_argument", "failed to read body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			caller, err := domain.ParseAddress(r.Header.Get(HeaderCaller))
			if err != nil {
				writeFault(w, http.StatusUnauthorized, "unauthorized", "missing or invalid caller")
				return
			}
			ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
			if err != nil {
				writeFault(w, http.StatusUnauthorized, "unauthorized", "missing or invalid timestamp")
				return
			}
			current := now()
			if d := current.Sub(time.UnixMilli(ts)); d > maxSkew || d < -maxSkew {
				writeFault(w, http.StatusUnauthorized, "unauthorized", "call timestamp outside allowed skew")
				return
			}
			sig, err := signer.DecodeSignature(r.Header.Get(HeaderSignature))
			if err != nil {
				writeFault(w, http.StatusUnauthorized, "unauthorized", "missing or invalid signature")
				return
			}
			payload := CallPayload(r.Method, r.URL.Path, body, ts, caller)
			if err := signer.Verify(payload, sig, caller); err != nil {
				logger.WarnContext(r.Context(), "rejected ledger call", "caller", caller, "path", r.URL.Path, "error", err)
				writeFault(w, http.StatusUnauthorized, "unauthorized", "signature does not match caller")
				return
			}
			if !guard.firstUse(signer.Keccak256Hex(payload), current, maxSkew) {
				writeFault(w, http.StatusUnauthorized, "unauthorized", "call already submitted")
				return
			}
			ctx := context.WithValue(r.Context(), callerKey{}, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeFault(w http.ResponseWriter, status int, code, msg string) {
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: code, Description: msg})
}
