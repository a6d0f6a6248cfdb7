package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "yes", r.Header.Get("X-Decorated"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value":"pong"}`))
		case "/conflict":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"already_reviewed","error_description":"request already reviewed"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{Service: "ledger", BaseURL: srv.URL + "/"})

	t.Run("success decodes body", func(t *testing.T) {
		var out struct{ Value string }
		err := c.DoJSON(context.Background(), http.MethodPost, "/ok", map[string]string{"ping": "x"}, &out,
			func(req *http.Request, _ []byte) error {
				req.Header.Set("X-Decorated", "yes")
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, "pong", out.Value)
	})

	t.Run("rejection carries remote code", func(t *testing.T) {
		err := c.DoJSON(context.Background(), http.MethodPost, "/conflict", nil, nil)
		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, ErrorRejected, re.Category)
		assert.Equal(t, "already_reviewed", re.Code)
		assert.Equal(t, "request already reviewed", re.Message)
		assert.False(t, re.Retryable)
	})

	t.Run("not found", func(t *testing.T) {
		err := c.DoJSON(context.Background(), http.MethodGet, "/missing", nil, nil)
		assert.Equal(t, ErrorNotFound, CategoryOf(err))
	})

	t.Run("outage is retryable", func(t *testing.T) {
		err := c.DoJSON(context.Background(), http.MethodGet, "/down", nil, nil)
		assert.Equal(t, ErrorOutage, CategoryOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("deadline is a timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := c.DoJSON(ctx, http.MethodGet, "/slow", nil, nil)
		assert.Equal(t, ErrorTimeout, CategoryOf(err))
	})
}

func TestRetry(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), policy, func() error {
			calls++
			if calls < 3 {
				return NewError(ErrorOutage, "blob", "down", nil)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), policy, func() error {
			calls++
			return NewError(ErrorRejected, "blob", "bad", nil)
		})
		assert.Equal(t, ErrorRejected, CategoryOf(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), policy, func() error {
			calls++
			return NewError(ErrorTimeout, "blob", "slow", nil)
		})
		assert.Equal(t, ErrorTimeout, CategoryOf(err))
		assert.Equal(t, 4, calls)
	})
}
