package agent

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/internal/blobstore"
	"dim/internal/ledger/memledger"
	"dim/internal/platform/config"
	"dim/internal/signer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildInMemoryAgent(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	a, err := Build(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.False(t, a.Address().IsZero())

	var names []string
	for _, w := range a.Workers() {
		names = append(names, w.Name)
	}
	assert.ElementsMatch(t, []string{"consent-mirror", "session-cleanup", "reconciler", "ratelimit-sweeper"}, names)

	for _, path := range []string{"/health/live", "/categories"} {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestBuildWithSharedLedger(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Events.Mode = config.ModeNone
	cfg.RateLimit.Store = config.ModeNone

	admin, err := signer.GenerateKeySigner()
	require.NoError(t, err)
	cfg.Signer.KeyHex = admin.ExportHex()
	shared := memledger.New(admin.Address())

	a, err := Build(context.Background(), cfg, quietLogger(),
		WithLedger(shared, shared),
		WithBlobStore(blobstore.NewInMemoryStore()),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, admin.Address(), a.Address())
	for _, w := range a.Workers() {
		assert.NotEqual(t, "reconciler", w.Name)
		assert.NotEqual(t, "ratelimit-sweeper", w.Name)
	}
}

func TestBuildRejectsBadSignerKey(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Signer.KeyHex = "zz"

	_, err = Build(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIGNER_KEY_HEX")
}
