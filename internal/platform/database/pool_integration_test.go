//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dim/internal/platform/config"
	"dim/pkg/testutil/containers"
)

func TestPoolAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	reg := prometheus.NewRegistry()

	pool, err := New(context.Background(), config.DatabaseConfig{URL: pg.DSN, MaxOpenConns: 4, MaxIdleConns: 2}, WithRegisterer(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, pool.Health(context.Background()))
	assert.Equal(t, 4, pool.DB().Stats().MaxOpenConnections)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_sql_max_open_connections")

	second, err := New(context.Background(), config.DatabaseConfig{URL: pg.DSN}, WithRegisterer(reg))
	require.NoError(t, err, "a second pool on the same registry is tolerated")
	require.NoError(t, second.Close())
}
