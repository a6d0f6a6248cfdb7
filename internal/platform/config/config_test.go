package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ModeMemory, cfg.Ledger.Mode)
	assert.Equal(t, ModeMemory, cfg.Events.Mode)
	assert.Equal(t, 15*time.Minute, cfg.Proof.MaxAge)
	assert.Equal(t, 30*time.Second, cfg.Proof.MaxSkew)
	assert.Equal(t, DevSigningKey, cfg.Session.SigningKey)
	assert.Equal(t, ModeMemory, cfg.RateLimit.Store)
	assert.Equal(t, 20, cfg.RateLimit.AuthLimit)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_MODE", "http")
	t.Setenv("LEDGER_URL", "http://ledger:8090")
	t.Setenv("EVENTS_MODE", "kafka")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("KAFKA_GROUP", "agent-1")
	t.Setenv("PROOF_MAX_AGE", "5m")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://wallet.example, ,https://bank.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://ledger:8090", cfg.Ledger.URL)
	assert.Equal(t, "agent-1", cfg.Events.KafkaGroup)
	assert.Equal(t, 5*time.Minute, cfg.Proof.MaxAge)
	assert.True(t, cfg.Tracing)
	assert.Equal(t, []string{"https://wallet.example", "https://bank.example"}, cfg.Server.CORSOrigins)
}

func TestFromEnvRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown ledger mode", map[string]string{"LEDGER_MODE": "chain"}, "LEDGER_MODE"},
		{"http ledger without url", map[string]string{"LEDGER_MODE": "http", "EVENTS_MODE": "none"}, "LEDGER_URL"},
		{"broker events on private ledger", map[string]string{"EVENTS_MODE": "amqp", "AMQP_URL": "amqp://x", "AMQP_QUEUE": "q"}, "shared ledger"},
		{"postgres without database", map[string]string{"CONSENT_STORE": "postgres"}, "DATABASE_URL"},
		{"redis rate limit without redis", map[string]string{"RATE_LIMIT_STORE": "redis"}, "REDIS_URL"},
		{"zero rate limit", map[string]string{"RATE_LIMIT_AUTH": "0"}, "RATE_LIMIT_AUTH"},
		{"bad duration", map[string]string{"SESSION_TTL": "soon"}, "SESSION_TTL"},
		{"skew not below max age", map[string]string{"PROOF_MAX_AGE": "10s", "PROOF_MAX_SKEW": "10s"}, "PROOF_MAX_SKEW"},
		{"production without keys", map[string]string{"ENVIRONMENT": "production"}, "JWT_SIGNING_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLedgerNodeFromEnvRequiresAdmin(t *testing.T) {
	t.Setenv("EVENTS_MODE", "none")
	_, err := LedgerNodeFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_ADDRESS")

	t.Setenv("ADMIN_ADDRESS", "0x00000000000000000000000000000000000000aa")
	cfg, err := LedgerNodeFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Addr)
}
