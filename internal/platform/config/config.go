// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend modes.
const (
	ModeMemory   = "memory"
	ModeHTTP     = "http"
	ModeRedis    = "redis"
	ModePostgres = "postgres"
	ModeKafka    = "kafka"
	ModeAMQP     = "amqp"
	ModeNone     = "none"
)

// Config is the agent configuration.
type Config struct {
	Server   Server
	Signer   Signer
	Ledger   Ledger
	Blob     Blob
	Consent  Consent
	Audit    Audit
	Database DatabaseConfig
	Redis    RedisConfig
	Events   Events
	Session  Session
	Proof     Proof
	RateLimit RateLimit
	Tracing   bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr         string
	Environment  string
	AdminToken   string
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Signer struct {
	// KeyHex is the agent's secp256k1 private key. Empty means a throwaway
	// key is generated at start-up, which only makes sense for development.
	KeyHex string
	// AdminAddress is the ledger admin, used by the in-memory ledger.
	AdminAddress string
}

type Ledger struct {
	Mode    string
	URL     string
	Timeout time.Duration
}

type Blob struct {
	Mode    string
	URL     string
	Timeout time.Duration
}

type Consent struct {
	Store          string
	MirrorInterval time.Duration
}

type Audit struct {
	Store      string
	BufferSize int
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis client settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Events struct {
	Mode         string
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroup   string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type Session struct {
	Store         string
	SigningKey    string
	Issuer        string
	Audience      string
	TTL           time.Duration
	ChallengeTTL  time.Duration
	SweepInterval time.Duration
}

type Proof struct {
	MaxAge  time.Duration
	MaxSkew time.Duration
}

// RateLimit bounds per-IP traffic on the unauthenticated login and proof
// verification routes. Store none disables it.
type RateLimit struct {
	Store       string
	Window      time.Duration
	AuthLimit   int
	VerifyLimit int
}

// DevSigningKey is used when JWT_SIGNING_KEY is unset outside production.
const DevSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds the configuration from environment variables so main stays
// lean. It returns every problem found, not only the first.
func FromEnv() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Server: Server{
			Addr:         e.str("ADDR", ":8080"),
			Environment:  e.str("ENVIRONMENT", "development"),
			AdminToken:   e.str("ADMIN_TOKEN", ""),
			CORSOrigins:  e.list("CORS_ALLOWED_ORIGINS"),
			ReadTimeout:  e.duration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: e.duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Signer: Signer{
			KeyHex:       e.str("SIGNER_KEY_HEX", ""),
			AdminAddress: e.str("ADMIN_ADDRESS", ""),
		},
		Ledger: Ledger{
			Mode:    e.str("LEDGER_MODE", ModeMemory),
			URL:     e.str("LEDGER_URL", ""),
			Timeout: e.duration("LEDGER_TIMEOUT", 10*time.Second),
		},
		Blob: Blob{
			Mode:    e.str("BLOB_MODE", ModeMemory),
			URL:     e.str("BLOB_URL", ""),
			Timeout: e.duration("BLOB_TIMEOUT", 10*time.Second),
		},
		Consent: Consent{
			Store:          e.str("CONSENT_STORE", ModeMemory),
			MirrorInterval: e.duration("CONSENT_MIRROR_INTERVAL", time.Minute),
		},
		Audit: Audit{
			Store:      e.str("AUDIT_STORE", ModeMemory),
			BufferSize: e.integer("AUDIT_BUFFER_SIZE", 1024),
		},
		Database: DatabaseConfig{
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.integer("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    e.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 20),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Events: Events{
			Mode:         e.str("EVENTS_MODE", ModeMemory),
			KafkaBrokers: e.str("KAFKA_BROKERS", ""),
			KafkaTopic:   e.str("KAFKA_TOPIC", "dim.ledger.events"),
			KafkaGroup:   e.str("KAFKA_GROUP", ""),
			AMQPURL:      e.str("AMQP_URL", ""),
			AMQPExchange: e.str("AMQP_EXCHANGE", "dim.ledger.events"),
			AMQPQueue:    e.str("AMQP_QUEUE", ""),
		},
		Session: Session{
			Store:         e.str("SESSION_STORE", ModeMemory),
			SigningKey:    e.str("JWT_SIGNING_KEY", ""),
			Issuer:        e.str("JWT_ISSUER", "dim"),
			Audience:      e.str("JWT_AUDIENCE", "dim-relying-parties"),
			TTL:           e.duration("SESSION_TTL", time.Hour),
			ChallengeTTL:  e.duration("SESSION_CHALLENGE_TTL", 5*time.Minute),
			SweepInterval: e.duration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Proof: Proof{
			MaxAge:  e.duration("PROOF_MAX_AGE", 15*time.Minute),
			MaxSkew: e.duration("PROOF_MAX_SKEW", 30*time.Second),
		},
		RateLimit: RateLimit{
			Store:       e.str("RATE_LIMIT_STORE", ModeMemory),
			Window:      e.duration("RATE_LIMIT_WINDOW", time.Minute),
			AuthLimit:   e.integer("RATE_LIMIT_AUTH", 20),
			VerifyLimit: e.integer("RATE_LIMIT_VERIFY", 120),
		},
		Tracing: e.boolean("TRACING_ENABLED", false),
	}

	if cfg.Session.SigningKey == "" {
		if cfg.IsProduction() {
			e.fail("JWT_SIGNING_KEY is required in production")
		}
		cfg.Session.SigningKey = DevSigningKey
	}
	cfg.validate(e)
	return cfg, e.err()
}

// IsProduction reports whether dev fallbacks must be refused.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c Config) validate(e *envReader) {
	e.oneOf("LEDGER_MODE", c.Ledger.Mode, ModeMemory, ModeHTTP)
	e.oneOf("BLOB_MODE", c.Blob.Mode, ModeMemory, ModeRedis, ModeHTTP)
	e.oneOf("CONSENT_STORE", c.Consent.Store, ModeMemory, ModePostgres)
	e.oneOf("AUDIT_STORE", c.Audit.Store, ModeMemory, ModePostgres)
	e.oneOf("SESSION_STORE", c.Session.Store, ModeMemory, ModeRedis)
	e.oneOf("EVENTS_MODE", c.Events.Mode, ModeMemory, ModeKafka, ModeAMQP, ModeNone)
	e.oneOf("RATE_LIMIT_STORE", c.RateLimit.Store, ModeMemory, ModeRedis, ModeNone)

	if c.Ledger.Mode == ModeHTTP && c.Ledger.URL == "" {
		e.fail("LEDGER_URL is required when LEDGER_MODE=http")
	}
	if c.Ledger.Mode == ModeMemory && c.Events.Mode != ModeMemory && c.Events.Mode != ModeNone {
		e.fail("EVENTS_MODE=" + c.Events.Mode + " needs a shared ledger (LEDGER_MODE=http)")
	}
	if c.Ledger.Mode == ModeHTTP && c.Events.Mode == ModeMemory {
		e.fail("EVENTS_MODE=memory only works with LEDGER_MODE=memory")
	}
	if c.Blob.Mode == ModeHTTP && c.Blob.URL == "" {
		e.fail("BLOB_URL is required when BLOB_MODE=http")
	}
	if (c.Consent.Store == ModePostgres || c.Audit.Store == ModePostgres) && c.Database.URL == "" {
		e.fail("DATABASE_URL is required for postgres-backed consents or audit")
	}
	if (c.Blob.Mode == ModeRedis || c.Session.Store == ModeRedis || c.RateLimit.Store == ModeRedis) && c.Redis.URL == "" {
		e.fail("REDIS_URL is required for redis-backed blobs, sessions or rate limits")
	}
	if c.RateLimit.Store != ModeNone && (c.RateLimit.AuthLimit <= 0 || c.RateLimit.VerifyLimit <= 0 || c.RateLimit.Window <= 0) {
		e.fail("RATE_LIMIT_AUTH, RATE_LIMIT_VERIFY and RATE_LIMIT_WINDOW must be positive")
	}
	if c.Events.Mode == ModeKafka && (c.Events.KafkaBrokers == "" || c.Events.KafkaGroup == "") {
		e.fail("KAFKA_BROKERS and KAFKA_GROUP are required when EVENTS_MODE=kafka")
	}
	if c.Events.Mode == ModeAMQP && (c.Events.AMQPURL == "" || c.Events.AMQPQueue == "") {
		e.fail("AMQP_URL and AMQP_QUEUE are required when EVENTS_MODE=amqp")
	}
	if c.Proof.MaxSkew >= c.Proof.MaxAge {
		e.fail("PROOF_MAX_SKEW must be smaller than PROOF_MAX_AGE")
	}
	if c.IsProduction() && c.Signer.KeyHex == "" {
		e.fail("SIGNER_KEY_HEX is required in production")
	}
}

// LedgerNode is the configuration of the development ledger node.
type LedgerNode struct {
	Addr         string
	Environment  string
	AdminAddress string
	Events       Events
}

// LedgerNodeFromEnv reads the ledger node configuration.
func LedgerNodeFromEnv() (LedgerNode, error) {
	e := &envReader{}
	cfg := LedgerNode{
		Addr:         e.str("ADDR", ":8090"),
		Environment:  e.str("ENVIRONMENT", "development"),
		AdminAddress: e.str("ADMIN_ADDRESS", ""),
		Events: Events{
			Mode:         e.str("EVENTS_MODE", ModeKafka),
			KafkaBrokers: e.str("KAFKA_BROKERS", ""),
			KafkaTopic:   e.str("KAFKA_TOPIC", "dim.ledger.events"),
			AMQPURL:      e.str("AMQP_URL", ""),
			AMQPExchange: e.str("AMQP_EXCHANGE", "dim.ledger.events"),
		},
	}
	if cfg.AdminAddress == "" {
		e.fail("ADMIN_ADDRESS is required")
	}
	e.oneOf("EVENTS_MODE", cfg.Events.Mode, ModeKafka, ModeAMQP, ModeNone)
	if cfg.Events.Mode == ModeKafka && cfg.Events.KafkaBrokers == "" {
		e.fail("KAFKA_BROKERS is required when EVENTS_MODE=kafka")
	}
	if cfg.Events.Mode == ModeAMQP && cfg.Events.AMQPURL == "" {
		e.fail("AMQP_URL is required when EVENTS_MODE=amqp")
	}
	return cfg, e.err()
}

// envReader collects parse errors while reading variables with defaults.
type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// list splits a comma-separated value, dropping blanks.
func (e *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	if d <= 0 {
		e.errs = append(e.errs, fmt.Errorf("%s: must be positive", key))
		return def
	}
	return d
}

func (e *envReader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *envReader) oneOf(key, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	e.fail(fmt.Sprintf("%s: %q is not one of %s", key, value, strings.Join(allowed, ", ")))
}

func (e *envReader) fail(msg string) {
	e.errs = append(e.errs, errors.New(msg))
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(e.errs...))
}
