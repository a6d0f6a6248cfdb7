// Package database opens the agent's PostgreSQL pool for the consent and
// audit stores.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dim/internal/platform/config"
	"dim/internal/sentinel"
)

const (
	defaultConnectAttempts = 5
	pingTimeout            = 5 * time.Second
)

// Pool wraps the *sql.DB shared by the postgres-backed stores.
type Pool struct {
	db *sql.DB
}

type Option func(*options)

type options struct {
	attempts   uint64
	initial    time.Duration
	registerer prometheus.Registerer
}

// WithConnectAttempts bounds how often the first ping is tried before New gives up.
func WithConnectAttempts(n uint64, initialInterval time.Duration) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
		if initialInterval > 0 {
			o.initial = initialInterval
		}
	}
}

// WithRegisterer exports pool statistics to r instead of the default registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// New opens a pool from cfg and waits for the database to answer a ping.
// It returns nil, nil when no URL is configured.
func New(ctx context.Context, cfg config.DatabaseConfig, opts ...Option) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	o := options{
		attempts:   defaultConnectAttempts,
		initial:    200 * time.Millisecond,
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.initial
	ping := func() error {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(ctx)
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(policy, o.attempts-1), ctx)); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w: %w", sentinel.ErrUnavailable, err)
	}

	if o.registerer != nil {
		err := o.registerer.Register(collectors.NewDBStatsCollector(db, "dim"))
		var already prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &already) {
			db.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}
	return &Pool{db: db}, nil
}

func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health pings the database. Backs the postgres readiness check.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database: %w", sentinel.ErrUnavailable)
	}
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
