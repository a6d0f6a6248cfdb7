package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"

	"dim/internal/category"
	"dim/internal/consent/models"
	"dim/internal/sentinel"
	"dim/pkg/domain"
)

// PostgresStore persists consent records in PostgreSQL, one row per scope.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed consent store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const selectConsent = `
	SELECT holder, domain, categories, granted_at, signature, version, locator, mirrored_at
	FROM consents
`

func (s *PostgresStore) Find(ctx context.Context, scope models.Scope) (*models.Record, error) {
	rec, err := scanConsent(s.execer().QueryRowContext(ctx,
		selectConsent+` WHERE holder = $1 AND domain = $2`,
		scope.Holder.String(), scope.Domain,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, dbError("find consent", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holder domain.Address) ([]*models.Record, error) {
	rows, err := s.execer().QueryContext(ctx, selectConsent+` WHERE holder = $1 ORDER BY domain`, holder.String())
	if err != nil {
		return nil, dbError("list consents", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

// Put replaces any record for the same scope in a single statement.
func (s *PostgresStore) Put(ctx context.Context, rec *models.Record) error {
	if rec == nil {
		return fmt.Errorf("consent record is required")
	}
	query := `
		INSERT INTO consents (holder, domain, categories, granted_at, signature, version, locator, mirrored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (holder, domain) DO UPDATE SET
			categories = EXCLUDED.categories,
			granted_at = EXCLUDED.granted_at,
			signature = EXCLUDED.signature,
			version = EXCLUDED.version,
			locator = EXCLUDED.locator,
			mirrored_at = EXCLUDED.mirrored_at
	`
	_, err := s.execer().ExecContext(ctx, query,
		rec.Holder.String(),
		rec.Domain,
		pq.Array(categoryStrings(rec.Categories)),
		rec.GrantedAt,
		rec.Signature,
		rec.Version,
		string(rec.Locator),
		rec.MirroredAt,
	)
	if err != nil {
		return dbError("put consent", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, scope models.Scope) (bool, error) {
	res, err := s.execer().ExecContext(ctx,
		`DELETE FROM consents WHERE holder = $1 AND domain = $2`,
		scope.Holder.String(), scope.Domain,
	)
	if err != nil {
		return false, dbError("delete consent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete consent rows: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) MarkMirrored(ctx context.Context, scope models.Scope, locator domain.Locator, at time.Time) error {
	res, err := s.execer().ExecContext(ctx,
		`UPDATE consents SET mirrored_at = $4 WHERE holder = $1 AND domain = $2 AND locator = $3`,
		scope.Holder.String(), scope.Domain, string(locator), at.UTC(),
	)
	if err != nil {
		return dbError("mark consent mirrored", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark consent mirrored rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// LockScope serializes writers of one scope until the surrounding
// transaction ends. It is a no-op outside a transaction.
func (s *PostgresStore) LockScope(ctx context.Context, scope models.Scope) error {
	if s.tx == nil {
		return nil
	}
	if _, err := s.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, scope.String()); err != nil {
		return dbError("lock consent scope", err)
	}
	return nil
}

// dbError marks connection-level failures as sentinel.ErrUnavailable so the
// service reports them as retryable.
func dbError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type consentRow interface {
	Scan(dest ...any) error
}

func scanConsent(row consentRow) (*models.Record, error) {
	var (
		rec        models.Record
		holder     string
		categories []string
		locator    string
		mirroredAt sql.NullTime
	)
	if err := row.Scan(&holder, &rec.Domain, pq.Array(&categories), &rec.GrantedAt,
		&rec.Signature, &rec.Version, &locator, &mirroredAt); err != nil {
		return nil, err
	}
	addr, err := domain.ParseAddress(holder)
	if err != nil {
		return nil, fmt.Errorf("stored holder %q: %w", holder, err)
	}
	rec.Holder = addr
	rec.GrantedAt = rec.GrantedAt.UTC()
	rec.Locator = domain.Locator(locator)
	rec.Categories = make([]category.ID, len(categories))
	for i, c := range categories {
		rec.Categories[i] = category.ID(c)
	}
	if mirroredAt.Valid {
		t := mirroredAt.Time.UTC()
		rec.MirroredAt = &t
	}
	return &rec, nil
}

func categoryStrings(ids []category.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
