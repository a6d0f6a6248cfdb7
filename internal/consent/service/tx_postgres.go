package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dim/internal/consent/models"
	"dim/internal/consent/store"
	"dim/internal/sentinel"
	dErrors "dim/pkg/domain-errors"
)

// NewPostgresTx runs each consent transaction in one SQL transaction that
// holds an advisory lock on the scope. A failed or abandoned fn rolls back.
func NewPostgresTx(db *sql.DB) ConsentStoreTx {
	return &postgresConsentTx{db: db}
}

type postgresConsentTx struct {
	db      *sql.DB
	timeout time.Duration
}

func (t *postgresConsentTx) RunInTx(ctx context.Context, scope models.Scope, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultConsentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consent tx: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	st := store.NewPostgresTx(tx)
	if err := st.LockScope(ctx, scope); err != nil {
		return err
	}
	if err := fn(ctx, st); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consent tx: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
