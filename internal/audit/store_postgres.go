package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"dim/pkg/domain"
)

// PostgresStore persists audit events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (id, timestamp, actor, action, subject, domain, decision, reason, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		event.Actor.String(),
		string(event.Action),
		event.Subject,
		event.Domain,
		event.Decision,
		event.Reason,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByActor returns the actor's events, oldest first.
func (s *PostgresStore) ListByActor(ctx context.Context, actor domain.Address) ([]Event, error) {
	query := `
		SELECT timestamp, actor, action, subject, domain, decision, reason, device
		FROM audit_events
		WHERE actor = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, actor.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event  Event
			actor  string
			action string
		)
		if err := rows.Scan(&event.Timestamp, &actor, &action, &event.Subject,
			&event.Domain, &event.Decision, &event.Reason, &event.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Actor = domain.Address(actor)
		event.Action = Action(action)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
