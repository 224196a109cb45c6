package registration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed registration store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the registrations table. cmd/migrate owns the
// canonical schema; this keeps dev setups working without running goose.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pending_registrations (
			id         VARCHAR(40) PRIMARY KEY,
			type       VARCHAR(20) NOT NULL,
			payload    JSONB NOT NULL,
			reference  VARCHAR(64) NOT NULL UNIQUE,
			status     VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_pending_status ON pending_registrations(status, created_at);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, reg *PendingRegistration) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO pending_registrations (id, type, payload, reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, reg.ID, reg.Type, []byte(reg.Payload), reg.Reference, reg.Status, reg.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetByReference(ctx context.Context, reference string) (*PendingRegistration, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, type, payload, reference, status, created_at, updated_at
		FROM pending_registrations WHERE reference = $1
	`, reference)

	reg := &PendingRegistration{}
	var payload []byte
	err := row.Scan(&reg.ID, &reg.Type, &payload, &reg.Reference, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	reg.Payload = payload
	return reg, nil
}

// Transition is a compare-and-set on status: the WHERE clause only
// matches a PENDING row, so a second callback for the same reference
// updates zero rows and gets ErrInvalidState.
func (p *PostgresStore) Transition(ctx context.Context, id string, to Status) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE pending_registrations SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, to, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to transition registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM pending_registrations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInvalidState
	}
	return nil
}

func (p *PostgresStore) Discard(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM pending_registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to discard registration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]*PendingRegistration, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, type, payload, reference, status, created_at, updated_at
		FROM pending_registrations
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, StatusPending, time.Now().Add(-age), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PendingRegistration
	for rows.Next() {
		reg := &PendingRegistration{}
		var payload []byte
		if err := rows.Scan(&reg.ID, &reg.Type, &payload, &reg.Reference, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		reg.Payload = payload
		out = append(out, reg)
	}
	return out, rows.Err()
}
