package allocation

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store with PostgreSQL. The settings live in
// a single versioned row; Replace swaps the whole row in one statement
// so concurrent readers see either the old set or the new one, never a
// mixture.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed allocation store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the settings table. cmd/migrate owns the canonical
// schema; this keeps dev setups working without running goose.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS allocation_settings (
			singleton          BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			apex               DOUBLE PRECISION NOT NULL,
			platform           DOUBLE PRECISION NOT NULL,
			cooperative_share  DOUBLE PRECISION NOT NULL,
			leader_share       DOUBLE PRECISION NOT NULL,
			parent_org_share   DOUBLE PRECISION NOT NULL,
			version            INTEGER NOT NULL DEFAULT 1,
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func (p *PostgresStore) Get(ctx context.Context) (*Settings, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT apex, platform, cooperative_share, leader_share, parent_org_share, version, updated_at
		FROM allocation_settings WHERE singleton
	`)

	s := &Settings{}
	err := row.Scan(&s.Apex, &s.Platform, &s.CooperativeShare, &s.LeaderShare, &s.ParentOrgShare, &s.Version, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresStore) Replace(ctx context.Context, next Settings) (*Settings, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO allocation_settings
			(singleton, apex, platform, cooperative_share, leader_share, parent_org_share, version, updated_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, 1, NOW())
		ON CONFLICT (singleton) DO UPDATE SET
			apex = EXCLUDED.apex,
			platform = EXCLUDED.platform,
			cooperative_share = EXCLUDED.cooperative_share,
			leader_share = EXCLUDED.leader_share,
			parent_org_share = EXCLUDED.parent_org_share,
			version = allocation_settings.version + 1,
			updated_at = NOW()
		RETURNING apex, platform, cooperative_share, leader_share, parent_org_share, version, updated_at
	`, next.Apex, next.Platform, next.CooperativeShare, next.LeaderShare, next.ParentOrgShare)

	s := &Settings{}
	if err := row.Scan(&s.Apex, &s.Platform, &s.CooperativeShare, &s.LeaderShare, &s.ParentOrgShare, &s.Version, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to replace allocation settings: %w", err)
	}
	return s, nil
}
