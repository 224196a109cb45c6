package provisioning

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/coopcentral/coopcentral/internal/idgen"
)

// PostgresStore implements Store with PostgreSQL. CreateEntities runs
// the whole aggregate, fee row included, in a single transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed provisioning store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the provisioning tables. cmd/migrate owns the
// canonical schema; this keeps dev setups working without running goose.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS provisioning_intents (
			id           VARCHAR(40) PRIMARY KEY,
			reference    VARCHAR(64) NOT NULL,
			committed    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			committed_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS cooperatives (
			id             VARCHAR(40) PRIMARY KEY,
			name           TEXT NOT NULL,
			reg_number     VARCHAR(40) NOT NULL UNIQUE,
			email          TEXT NOT NULL,
			phone          VARCHAR(20) NOT NULL,
			address        TEXT,
			account_number VARCHAR(20) NOT NULL,
			bank_code      VARCHAR(10),
			parent_org_id  VARCHAR(40),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS users (
			id             VARCHAR(40) PRIMARY KEY,
			first_name     TEXT NOT NULL,
			last_name      TEXT NOT NULL,
			email          TEXT NOT NULL UNIQUE,
			phone          VARCHAR(20) NOT NULL,
			password_hash  TEXT NOT NULL,
			role           VARCHAR(30) NOT NULL,
			cooperative_id VARCHAR(40) REFERENCES cooperatives(id),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS leaders (
			id             VARCHAR(40) PRIMARY KEY,
			user_id        VARCHAR(40) NOT NULL REFERENCES users(id),
			cooperative_id VARCHAR(40) NOT NULL REFERENCES cooperatives(id),
			nin            VARCHAR(11),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_intents_uncommitted ON provisioning_intents(created_at) WHERE NOT committed;
		CREATE INDEX IF NOT EXISTS idx_users_coop ON users(cooperative_id);
	`)
	return err
}

func (p *PostgresStore) BeginIntent(ctx context.Context, reference string) (*Intent, error) {
	intent := &Intent{
		ID:        idgen.WithPrefix("intent_"),
		Reference: reference,
		CreatedAt: time.Now(),
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO provisioning_intents (id, reference, committed, created_at)
		VALUES ($1, $2, FALSE, $3)
	`, intent.ID, intent.Reference, intent.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to begin intent: %w", err)
	}
	return intent, nil
}

func (p *PostgresStore) CreateEntities(ctx context.Context, intentID string, e *Entities) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if e.Cooperative != nil {
		c := e.Cooperative
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cooperatives
				(id, name, reg_number, email, phone, address, account_number, bank_code, parent_org_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
		`, c.ID, c.Name, c.RegNumber, c.Email, c.Phone, c.Address, c.AccountNumber, c.BankCode, c.ParentOrgID, c.CreatedAt)
		if err != nil {
			return translateConflict(err, "cooperative")
		}
	}

	for _, u := range e.Users {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users
				(id, first_name, last_name, email, phone, password_hash, role, cooperative_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		`, u.ID, u.FirstName, u.LastName, u.Email, u.Phone, u.PasswordHash, u.Role, u.CooperativeID, u.CreatedAt)
		if err != nil {
			return translateConflict(err, "user")
		}
	}

	if e.Leader != nil {
		l := e.Leader
		_, err = tx.ExecContext(ctx, `
			INSERT INTO leaders (id, user_id, cooperative_id, nin, created_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		`, l.ID, l.UserID, l.CooperativeID, l.NIN, l.CreatedAt)
		if err != nil {
			return translateConflict(err, "leader")
		}
	}

	if e.Fee != nil {
		f := e.Fee
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_transactions
				(id, amount_kobo, type, status, reference, user_id, cooperative_id, description, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)
		`, f.ID, f.AmountKobo, f.Type, f.Status, f.Reference, f.UserID, f.CooperativeID, f.Description, f.CreatedAt)
		if err != nil {
			return translateConflict(err, "ledger transaction")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entities: %w", err)
	}
	return nil
}

func (p *PostgresStore) MarkCommitted(ctx context.Context, intentID string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE provisioning_intents SET committed = TRUE, committed_at = NOW()
		WHERE id = $1
	`, intentID)
	if err != nil {
		return fmt.Errorf("failed to mark intent committed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: intent %s", ErrNotFound, intentID)
	}
	return nil
}

func (p *PostgresStore) ListUncommitted(ctx context.Context, olderThan time.Duration) ([]*Intent, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, reference, committed, created_at, COALESCE(committed_at, 'epoch'::timestamptz)
		FROM provisioning_intents
		WHERE NOT committed AND created_at < $1
		ORDER BY created_at
	`, time.Now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Intent
	for rows.Next() {
		intent := &Intent{}
		if err := rows.Scan(&intent.ID, &intent.Reference, &intent.Committed, &intent.CreatedAt, &intent.CommittedAt); err != nil {
			return nil, err
		}
		out = append(out, intent)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetCooperative(ctx context.Context, id string) (*Cooperative, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, reg_number, email, phone, COALESCE(address, ''), account_number,
		       COALESCE(bank_code, ''), COALESCE(parent_org_id, ''), created_at
		FROM cooperatives WHERE id = $1
	`, id)

	c := &Cooperative{}
	err := row.Scan(&c.ID, &c.Name, &c.RegNumber, &c.Email, &c.Phone, &c.Address,
		&c.AccountNumber, &c.BankCode, &c.ParentOrgID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, password_hash, role,
		       COALESCE(cooperative_id, ''), created_at
		FROM users WHERE email = $1
	`, email)

	u := &User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone,
		&u.PasswordHash, &u.Role, &u.CooperativeID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func translateConflict(err error, entity string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, entity)
	}
	return fmt.Errorf("failed to create %s: %w", entity, err)
}
