package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coopcentral/coopcentral/internal/idgen"
	"github.com/lib/pq"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed ledger store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger table. cmd/migrate owns the canonical
// schema; this keeps dev setups working without running goose.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_transactions (
			id              VARCHAR(40) PRIMARY KEY,
			amount_kobo     BIGINT NOT NULL CHECK (amount_kobo > 0),
			type            VARCHAR(20) NOT NULL,
			status          VARCHAR(20) NOT NULL,
			reference       VARCHAR(64) UNIQUE,
			user_id         VARCHAR(40) NOT NULL,
			cooperative_id  VARCHAR(40),
			description     TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_ledger_type ON ledger_transactions(type, status, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_coop ON ledger_transactions(cooperative_id);
	`)
	return err
}

// Record inserts a transaction row.
func (p *PostgresStore) Record(ctx context.Context, tx *Transaction) error {
	if tx.ID == "" {
		tx.ID = idgen.WithPrefix("txn_")
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ledger_transactions
			(id, amount_kobo, type, status, reference, user_id, cooperative_id, description, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)
	`, tx.ID, tx.AmountKobo, tx.Type, tx.Status, tx.Reference, tx.UserID, tx.CooperativeID, tx.Description, tx.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// GetByReference looks up a transaction by its payment reference.
func (p *PostgresStore) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, amount_kobo, type, status, COALESCE(reference, ''), user_id, COALESCE(cooperative_id, ''), COALESCE(description, ''), created_at
		FROM ledger_transactions WHERE reference = $1
	`, reference)
	return scanTransaction(row)
}

// ListByType returns successful transactions of a type, newest first.
// Keyset pagination on (created_at, id) keeps deep pages cheap.
func (p *PostgresStore) ListByType(ctx context.Context, t Type, before time.Time, beforeID string, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, amount_kobo, type, status, COALESCE(reference, ''), user_id, COALESCE(cooperative_id, ''), COALESCE(description, ''), created_at
		FROM ledger_transactions
		WHERE type = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	args := []interface{}{t, StatusSuccessful, limit}
	if beforeID != "" {
		query = `
			SELECT id, amount_kobo, type, status, COALESCE(reference, ''), user_id, COALESCE(cooperative_id, ''), COALESCE(description, ''), created_at
			FROM ledger_transactions
			WHERE type = $1 AND status = $2 AND (created_at, id) < ($4, $5)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`
		args = append(args, before, beforeID)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListByCooperative returns a cooperative's transactions, newest first.
func (p *PostgresStore) ListByCooperative(ctx context.Context, cooperativeID string, limit int) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, amount_kobo, type, status, COALESCE(reference, ''), user_id, COALESCE(cooperative_id, ''), COALESCE(description, ''), created_at
		FROM ledger_transactions
		WHERE cooperative_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, cooperativeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	tx := &Transaction{}
	err := row.Scan(&tx.ID, &tx.AmountKobo, &tx.Type, &tx.Status, &tx.Reference,
		&tx.UserID, &tx.CooperativeID, &tx.Description, &tx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]*Transaction, error) {
	var out []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
