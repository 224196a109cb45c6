// Package ledger records the platform's financial transactions.
//
// Amounts are integer kobo. A registration fee row always carries the
// base amount — the gateway surcharge is reversed out before the row
// is written, so the ledger never includes the processor's markup.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("ledger: transaction not found")
	ErrDuplicateReference = errors.New("ledger: reference already recorded")
	ErrInvalidAmount      = errors.New("ledger: invalid amount")
)

// Type classifies a ledger transaction.
type Type string

const (
	TypeFee          Type = "FEE"
	TypeContribution Type = "CONTRIBUTION"
	TypeWithdrawal   Type = "WITHDRAWAL"
)

// Status of a ledger transaction.
type Status string

const (
	StatusSuccessful Status = "SUCCESSFUL"
	StatusPending    Status = "PENDING"
	StatusFailed     Status = "FAILED"
)

// Transaction is a single ledger row.
type Transaction struct {
	ID            string    `json:"id"`
	AmountKobo    int64     `json:"amountKobo"`
	Type          Type      `json:"type"`
	Status        Status    `json:"status"`
	Reference     string    `json:"reference"`
	UserID        string    `json:"userId"`
	CooperativeID string    `json:"cooperativeId,omitempty"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists ledger transactions.
type Store interface {
	Record(ctx context.Context, tx *Transaction) error
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	// ListByType returns successful transactions of a type, newest
	// first. A non-empty beforeID resumes after that row (keyset
	// pagination on created_at, id).
	ListByType(ctx context.Context, t Type, before time.Time, beforeID string, limit int) ([]*Transaction, error)
	ListByCooperative(ctx context.Context, cooperativeID string, limit int) ([]*Transaction, error)
}

// Ledger wraps a Store with validation.
type Ledger struct {
	store Store
}

// New creates a new ledger.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Record validates and persists a transaction.
func (l *Ledger) Record(ctx context.Context, tx *Transaction) error {
	if tx.AmountKobo <= 0 {
		return ErrInvalidAmount
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	if tx.Status == "" {
		tx.Status = StatusSuccessful
	}
	return l.store.Record(ctx, tx)
}

// GetByReference looks up the transaction recorded for a payment reference.
func (l *Ledger) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	return l.store.GetByReference(ctx, reference)
}

// ListFees returns successful FEE transactions, newest first.
func (l *Ledger) ListFees(ctx context.Context, limit int) ([]*Transaction, error) {
	return l.ListFeesBefore(ctx, time.Time{}, "", limit)
}

// ListFeesBefore returns successful FEE transactions older than the
// given (createdAt, id) position, newest first. Zero values start at
// the newest row.
func (l *Ledger) ListFeesBefore(ctx context.Context, before time.Time, beforeID string, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return l.store.ListByType(ctx, TypeFee, before, beforeID, limit)
}
