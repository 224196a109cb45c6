// Package registration tracks a registration from form submission
// through payment to provisioning.
//
// A PendingRegistration is the single source of truth correlating a
// payment reference to an in-flight registration. The reference is the
// only key shared with the payment gateway; no other correlation
// exists. Status moves PENDING → COMPLETED or FAILED exactly once —
// the state-guarded Transition is what makes a duplicated payment
// callback a no-op rather than a double provision.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("registration: not found")
	ErrConflict     = errors.New("registration: reference already exists")
	ErrInvalidState = errors.New("registration: not in PENDING state")
)

// Type of registration.
type Type string

const (
	TypeCooperative Type = "COOPERATIVE"
	TypeMember      Type = "MEMBER"
)

// Status of a pending registration. PENDING is the only non-terminal
// status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// PendingRegistration is an unconfirmed registration awaiting payment.
// Payload is the serialized form data; its shape is owned by the
// registration type, not by the store.
type PendingRegistration struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"-"`
	Reference string          `json:"reference"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store persists pending registrations.
//
// Transition must be compare-and-set on status: it succeeds only when
// the current status is PENDING, returning ErrInvalidState otherwise.
// Discard removes a record for which no payment was ever requested.
type Store interface {
	Create(ctx context.Context, reg *PendingRegistration) error
	GetByReference(ctx context.Context, reference string) (*PendingRegistration, error)
	Transition(ctx context.Context, id string, to Status) error
	Discard(ctx context.Context, id string) error
	ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]*PendingRegistration, error)
}
