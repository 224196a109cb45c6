// Package provisioning creates everything a verified payment implies:
// the cooperative, its user accounts, the leader record, and the FEE
// ledger row. Creation is all-or-nothing — no partial entity set is
// ever visible to readers.
//
// Each run writes an intent row before touching any entity and marks
// it committed afterwards. An intent left uncommitted after a crash is
// an inspectable trail for manual reconciliation, not silent partial
// state.
package provisioning

import (
	"context"
	"errors"
	"time"

	"github.com/coopcentral/coopcentral/internal/ledger"
)

var (
	ErrProvisioningFailed = errors.New("provisioning: entity creation failed")
	ErrConflict           = errors.New("provisioning: entity already exists")
	ErrNotFound           = errors.New("provisioning: not found")
)

// User roles.
const (
	RoleCooperativeAdmin = "cooperative_admin"
	RoleMember           = "member"
)

// Cooperative is a registered cooperative society.
type Cooperative struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RegNumber     string    `json:"regNumber"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	AccountNumber string    `json:"accountNumber"`
	BankCode      string    `json:"bankCode,omitempty"`
	ParentOrgID   string    `json:"parentOrgId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// User is a platform account. PasswordHash is a bcrypt digest and is
// never serialized.
type User struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"`
	Role          string    `json:"role"`
	CooperativeID string    `json:"cooperativeId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Leader records which user leads a cooperative.
type Leader struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	CooperativeID string    `json:"cooperativeId"`
	NIN           string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Intent is the compensating-action log row written before entity
// creation begins.
type Intent struct {
	ID          string    `json:"id"`
	Reference   string    `json:"reference"`
	Committed   bool      `json:"committed"`
	CreatedAt   time.Time `json:"createdAt"`
	CommittedAt time.Time `json:"committedAt,omitzero"`
}

// Entities is the aggregate a single provisioning run creates.
// Cooperative and Leader are nil for member registrations.
type Entities struct {
	Cooperative *Cooperative
	Users       []*User
	Leader      *Leader
	Fee         *ledger.Transaction
}

// Store persists provisioned entities. CreateEntities must be atomic:
// either every entity in the aggregate becomes visible or none does.
type Store interface {
	BeginIntent(ctx context.Context, reference string) (*Intent, error)
	CreateEntities(ctx context.Context, intentID string, e *Entities) error
	MarkCommitted(ctx context.Context, intentID string) error
	ListUncommitted(ctx context.Context, olderThan time.Duration) ([]*Intent, error)

	GetCooperative(ctx context.Context, id string) (*Cooperative, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
