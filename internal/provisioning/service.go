package provisioning

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/coopcentral/coopcentral/internal/fees"
	"github.com/coopcentral/coopcentral/internal/idgen"
	"github.com/coopcentral/coopcentral/internal/ledger"
	"github.com/coopcentral/coopcentral/internal/logging"
	"github.com/coopcentral/coopcentral/internal/metrics"
	"github.com/coopcentral/coopcentral/internal/traces"
)

// CooperativeInput is everything needed to provision a new cooperative
// and its leading admin account.
type CooperativeInput struct {
	Name          string
	RegNumber     string
	Email         string
	Phone         string
	Address       string
	AccountNumber string
	BankCode      string
	ParentOrgID   string

	LeaderFirstName string
	LeaderLastName  string
	LeaderEmail     string
	LeaderPhone     string
	LeaderNIN       string
	Password        string
}

// MemberInput is everything needed to provision a member account on an
// existing cooperative.
type MemberInput struct {
	CooperativeID string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	NIN           string
	Password      string
}

// Result is the created aggregate plus the base fee recovered from the
// amount the gateway captured.
type Result struct {
	Entities       *Entities
	BaseAmountKobo int64
}

// Service executes provisioning runs against a Store.
type Service struct {
	store Store
}

// NewService creates a provisioning service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ProvisionCooperative creates a cooperative, its admin user, the
// leader record, and the FEE ledger row for a verified payment.
// amountPaidKobo is the gateway-captured total; the surcharge is
// reversed out so the ledger carries the base amount only.
func (s *Service) ProvisionCooperative(ctx context.Context, in CooperativeInput, reference string, amountPaidKobo int64) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "provisioning.ProvisionCooperative",
		traces.Reference(reference),
		traces.AmountKobo(amountPaidKobo),
	)
	defer span.End()

	baseKobo := baseAmount(amountPaidKobo)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	coop := &Cooperative{
		ID:            idgen.WithPrefix("coop_"),
		Name:          in.Name,
		RegNumber:     in.RegNumber,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		AccountNumber: in.AccountNumber,
		BankCode:      in.BankCode,
		ParentOrgID:   in.ParentOrgID,
		CreatedAt:     now,
	}
	admin := &User{
		ID:            idgen.WithPrefix("usr_"),
		FirstName:     in.LeaderFirstName,
		LastName:      in.LeaderLastName,
		Email:         in.LeaderEmail,
		Phone:         in.LeaderPhone,
		PasswordHash:  string(hash),
		Role:          RoleCooperativeAdmin,
		CooperativeID: coop.ID,
		CreatedAt:     now,
	}
	leader := &Leader{
		ID:            idgen.WithPrefix("ldr_"),
		UserID:        admin.ID,
		CooperativeID: coop.ID,
		NIN:           in.LeaderNIN,
		CreatedAt:     now,
	}
	entities := &Entities{
		Cooperative: coop,
		Users:       []*User{admin},
		Leader:      leader,
		Fee: &ledger.Transaction{
			ID:            idgen.WithPrefix("txn_"),
			AmountKobo:    baseKobo,
			Type:          ledger.TypeFee,
			Status:        ledger.StatusSuccessful,
			Reference:     reference,
			UserID:        admin.ID,
			CooperativeID: coop.ID,
			Description:   "Cooperative registration fee",
			CreatedAt:     now,
		},
	}

	if err := s.run(ctx, reference, amountPaidKobo, entities); err != nil {
		return nil, err
	}
	return &Result{Entities: entities, BaseAmountKobo: baseKobo}, nil
}

// ProvisionMember creates a member account on an existing cooperative
// and the FEE ledger row for a verified payment.
func (s *Service) ProvisionMember(ctx context.Context, in MemberInput, reference string, amountPaidKobo int64) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "provisioning.ProvisionMember",
		traces.Reference(reference),
		traces.AmountKobo(amountPaidKobo),
	)
	defer span.End()

	if _, err := s.store.GetCooperative(ctx, in.CooperativeID); err != nil {
		return nil, fmt.Errorf("%w: cooperative %s: %v", ErrProvisioningFailed, in.CooperativeID, err)
	}

	baseKobo := baseAmount(amountPaidKobo)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	member := &User{
		ID:            idgen.WithPrefix("usr_"),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Phone:         in.Phone,
		PasswordHash:  string(hash),
		Role:          RoleMember,
		CooperativeID: in.CooperativeID,
		CreatedAt:     now,
	}
	entities := &Entities{
		Users: []*User{member},
		Fee: &ledger.Transaction{
			ID:            idgen.WithPrefix("txn_"),
			AmountKobo:    baseKobo,
			Type:          ledger.TypeFee,
			Status:        ledger.StatusSuccessful,
			Reference:     reference,
			UserID:        member.ID,
			CooperativeID: in.CooperativeID,
			Description:   "Member registration fee",
			CreatedAt:     now,
		},
	}

	if err := s.run(ctx, reference, amountPaidKobo, entities); err != nil {
		return nil, err
	}
	return &Result{Entities: entities, BaseAmountKobo: baseKobo}, nil
}

// run executes the intent-guarded creation sequence.
func (s *Service) run(ctx context.Context, reference string, amountPaidKobo int64, e *Entities) error {
	log := logging.L(ctx)

	intent, err := s.store.BeginIntent(ctx, reference)
	if err != nil {
		metrics.ProvisioningTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: begin intent: %v", ErrProvisioningFailed, err)
	}

	if err := s.store.CreateEntities(ctx, intent.ID, e); err != nil {
		metrics.ProvisioningTotal.WithLabelValues("error").Inc()
		metrics.ProvisioningFailedAfterCapture.Inc()
		log.Error("provisioning failed after payment capture",
			"reference", reference,
			"amount_paid_kobo", amountPaidKobo,
			"base_kobo", e.Fee.AmountKobo,
			"intent_id", intent.ID,
			"error", err)
		return fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	if err := s.store.MarkCommitted(ctx, intent.ID); err != nil {
		// Entities exist; the stale intent row is the operational
		// signal to check, not a reason to fail the registration.
		log.Warn("intent not marked committed",
			"reference", reference, "intent_id", intent.ID, "error", err)
	}

	metrics.ProvisioningTotal.WithLabelValues("ok").Inc()
	return nil
}

// ListUncommittedIntents returns intents that began at least olderThan
// ago and were never marked committed.
func (s *Service) ListUncommittedIntents(ctx context.Context, olderThan time.Duration) ([]*Intent, error) {
	return s.store.ListUncommitted(ctx, olderThan)
}

func baseAmount(amountPaidKobo int64) int64 {
	return fees.ToKobo(fees.ReverseTotal(fees.FromKobo(amountPaidKobo)))
}
