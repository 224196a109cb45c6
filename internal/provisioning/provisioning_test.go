package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/coopcentral/coopcentral/internal/ledger"
)

func coopInput() CooperativeInput {
	return CooperativeInput{
		Name:            "Unity Farmers Cooperative",
		RegNumber:       "RC123456",
		Email:           "info@unityfarmers.ng",
		Phone:           "+2348012345678",
		Address:         "12 Market Road, Ibadan",
		AccountNumber:   "0123456789",
		LeaderFirstName: "Ada",
		LeaderLastName:  "Okafor",
		LeaderEmail:     "ada@unityfarmers.ng",
		LeaderPhone:     "+2348012345678",
		LeaderNIN:       "12345678901",
		Password:        "correct-horse",
	}
}

func TestProvisionCooperative(t *testing.T) {
	ctx := context.Background()
	ls := ledger.NewMemoryStore()
	store := NewMemoryStore(ls)
	svc := NewService(store)

	// ₦5,175 captured by the gateway = ₦5,000 base + ₦175 surcharge.
	res, err := svc.ProvisionCooperative(ctx, coopInput(), "CC-1-abc", 517500)
	if err != nil {
		t.Fatalf("ProvisionCooperative failed: %v", err)
	}

	if res.BaseAmountKobo != 500000 {
		t.Errorf("base amount = %d, want 500000", res.BaseAmountKobo)
	}

	coops, users, leaders := store.Counts()
	if coops != 1 || users != 1 || leaders != 1 {
		t.Errorf("entity counts = %d/%d/%d, want 1/1/1", coops, users, leaders)
	}

	fee, err := ls.GetByReference(ctx, "CC-1-abc")
	if err != nil {
		t.Fatalf("fee row not recorded: %v", err)
	}
	if fee.AmountKobo != 500000 || fee.Type != ledger.TypeFee {
		t.Errorf("unexpected fee row %+v", fee)
	}

	admin, err := store.GetUserByEmail(ctx, "ada@unityfarmers.ng")
	if err != nil {
		t.Fatalf("admin user not created: %v", err)
	}
	if admin.Role != RoleCooperativeAdmin {
		t.Errorf("admin role = %s", admin.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("correct-horse")); err != nil {
		t.Errorf("password hash does not verify: %v", err)
	}

	stale, err := store.ListUncommitted(ctx, 0)
	if err != nil {
		t.Fatalf("ListUncommitted failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("expected committed intent, found %d uncommitted", len(stale))
	}
}

func TestProvisionCooperative_AtomicOnInjectedFailure(t *testing.T) {
	ctx := context.Background()
	ls := ledger.NewMemoryStore()
	store := NewMemoryStore(ls)
	store.failBeforeLedger = func() error { return errors.New("injected crash") }
	svc := NewService(store)

	_, err := svc.ProvisionCooperative(ctx, coopInput(), "CC-2-def", 517500)
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("expected ErrProvisioningFailed, got %v", err)
	}

	coops, users, leaders := store.Counts()
	if coops != 0 || users != 0 || leaders != 0 {
		t.Errorf("partial entities visible: %d/%d/%d, want 0/0/0", coops, users, leaders)
	}
	if ls.Count() != 0 {
		t.Errorf("ledger has %d rows, want 0", ls.Count())
	}

	stale, err := store.ListUncommitted(ctx, 0)
	if err != nil {
		t.Fatalf("ListUncommitted failed: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 uncommitted intent for follow-up, got %d", len(stale))
	}
	if stale[0].Reference != "CC-2-def" {
		t.Errorf("intent reference = %s", stale[0].Reference)
	}
}

func TestProvisionCooperative_DuplicateRegNumber(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ledger.NewMemoryStore())
	svc := NewService(store)

	if _, err := svc.ProvisionCooperative(ctx, coopInput(), "CC-3-aaa", 517500); err != nil {
		t.Fatalf("first provisioning failed: %v", err)
	}

	in := coopInput()
	in.LeaderEmail = "other@unityfarmers.ng"
	_, err := svc.ProvisionCooperative(ctx, in, "CC-3-bbb", 517500)
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("expected ErrProvisioningFailed, got %v", err)
	}

	coops, users, _ := store.Counts()
	if coops != 1 || users != 1 {
		t.Errorf("duplicate run leaked entities: %d coops, %d users", coops, users)
	}
}

func TestProvisionMember(t *testing.T) {
	ctx := context.Background()
	ls := ledger.NewMemoryStore()
	store := NewMemoryStore(ls)
	svc := NewService(store)

	res, err := svc.ProvisionCooperative(ctx, coopInput(), "CC-4-coop", 517500)
	if err != nil {
		t.Fatalf("cooperative provisioning failed: %v", err)
	}
	coopID := res.Entities.Cooperative.ID

	// ₦1,000 member fee is below the surcharge waiver threshold.
	mres, err := svc.ProvisionMember(ctx, MemberInput{
		CooperativeID: coopID,
		FirstName:     "Bola",
		LastName:      "Adeyemi",
		Email:         "bola@example.com",
		Phone:         "08098765432",
		NIN:           "98765432109",
		Password:      "hunter2hunter2",
	}, "CC-4-member", 100000)
	if err != nil {
		t.Fatalf("ProvisionMember failed: %v", err)
	}
	if mres.BaseAmountKobo != 100000 {
		t.Errorf("base amount = %d, want 100000 (no surcharge below threshold)", mres.BaseAmountKobo)
	}

	member, err := store.GetUserByEmail(ctx, "bola@example.com")
	if err != nil {
		t.Fatalf("member not created: %v", err)
	}
	if member.Role != RoleMember || member.CooperativeID != coopID {
		t.Errorf("unexpected member %+v", member)
	}

	fee, err := ls.GetByReference(ctx, "CC-4-member")
	if err != nil {
		t.Fatalf("member fee row not recorded: %v", err)
	}
	if fee.CooperativeID != coopID {
		t.Errorf("fee row cooperative = %s, want %s", fee.CooperativeID, coopID)
	}
}

func TestProvisionMember_UnknownCooperative(t *testing.T) {
	svc := NewService(NewMemoryStore(ledger.NewMemoryStore()))

	_, err := svc.ProvisionMember(context.Background(), MemberInput{
		CooperativeID: "coop_missing",
		Email:         "x@y.z",
		Password:      "pw",
	}, "CC-5-xyz", 100000)
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("expected ErrProvisioningFailed, got %v", err)
	}
}

func TestListUncommitted_IgnoresRecentIntents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ledger.NewMemoryStore())

	if _, err := store.BeginIntent(ctx, "CC-6-new"); err != nil {
		t.Fatalf("BeginIntent failed: %v", err)
	}

	stale, err := store.ListUncommitted(ctx, time.Hour)
	if err != nil {
		t.Fatalf("ListUncommitted failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("fresh intent reported as stale")
	}
}
