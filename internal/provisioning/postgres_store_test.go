//go:build integration

package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coopcentral/coopcentral/internal/idgen"
	"github.com/coopcentral/coopcentral/internal/ledger"
	"github.com/coopcentral/coopcentral/internal/testutil"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	t.Helper()
	db, cleanup := testutil.PGTest(t)
	return NewPostgresStore(db), cleanup
}

func testEntities(reference string) *Entities {
	now := time.Now()
	coop := &Cooperative{
		ID:            idgen.WithPrefix("coop_"),
		Name:          "Unity Farmers Cooperative",
		RegNumber:     idgen.WithPrefix("RC"),
		Email:         "info@unityfarmers.ng",
		Phone:         "+2348012345678",
		AccountNumber: "0123456789",
		CreatedAt:     now,
	}
	admin := &User{
		ID:            idgen.WithPrefix("usr_"),
		FirstName:     "Ada",
		LastName:      "Okafor",
		Email:         idgen.WithPrefix("u") + "@example.com",
		Phone:         "+2348012345678",
		PasswordHash:  "$2a$10$fakehashfakehashfakehashfakehash",
		Role:          RoleCooperativeAdmin,
		CooperativeID: coop.ID,
		CreatedAt:     now,
	}
	return &Entities{
		Cooperative: coop,
		Users:       []*User{admin},
		Leader: &Leader{
			ID:            idgen.WithPrefix("ldr_"),
			UserID:        admin.ID,
			CooperativeID: coop.ID,
			NIN:           "12345678901",
			CreatedAt:     now,
		},
		Fee: &ledger.Transaction{
			ID:            idgen.WithPrefix("txn_"),
			AmountKobo:    500000,
			Type:          ledger.TypeFee,
			Status:        ledger.StatusSuccessful,
			Reference:     reference,
			UserID:        admin.ID,
			CooperativeID: coop.ID,
			CreatedAt:     now,
		},
	}
}

func TestPostgres_CreateEntitiesAndCommit(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	intent, err := store.BeginIntent(ctx, "CC-pg-1")
	if err != nil {
		t.Fatalf("BeginIntent failed: %v", err)
	}

	e := testEntities("CC-pg-1")
	if err := store.CreateEntities(ctx, intent.ID, e); err != nil {
		t.Fatalf("CreateEntities failed: %v", err)
	}
	if err := store.MarkCommitted(ctx, intent.ID); err != nil {
		t.Fatalf("MarkCommitted failed: %v", err)
	}

	coop, err := store.GetCooperative(ctx, e.Cooperative.ID)
	if err != nil {
		t.Fatalf("GetCooperative failed: %v", err)
	}
	if coop.Name != "Unity Farmers Cooperative" {
		t.Errorf("unexpected cooperative %+v", coop)
	}

	stale, err := store.ListUncommitted(ctx, 0)
	if err != nil {
		t.Fatalf("ListUncommitted failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("expected no uncommitted intents, got %d", len(stale))
	}
}

func TestPostgres_AtomicRollbackOnDuplicateReference(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	intent, _ := store.BeginIntent(ctx, "CC-pg-2")
	if err := store.CreateEntities(ctx, intent.ID, testEntities("CC-pg-2")); err != nil {
		t.Fatalf("first CreateEntities failed: %v", err)
	}

	// Same ledger reference; the unique index trips on the final
	// insert and everything rolls back.
	second := testEntities("CC-pg-2")
	err := store.CreateEntities(ctx, intent.ID, second)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := store.GetCooperative(ctx, second.Cooperative.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("rolled-back cooperative is visible")
	}
	if _, err := store.GetUserByEmail(ctx, second.Users[0].Email); !errors.Is(err, ErrNotFound) {
		t.Errorf("rolled-back user is visible")
	}
}

func TestPostgres_ListUncommitted(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := store.BeginIntent(ctx, "CC-pg-3"); err != nil {
		t.Fatalf("BeginIntent failed: %v", err)
	}

	stale, err := store.ListUncommitted(ctx, 0)
	if err != nil {
		t.Fatalf("ListUncommitted failed: %v", err)
	}
	if len(stale) != 1 || stale[0].Reference != "CC-pg-3" {
		t.Errorf("unexpected uncommitted intents %+v", stale)
	}
}
