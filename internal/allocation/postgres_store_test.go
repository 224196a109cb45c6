//go:build integration

package allocation

import (
	"context"
	"errors"
	"testing"

	"github.com/coopcentral/coopcentral/internal/testutil"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	t.Helper()
	db, cleanup := testutil.PGTest(t)
	return NewPostgresStore(db), cleanup
}

func TestPostgres_GetBeforeAnyReplace(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.Get(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_ReplaceAdvancesVersion(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	first, err := store.Replace(ctx, Settings{Apex: 40, Platform: 20, CooperativeShare: 20, LeaderShare: 15, ParentOrgShare: 5})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("first version = %d, want 1", first.Version)
	}

	second, err := store.Replace(ctx, Settings{Apex: 50, Platform: 10, CooperativeShare: 20, LeaderShare: 15, ParentOrgShare: 5})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("second version = %d, want 2", second.Version)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Apex != 50 || got.Version != 2 {
		t.Errorf("unexpected settings %+v", got)
	}
}
