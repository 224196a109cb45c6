package registration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func pendingReg(reference string) *PendingRegistration {
	return &PendingRegistration{
		ID:        "reg_" + reference,
		Type:      TypeCooperative,
		Payload:   json.RawMessage(`{"version":1}`),
		Reference: reference,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, pendingReg("CC-1-a")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reg, err := store.GetByReference(ctx, "CC-1-a")
	if err != nil {
		t.Fatalf("GetByReference failed: %v", err)
	}
	if reg.Status != StatusPending || reg.Type != TypeCooperative {
		t.Errorf("unexpected registration %+v", reg)
	}

	if _, err := store.GetByReference(ctx, "CC-unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, pendingReg("CC-1-a")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := store.Create(ctx, pendingReg("CC-1-a"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryStore_TransitionIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	reg := pendingReg("CC-1-a")
	store.Create(ctx, reg)

	if err := store.Transition(ctx, reg.ID, StatusCompleted); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	// Second transition must be rejected, whatever the target.
	for _, to := range []Status{StatusCompleted, StatusFailed} {
		if err := store.Transition(ctx, reg.ID, to); !errors.Is(err, ErrInvalidState) {
			t.Errorf("transition to %s: expected ErrInvalidState, got %v", to, err)
		}
	}

	got, _ := store.GetByReference(ctx, "CC-1-a")
	if got.Status != StatusCompleted {
		t.Errorf("status changed after rejected transition: %s", got.Status)
	}
}

func TestMemoryStore_Discard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	reg := pendingReg("CC-1-a")
	store.Create(ctx, reg)

	if err := store.Discard(ctx, reg.ID); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := store.GetByReference(ctx, "CC-1-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("discarded registration still visible")
	}
	if err := store.Discard(ctx, reg.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second discard: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListPendingOlderThan(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	old := pendingReg("CC-old")
	old.CreatedAt = time.Now().Add(-time.Hour)
	store.Create(ctx, old)
	store.Create(ctx, pendingReg("CC-new"))

	settled := pendingReg("CC-settled")
	settled.CreatedAt = time.Now().Add(-time.Hour)
	store.Create(ctx, settled)
	store.Transition(ctx, settled.ID, StatusFailed)

	stuck, err := store.ListPendingOlderThan(ctx, 30*time.Minute, 10)
	if err != nil {
		t.Fatalf("ListPendingOlderThan failed: %v", err)
	}
	if len(stuck) != 1 || stuck[0].Reference != "CC-old" {
		t.Errorf("unexpected stuck set %+v", stuck)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	raw, err := EncodeCooperativePayload(CooperativePayload{
		Name:      "Unity Farmers",
		RegNumber: "RC123456",
		Email:     "info@unity.ng",
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	p, err := DecodeCooperativePayload(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.Name != "Unity Farmers" || p.Version != payloadVersion {
		t.Errorf("unexpected payload %+v", p)
	}

	if _, err := DecodeCooperativePayload(json.RawMessage(`{"version":99}`)); err == nil {
		t.Error("expected error for unknown payload version")
	}
}
