package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecord_ValidTransaction(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	tx := &Transaction{
		AmountKobo: 500000,
		Type:       TypeFee,
		Reference:  "CC-1-abc",
		UserID:     "user-1",
	}
	if err := l.Record(ctx, tx); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if tx.Status != StatusSuccessful {
		t.Errorf("expected default status SUCCESSFUL, got %s", tx.Status)
	}
	if tx.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := l.GetByReference(ctx, "CC-1-abc")
	if err != nil {
		t.Fatalf("GetByReference failed: %v", err)
	}
	if got.AmountKobo != 500000 {
		t.Errorf("expected 500000 kobo, got %d", got.AmountKobo)
	}
}

func TestRecord_RejectsNonPositiveAmount(t *testing.T) {
	l := New(NewMemoryStore())
	for _, amount := range []int64{0, -100} {
		err := l.Record(context.Background(), &Transaction{
			AmountKobo: amount, Type: TypeFee, UserID: "u",
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRecord_DuplicateReference(t *testing.T) {
	l := New(NewMemoryStore())
	ctx := context.Background()

	tx := &Transaction{AmountKobo: 100, Type: TypeFee, Reference: "CC-dup", UserID: "u"}
	if err := l.Record(ctx, tx); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	err := l.Record(ctx, &Transaction{AmountKobo: 100, Type: TypeFee, Reference: "CC-dup", UserID: "u"})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Errorf("expected ErrDuplicateReference, got %v", err)
	}
}

func TestGetByReference_NotFound(t *testing.T) {
	l := New(NewMemoryStore())
	_, err := l.GetByReference(context.Background(), "CC-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListFees_FiltersTypeAndStatus(t *testing.T) {
	store := NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	_ = l.Record(ctx, &Transaction{AmountKobo: 100, Type: TypeFee, Reference: "r1", UserID: "u"})
	_ = l.Record(ctx, &Transaction{AmountKobo: 200, Type: TypeContribution, Reference: "r2", UserID: "u"})
	_ = l.Record(ctx, &Transaction{AmountKobo: 300, Type: TypeFee, Reference: "r3", UserID: "u", Status: StatusFailed})
	_ = l.Record(ctx, &Transaction{AmountKobo: 400, Type: TypeFee, Reference: "r4", UserID: "u"})

	fees, err := l.ListFees(ctx, 10)
	if err != nil {
		t.Fatalf("ListFees failed: %v", err)
	}
	if len(fees) != 2 {
		t.Fatalf("expected 2 successful fees, got %d", len(fees))
	}
	// Newest first
	if fees[0].AmountKobo != 400 || fees[1].AmountKobo != 100 {
		t.Errorf("unexpected ordering: %d, %d", fees[0].AmountKobo, fees[1].AmountKobo)
	}
}

func TestListFeesBefore_ResumesAfterCursorRow(t *testing.T) {
	store := NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]string, 3)
	for i := 0; i < 3; i++ {
		tx := &Transaction{
			AmountKobo: 100000,
			Type:       TypeFee,
			Reference:  "CC-keyset-" + string(rune('a'+i)),
			UserID:     "usr_1",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := l.Record(ctx, tx); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		ids[i] = tx.ID
	}

	// Resume after the middle row: only the oldest remains.
	page, err := l.ListFeesBefore(ctx, base.Add(time.Minute), ids[1], 10)
	if err != nil {
		t.Fatalf("ListFeesBefore failed: %v", err)
	}
	if len(page) != 1 || page[0].ID != ids[0] {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestListFeesBefore_UnknownCursorRowFallsBackToTimestamp(t *testing.T) {
	store := NewMemoryStore()
	l := New(store)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tx := &Transaction{
			AmountKobo: 100000,
			Type:       TypeFee,
			Reference:  "CC-fall-" + string(rune('a'+i)),
			UserID:     "usr_1",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := l.Record(ctx, tx); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// The row the cursor names is gone; the timestamp still bounds the
	// page to strictly older rows.
	page, err := l.ListFeesBefore(ctx, base.Add(2*time.Minute), "txn_missing", 10)
	if err != nil {
		t.Fatalf("ListFeesBefore failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 older rows, got %d", len(page))
	}
	for _, tx := range page {
		if !tx.CreatedAt.Before(base.Add(2 * time.Minute)) {
			t.Errorf("row %s is not older than the cursor timestamp", tx.ID)
		}
	}
}
