package circuitbreaker

import (
	"sync"
	"testing"
	"time"
)

func TestBreaker_AllowWhenClosed(t *testing.T) {
	b := New(3, 100*time.Millisecond)
	if !b.Allow("paystack") {
		t.Fatal("expected closed circuit to allow")
	}
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b := New(3, 100*time.Millisecond)

	b.RecordFailure("paystack")
	b.RecordFailure("paystack")
	if !b.Allow("paystack") {
		t.Fatal("should still allow before threshold")
	}

	b.RecordFailure("paystack")
	if b.Allow("paystack") {
		t.Fatal("should be open after 3 failures")
	}
	if b.State("paystack") != StateOpen {
		t.Fatalf("expected StateOpen, got %v", b.State("paystack"))
	}
}

func TestBreaker_KeysAreIndependent(t *testing.T) {
	b := New(1, time.Minute)
	b.RecordFailure("paystack")
	if b.Allow("paystack") {
		t.Fatal("paystack circuit should be open")
	}
	if !b.Allow("stripe") {
		t.Fatal("stripe circuit should be unaffected")
	}
}

func TestBreaker_OpenToHalfOpenAfterDuration(t *testing.T) {
	b := New(2, 50*time.Millisecond)

	b.RecordFailure("paystack")
	b.RecordFailure("paystack")
	if b.Allow("paystack") {
		t.Fatal("should be open")
	}

	time.Sleep(60 * time.Millisecond)

	if !b.Allow("paystack") {
		t.Fatal("should allow probe in half-open")
	}
	if b.State("paystack") != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %v", b.State("paystack"))
	}

	if b.Allow("paystack") {
		t.Fatal("should reject second request in half-open")
	}
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.RecordFailure("paystack")
	time.Sleep(20 * time.Millisecond)

	if !b.Allow("paystack") {
		t.Fatal("probe should be allowed")
	}
	b.RecordSuccess("paystack")

	if b.State("paystack") != StateClosed {
		t.Fatalf("expected StateClosed after successful probe, got %v", b.State("paystack"))
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	b.RecordFailure("paystack")
	time.Sleep(20 * time.Millisecond)

	if !b.Allow("paystack") {
		t.Fatal("probe should be allowed")
	}
	b.RecordFailure("paystack")

	if b.State("paystack") != StateOpen {
		t.Fatalf("expected StateOpen after failed probe, got %v", b.State("paystack"))
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b := New(5, time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Allow("paystack")
			b.RecordFailure("paystack")
			b.RecordSuccess("paystack")
			b.State("paystack")
		}()
	}
	wg.Wait()
}
