package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coopcentral/coopcentral/internal/circuitbreaker"
)

// fakeGateway scripts outcomes for instrumentation tests.
type fakeGateway struct {
	name        string
	initErr     error
	verifyErrs  []error // consumed per call; nil entry means success
	verifyCalls int
	result      *VerifyResult
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) InitializeSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &Session{AuthorizationURL: "https://pay.example/" + req.Reference}, nil
}

func (f *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	var err error
	if f.verifyCalls < len(f.verifyErrs) {
		err = f.verifyErrs[f.verifyCalls]
	}
	f.verifyCalls++
	if err != nil {
		return nil, err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &VerifyResult{Status: StatusSuccess, AmountPaidKobo: 100000}, nil
}

func TestInstrumented_VerifyRetriesTransportErrors(t *testing.T) {
	fake := &fakeGateway{
		name: "paystack",
		verifyErrs: []error{
			fmt.Errorf("%w: connection reset", ErrUnavailable),
			fmt.Errorf("%w: connection reset", ErrUnavailable),
			nil,
		},
	}
	gw := WithInstrumentation(fake, circuitbreaker.New(5, time.Second))

	res, err := gw.VerifyTransaction(context.Background(), "CC-1-abc")
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if res.Status != StatusSuccess {
		t.Errorf("unexpected status %s", res.Status)
	}
	if fake.verifyCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", fake.verifyCalls)
	}
}

func TestInstrumented_VerifyExhaustsRetries(t *testing.T) {
	transient := fmt.Errorf("%w: timeout", ErrUnavailable)
	fake := &fakeGateway{
		name:       "paystack",
		verifyErrs: []error{transient, transient, transient, transient},
	}
	gw := WithInstrumentation(fake, circuitbreaker.New(5, time.Second))

	_, err := gw.VerifyTransaction(context.Background(), "CC-1-abc")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if fake.verifyCalls != verifyAttempts {
		t.Errorf("expected %d attempts, got %d", verifyAttempts, fake.verifyCalls)
	}
}

func TestInstrumented_BreakerOpensAndRejects(t *testing.T) {
	fake := &fakeGateway{name: "paystack", initErr: fmt.Errorf("%w: down", ErrUnavailable)}
	breaker := circuitbreaker.New(2, time.Minute)
	gw := WithInstrumentation(fake, breaker)

	ctx := context.Background()
	for j := 0; j < 2; j++ {
		_, _ = gw.InitializeSession(ctx, SessionRequest{Reference: "r"})
	}
	if breaker.State("paystack") != circuitbreaker.StateOpen {
		t.Fatalf("expected open circuit, got %v", breaker.State("paystack"))
	}

	_, err := gw.InitializeSession(ctx, SessionRequest{Reference: "r"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from open circuit, got %v", err)
	}
}

func TestInstrumented_InitializeNotRetried(t *testing.T) {
	// A failed initialize must not be retried automatically: the
	// provider may already have the session for this reference.
	calls := 0
	fake := &countingInitGateway{calls: &calls}
	gw := WithInstrumentation(fake, circuitbreaker.New(5, time.Second))

	_, err := gw.InitializeSession(context.Background(), SessionRequest{Reference: "r"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 initialize attempt, got %d", calls)
	}
}

type countingInitGateway struct {
	calls *int
}

func (c *countingInitGateway) Name() string { return "paystack" }

func (c *countingInitGateway) InitializeSession(ctx context.Context, req SessionRequest) (*Session, error) {
	*c.calls++
	return nil, fmt.Errorf("%w: down", ErrUnavailable)
}

func (c *countingInitGateway) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	return nil, ErrUnavailable
}
