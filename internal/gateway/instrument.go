package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coopcentral/coopcentral/internal/circuitbreaker"
	"github.com/coopcentral/coopcentral/internal/metrics"
	"github.com/coopcentral/coopcentral/internal/retry"
	"github.com/coopcentral/coopcentral/internal/traces"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	verifyAttempts  = 3
	verifyBaseDelay = 500 * time.Millisecond
)

// Instrumented wraps a Gateway with metrics, tracing, a circuit
// breaker, and bounded retries on verification transport errors.
// Initialize is never retried: a retry could create a second session
// for the same reference at the provider.
type Instrumented struct {
	inner   Gateway
	breaker *circuitbreaker.Breaker
}

// WithInstrumentation wraps gw. breaker may be shared across providers;
// circuits are keyed by provider name.
func WithInstrumentation(gw Gateway, breaker *circuitbreaker.Breaker) *Instrumented {
	return &Instrumented{inner: gw, breaker: breaker}
}

// Name returns the wrapped provider's name.
func (i *Instrumented) Name() string { return i.inner.Name() }

// InitializeSession delegates with metrics and tracing.
func (i *Instrumented) InitializeSession(ctx context.Context, req SessionRequest) (*Session, error) {
	provider := i.inner.Name()
	if !i.breaker.Allow(provider) {
		metrics.GatewayRequestsTotal.WithLabelValues(provider, "initialize", "circuit_open").Inc()
		return nil, fmt.Errorf("%w: circuit open for %s", ErrUnavailable, provider)
	}

	ctx, span := traces.StartSpan(ctx, "gateway.InitializeSession",
		traces.Provider(provider),
		traces.Reference(req.Reference),
		traces.AmountKobo(req.AmountKobo),
	)
	defer span.End()

	timer := prometheus.NewTimer(metrics.GatewayRequestDuration.WithLabelValues(provider, "initialize"))
	sess, err := i.inner.InitializeSession(ctx, req)
	timer.ObserveDuration()

	if err != nil {
		i.breaker.RecordFailure(provider)
		metrics.GatewayRequestsTotal.WithLabelValues(provider, "initialize", "error").Inc()
		return nil, err
	}
	i.breaker.RecordSuccess(provider)
	metrics.GatewayRequestsTotal.WithLabelValues(provider, "initialize", "ok").Inc()
	return sess, nil
}

// VerifyTransaction delegates with retries on transport failure. A
// gateway-confirmed outcome (success or failed) is returned as-is.
func (i *Instrumented) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	provider := i.inner.Name()
	if !i.breaker.Allow(provider) {
		metrics.GatewayRequestsTotal.WithLabelValues(provider, "verify", "circuit_open").Inc()
		return nil, fmt.Errorf("%w: circuit open for %s", ErrUnavailable, provider)
	}

	ctx, span := traces.StartSpan(ctx, "gateway.VerifyTransaction",
		traces.Provider(provider),
		traces.Reference(reference),
	)
	defer span.End()

	var result *VerifyResult
	timer := prometheus.NewTimer(metrics.GatewayRequestDuration.WithLabelValues(provider, "verify"))
	err := retry.Do(ctx, verifyAttempts, verifyBaseDelay, func() error {
		r, err := i.inner.VerifyTransaction(ctx, reference)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return err // transient — retry
			}
			return retry.Permanent(err)
		}
		result = r
		return nil
	})
	timer.ObserveDuration()

	if err != nil {
		i.breaker.RecordFailure(provider)
		metrics.GatewayRequestsTotal.WithLabelValues(provider, "verify", "error").Inc()
		return nil, err
	}
	i.breaker.RecordSuccess(provider)
	metrics.GatewayRequestsTotal.WithLabelValues(provider, "verify", string(result.Status)).Inc()
	return result, nil
}
