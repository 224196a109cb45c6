package registration

import (
	"context"
	"log/slog"
	"time"

	"github.com/coopcentral/coopcentral/internal/metrics"
)

// Timer periodically surfaces registrations stuck in PENDING — a payer
// who never completed the gateway redirect leaves one behind. The
// sweep only reports; it never transitions a registration, because
// only a verify call is allowed to decide a payment's outcome.
type Timer struct {
	store    Store
	age      time.Duration
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
}

// NewTimer creates a pending-registration sweep timer. age is how long
// a registration may sit PENDING before it counts as stuck.
func NewTimer(store Store, age time.Duration, logger *slog.Logger) *Timer {
	if age <= 0 {
		age = 30 * time.Minute
	}
	return &Timer{
		store:    store,
		age:      age,
		interval: 60 * time.Second,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) sweep(ctx context.Context) {
	stuck, err := t.store.ListPendingOlderThan(ctx, t.age, 100)
	if err != nil {
		t.logger.Warn("failed to list stuck registrations", "error", err)
		return
	}

	metrics.PendingRegistrationsStuck.Set(float64(len(stuck)))
	for _, reg := range stuck {
		t.logger.Info("registration stuck in PENDING",
			"reference", reg.Reference,
			"type", reg.Type,
			"age", time.Since(reg.CreatedAt).Round(time.Second),
		)
	}
}
