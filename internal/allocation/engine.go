package allocation

import (
	"context"
	"errors"
	"math"

	"github.com/coopcentral/coopcentral/internal/logging"
	"github.com/coopcentral/coopcentral/internal/metrics"
)

// Engine reads and updates allocation settings and applies them to fee
// amounts. Settings are read from the store on every use — reports
// always reflect the present-day split, including for historical
// transactions.
type Engine struct {
	store Store
}

// NewEngine creates an allocation engine.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Get returns the current settings, falling back to the defaults when
// none have been saved yet.
func (e *Engine) Get(ctx context.Context) (*Settings, error) {
	s, err := e.store.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		def := DefaultSettings()
		return &def, nil
	}
	return s, err
}

// Set validates and atomically replaces the settings. Partial updates
// are not permitted; the caller sends all five fields.
func (e *Engine) Set(ctx context.Context, next Settings) (*Settings, error) {
	if err := next.Validate(); err != nil {
		metrics.AllocationUpdatesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	saved, err := e.store.Replace(ctx, next)
	if err != nil {
		metrics.AllocationUpdatesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.AllocationUpdatesTotal.WithLabelValues("ok").Inc()
	logging.L(ctx).Info("allocation settings updated",
		"version", saved.Version,
		"apex", saved.Apex,
		"platform", saved.Platform,
		"cooperative", saved.CooperativeShare,
		"leader", saved.LeaderShare,
		"parentOrg", saved.ParentOrgShare,
	)
	return saved, nil
}

// ApplyToAmount splits a fee amount per stakeholder. Shares are
// independent fractions of the same total, not a chained subtraction.
func ApplyToAmount(totalFeeKobo int64, s Settings) Shares {
	share := func(pct float64) int64 {
		return int64(math.Floor(float64(totalFeeKobo)*pct/100 + 0.5))
	}
	return Shares{
		ApexKobo:        share(s.Apex),
		PlatformKobo:    share(s.Platform),
		CooperativeKobo: share(s.CooperativeShare),
		LeaderKobo:      share(s.LeaderShare),
		ParentOrgKobo:   share(s.ParentOrgShare),
	}
}
