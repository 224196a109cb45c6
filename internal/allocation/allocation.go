// Package allocation maintains the percentage split of collected
// administrative fees across the five stakeholder categories and
// applies it to fee amounts for reporting.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNotFound   = errors.New("allocation: settings not found")
	ErrInvalidSum = errors.New("allocation: percentages must sum to 100")
)

// SumTolerance is the accepted floating drift on the 100% invariant.
const SumTolerance = 0.01

// Settings is the five-way percentage split. The five fields are
// always written together as one atomic replace — a reader must never
// observe a set that sums to anything other than 100.
type Settings struct {
	Apex             float64   `json:"apex"`
	Platform         float64   `json:"platform"`
	CooperativeShare float64   `json:"cooperativeShare"`
	LeaderShare      float64   `json:"leaderShare"`
	ParentOrgShare   float64   `json:"parentOrgShare"`
	Version          int       `json:"version"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultSettings is the split applied until an admin sets one.
func DefaultSettings() Settings {
	return Settings{
		Apex:             40,
		Platform:         20,
		CooperativeShare: 20,
		LeaderShare:      15,
		ParentOrgShare:   5,
		Version:          1,
	}
}

// Sum returns the total of the five percentages.
func (s Settings) Sum() float64 {
	return s.Apex + s.Platform + s.CooperativeShare + s.LeaderShare + s.ParentOrgShare
}

// Validate checks the 100%-sum invariant and field signs.
func (s Settings) Validate() error {
	for name, v := range map[string]float64{
		"apex":             s.Apex,
		"platform":         s.Platform,
		"cooperativeShare": s.CooperativeShare,
		"leaderShare":      s.LeaderShare,
		"parentOrgShare":   s.ParentOrgShare,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidSum, name)
		}
	}
	if math.Abs(s.Sum()-100) > SumTolerance {
		return fmt.Errorf("%w: got %.4f", ErrInvalidSum, s.Sum())
	}
	return nil
}

// Shares is a fee amount split per stakeholder, in kobo. Each share is
// computed independently from the same total, so a kobo of rounding
// drift per field is tolerated rather than reconciled.
type Shares struct {
	ApexKobo        int64 `json:"apexKobo"`
	PlatformKobo    int64 `json:"platformKobo"`
	CooperativeKobo int64 `json:"cooperativeKobo"`
	LeaderKobo      int64 `json:"leaderKobo"`
	ParentOrgKobo   int64 `json:"parentOrgKobo"`
}

// Store persists the single settings record.
//
// Replace must be atomic and whole-record: it swaps the current
// settings for the next set in one step, bumping the version.
type Store interface {
	Get(ctx context.Context) (*Settings, error)
	Replace(ctx context.Context, next Settings) (*Settings, error)
}
