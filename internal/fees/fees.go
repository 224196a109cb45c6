// Package fees converts between a base registration fee and the
// gateway-inclusive amount a payer is actually charged.
//
// The gateway surcharge follows the hosted-checkout pricing model:
// 1.5% of the base plus a flat ₦100, capped at ₦2,000, and waived
// entirely for amounts under ₦2,500. Both directions of the
// conversion live here so the ledger can always record the base
// amount, never the processor's markup.
package fees

import "math"

const (
	// WaiverThreshold is the naira amount below which no surcharge applies.
	WaiverThreshold = 2500.0

	percentRate = 0.015
	flatFee     = 100.0
	feeCap      = 2000.0
)

// Breakdown is the priced form of a registration fee.
type Breakdown struct {
	Base       float64 `json:"base"`
	GatewayFee float64 `json:"gatewayFee"`
	Total      float64 `json:"total"`
}

// ComputeTotal prices a base fee, adding the gateway surcharge.
// Amounts are in the major currency unit (naira).
func ComputeTotal(base float64) Breakdown {
	if base < WaiverThreshold {
		return Breakdown{Base: base, GatewayFee: 0, Total: base}
	}
	fee := base*percentRate + flatFee
	if fee > feeCap {
		fee = feeCap
	}
	return Breakdown{Base: base, GatewayFee: fee, Total: base + fee}
}

// ReverseTotal recovers the base fee from an observed charged total.
// It first assumes the surcharge was uncapped; if the fee that base
// would have generated exceeds the cap, the cap must have applied.
func ReverseTotal(total float64) float64 {
	if total < WaiverThreshold {
		return total
	}
	candidate := (total - flatFee) / (1 + percentRate)
	if candidate*percentRate+flatFee <= feeCap {
		return candidate
	}
	return total - feeCap
}

// ToKobo converts a naira amount to integer kobo, rounding half-up.
// Storage and the ledger always use kobo.
func ToKobo(naira float64) int64 {
	return int64(math.Floor(naira*100 + 0.5))
}

// FromKobo converts integer kobo back to naira.
func FromKobo(kobo int64) float64 {
	return float64(kobo) / 100
}
