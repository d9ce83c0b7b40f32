package domain

import "github.com/shopspring/decimal"

// Tier is the survival classification of a balance snapshot.
type Tier string

const (
	TierUnknown     Tier = "UNKNOWN"
	TierCritical    Tier = "CRITICAL"
	TierStabilizing Tier = "STABILIZING"
	TierNominal     Tier = "NOMINAL"
)

// String returns the string representation of Tier.
func (t Tier) String() string {
	return string(t)
}

// Precedence orders tiers for decision purposes; higher wins.
func (t Tier) Precedence() int {
	switch t {
	case TierUnknown:
		return 3
	case TierCritical:
		return 2
	case TierStabilizing:
		return 1
	default:
		return 0
	}
}

// Thresholds are the tunable survival limits.
type Thresholds struct {
	ReserveFloor decimal.Decimal // native amount at or below which the agent hibernates
	LowWaterMark decimal.Decimal // stable amount below which the treasury is stabilized
}

// Classify derives the tier of a snapshot. Checks run in precedence order:
// Unknown, then Critical, then Stabilizing, otherwise Nominal.
func Classify(s BalanceSnapshot, th Thresholds) Tier {
	native, nativeOK := s.Native.Get()
	stable, stableOK := s.Stable.Get()
	if !nativeOK || !stableOK {
		return TierUnknown
	}
	if native.LessThanOrEqual(th.ReserveFloor) {
		return TierCritical
	}
	if stable.LessThan(th.LowWaterMark) {
		return TierStabilizing
	}
	return TierNominal
}

// SpendableNative returns min(limit, native - floor). The result may be zero or
// negative, which means nothing can be spent without breaching the floor.
func SpendableNative(native, floor, limit decimal.Decimal) decimal.Decimal {
	headroom := native.Sub(floor)
	return decimal.Min(limit, headroom)
}
