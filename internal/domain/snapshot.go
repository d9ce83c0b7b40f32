package domain

import "time"

// BalanceSnapshot holds one heartbeat's balance readings.
// Produced fresh every cycle and never mutated.
type BalanceSnapshot struct {
	Native        Amount    `json:"native"`
	Stable        Amount    `json:"stable"`
	TimestampedAt time.Time `json:"timestamped_at"`
}

// Complete reports whether both readings are known.
func (s BalanceSnapshot) Complete() bool {
	return s.Native.IsKnown() && s.Stable.IsKnown()
}

// BalancePoint is one snapshot stored in the balance timeseries.
type BalancePoint struct {
	CycleID     string
	Tier        Tier
	Native      Amount
	Stable      Amount
	TimestampMs int64
}

// NewBalancePoint builds a timeseries point from a cycle's snapshot.
func NewBalancePoint(cycleID string, tier Tier, s BalanceSnapshot) *BalancePoint {
	return &BalancePoint{
		CycleID:     cycleID,
		Tier:        tier,
		Native:      s.Native,
		Stable:      s.Stable,
		TimestampMs: s.TimestampedAt.UnixMilli(),
	}
}
