package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report summarizes the mission audit trail.
type Report struct {
	GeneratedAt time.Time

	Summary Summary

	// Sorted by tier severity, then action.
	Breakdown []BreakdownRow

	// Newest first.
	Outcomes []OutcomeRow
	Tributes []TributeRow
}

// Summary counts the outcomes covered by the report.
type Summary struct {
	Cycles         int
	Succeeded      int
	Failed         int
	Ambiguous      int
	TributeCount   int
	TributeTotal   decimal.Decimal // confirmed tributes only
	FirstCycleAt   time.Time
	LastCycleAt    time.Time
	UnknownReadout int // cycles where at least one balance was unknown
}

// BreakdownRow counts outcomes per tier and action.
type BreakdownRow struct {
	Tier      string
	Action    string
	Count     int
	Succeeded int
}

// OutcomeRow is one cycle in the outcome table.
type OutcomeRow struct {
	CycleID    string
	FinishedAt time.Time
	Tier       string
	Action     string
	Success    bool
	Ambiguous  bool
	Native     string
	Stable     string
	Target     string
	TxRef      string
	Error      string
}

// TributeRow is one transfer in the tribute table.
type TributeRow struct {
	CreatedAt time.Time
	Amount    decimal.Decimal
	Recipient string
	Signature string
	Status    string
}
