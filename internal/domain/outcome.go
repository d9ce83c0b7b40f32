package domain

import "time"

// Action is the single action selected by a heartbeat cycle.
type Action string

const (
	ActionNone      Action = "none"
	ActionStabilize Action = "stabilize"
	ActionHarvest   Action = "harvest"
	ActionInvest    Action = "invest"
	ActionHibernate Action = "hibernate"
)

// String returns the string representation of Action.
func (a Action) String() string {
	return string(a)
}

// Outcome error messages shared by the engine and its tests.
const (
	OutcomeErrBalancesUnknown      = "balances unknown"
	OutcomeErrInsufficientReserve  = "insufficient reserve to stabilize"
	OutcomeErrInsufficientHeadroom = "insufficient native above reserve floor"
	OutcomeErrNativeReserveReached = "native reserve at or below floor"
)

// ActionOutcome is the record of one heartbeat cycle.
// Created once per cycle, appended to the audit trail, never mutated.
type ActionOutcome struct {
	CycleID        string          `json:"cycle_id"`
	Success        bool            `json:"success"`
	Tier           Tier            `json:"tier"`
	ActionTaken    Action          `json:"action_taken"`
	TransactionRef string          `json:"transaction_ref,omitempty"`
	Error          string          `json:"error,omitempty"`
	Ambiguous      bool            `json:"ambiguous,omitempty"` // submitted but finality unconfirmed
	Target         string          `json:"target,omitempty"`    // invest target symbol
	Amount         string          `json:"amount,omitempty"`    // native amount spent
	TributeRef     string          `json:"tribute_ref,omitempty"`
	TributeError   string          `json:"tribute_error,omitempty"`
	Snapshot       BalanceSnapshot `json:"snapshot"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}
