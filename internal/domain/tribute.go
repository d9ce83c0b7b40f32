package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TributeStatus is the settlement state of a tribute transfer.
type TributeStatus string

const (
	TributeConfirmed TributeStatus = "CONFIRMED"
	TributeAmbiguous TributeStatus = "AMBIGUOUS" // funds may have moved
)

// TributeConfig holds the optional external recipient and surplus threshold.
// An empty Recipient disables harvesting.
type TributeConfig struct {
	Recipient string
	Threshold decimal.Decimal
}

// Enabled reports whether a recipient is configured.
func (c TributeConfig) Enabled() bool {
	return c.Recipient != ""
}

// TributeRecord is the durable audit entry of a tribute transfer.
type TributeRecord struct {
	ID        string          `json:"id"`
	CycleID   string          `json:"cycle_id,omitempty"`
	Recipient string          `json:"recipient"`
	Mint      string          `json:"mint"`
	Amount    decimal.Decimal `json:"amount"`
	Signature string          `json:"signature"`
	Status    TributeStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// TributeResult is what the harvester reports to the engine.
type TributeResult struct {
	Skipped bool
	Reason  string
	Amount  decimal.Decimal
	Ref     string
}
