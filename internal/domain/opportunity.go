package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrustSource identifies which data source produced a trust score.
type TrustSource string

const (
	TrustSourcePrimary  TrustSource = "primary"  // premium risk-signal API
	TrustSourceFallback TrustSource = "fallback" // curated verified-asset list
	TrustSourceNone     TrustSource = "none"
)

// TrustReport is the Security Scorer verdict for one asset.
type TrustReport struct {
	TrustScore int         `json:"trust_score"` // 0..100
	IsSafe     bool        `json:"is_safe"`
	Source     TrustSource `json:"source"`
}

// Candidate is a ranked market opportunity. Ephemeral, produced per scan.
type Candidate struct {
	Symbol       string          `json:"symbol"`
	AssetAddress string          `json:"asset_address"`
	Volume       decimal.Decimal `json:"volume"` // 24h volume, USD
	TrustScore   int             `json:"trust_score"`
	PriceHint    string          `json:"price_hint,omitempty"` // USD price as reported by the market source
	DataSource   TrustSource     `json:"data_source"`
	PairCreated  time.Time       `json:"pair_created"`
}
