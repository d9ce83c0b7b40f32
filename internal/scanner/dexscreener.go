package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solana-survival-agent/internal/observability"
)

// Pair is one DexScreener trading pair.
type Pair struct {
	ChainID       string    `json:"chainId"`
	DexID         string    `json:"dexId"`
	PairAddress   string    `json:"pairAddress"`
	BaseToken     Token     `json:"baseToken"`
	QuoteToken    Token     `json:"quoteToken"`
	PriceUsd      string    `json:"priceUsd"`
	Volume        Volumes   `json:"volume"`
	Liquidity     Liquidity `json:"liquidity"`
	PairCreatedAt int64     `json:"pairCreatedAt"` // unix ms, 0 when unknown
}

// Token identifies one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Volumes are USD volumes per window.
type Volumes struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// Liquidity is pool depth.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// CreatedAt returns the pair creation time, zero when unknown.
func (p Pair) CreatedAt() time.Time {
	if p.PairCreatedAt <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.PairCreatedAt).UTC()
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// DexScreener queries the public DexScreener API.
type DexScreener struct {
	base   string
	client *http.Client
}

// NewDexScreener creates a client against base, e.g. https://api.dexscreener.com.
func NewDexScreener(base string, timeout time.Duration) *DexScreener {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexScreener{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// SearchPairs returns pairs matching query.
func (d *DexScreener) SearchPairs(ctx context.Context, query string) (pairs []Pair, err error) {
	start := time.Now()
	defer func() { observability.RecordExternalCall("dexscreener", time.Since(start).Seconds(), err) }()

	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", d.base, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener status %d", resp.StatusCode)
	}

	var out pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pairs: %w", err)
	}
	return out.Pairs, nil
}
