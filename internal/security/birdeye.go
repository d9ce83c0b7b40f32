package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solana-survival-agent/internal/observability"
)

// Signal weights. They sum to 100.
const (
	WeightRenounced       = 30
	WeightLiquidityLocked = 30
	WeightNotHoneypot     = 20
	WeightNotFreezeable   = 10
	WeightNoTransferFee   = 10
)

// Signals are the risk flags reported for one asset. A nil field means the
// source did not report it, which never counts in the asset's favour.
type Signals struct {
	OwnerRenounced     *bool `json:"owner_renounced"`
	OwnerRenouncedAlt  *bool `json:"ownerRenounced"`
	LiquidityLocked    *bool `json:"liquidity_locked"`
	LiquidityLockedAlt *bool `json:"liquidityLocked"`
	IsHoneypot         *bool `json:"is_honeypot"`
	IsHoneypotAlt      *bool `json:"isHoneypot"`
	Freezeable         *bool `json:"freezeable"`
	TransferFeeEnable  *bool `json:"transferFeeEnable"`
}

func isTrue(vals ...*bool) bool {
	for _, v := range vals {
		if v != nil && *v {
			return true
		}
	}
	return false
}

func isFalse(vals ...*bool) bool {
	seen := false
	for _, v := range vals {
		if v == nil {
			continue
		}
		if *v {
			return false
		}
		seen = true
	}
	return seen
}

// Score computes the additive trust score. Deterministic for fixed signals.
func (s *Signals) Score() int {
	if s == nil {
		return 0
	}
	score := 0
	if isTrue(s.OwnerRenounced, s.OwnerRenouncedAlt) {
		score += WeightRenounced
	}
	if isTrue(s.LiquidityLocked, s.LiquidityLockedAlt) {
		score += WeightLiquidityLocked
	}
	if isFalse(s.IsHoneypot, s.IsHoneypotAlt) {
		score += WeightNotHoneypot
	}
	if isFalse(s.Freezeable) {
		score += WeightNotFreezeable
	}
	if isFalse(s.TransferFeeEnable) {
		score += WeightNoTransferFee
	}
	return score
}

// BirdeyeClient queries the Birdeye token security endpoint.
type BirdeyeClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewBirdeyeClient creates a client. apiKey must not be empty.
func NewBirdeyeClient(baseURL, apiKey string, timeout time.Duration) *BirdeyeClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BirdeyeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type tokenSecurityResponse struct {
	Success bool     `json:"success"`
	Data    *Signals `json:"data"`
}

// TokenSecurity fetches risk signals. A successful response without a data
// object returns nil signals and no error.
func (c *BirdeyeClient) TokenSecurity(ctx context.Context, address string) (sig *Signals, err error) {
	start := time.Now()
	defer func() { observability.RecordExternalCall("birdeye", time.Since(start).Seconds(), err) }()

	endpoint := fmt.Sprintf("%s/defi/token_security?address=%s", c.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("x-chain", "solana")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token security request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("token security status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload tokenSecurityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode token security: %w", err)
	}
	return payload.Data, nil
}
