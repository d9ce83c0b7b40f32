// Package jupiter is a client for the Jupiter swap aggregator API.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/observability"
)

// DefaultTimeout bounds every aggregator request.
const DefaultTimeout = 15 * time.Second

// Client talks to the quote and swap endpoints.
type Client struct {
	base                string
	apiKey              string
	priorityFeeLamports uint64
	http                *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithAPIKey sets the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithPriorityFee sets the prioritization fee requested for built swaps.
func WithPriorityFee(lamports uint64) Option {
	return func(c *Client) { c.priorityFeeLamports = lamports }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client against base, e.g. https://lite-api.jup.ag/swap/v1.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QuoteRequest describes a swap to price. Amount is in input base units.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

// Quote is a best-route quote. Raw holds the response verbatim for the build call.
type Quote struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	OtherAmount    string `json:"otherAmountThreshold"`
	SlippageBps    int    `json:"slippageBps"`
	PriceImpactPct string `json:"priceImpactPct"`

	Raw json.RawMessage `json:"-"`
}

// OutUnits parses OutAmount.
func (q *Quote) OutUnits() (uint64, error) {
	return strconv.ParseUint(q.OutAmount, 10, 64)
}

func (c *Client) do(req *http.Request, service string) (body []byte, status int, err error) {
	start := time.Now()
	defer func() { observability.RecordExternalCall(service, time.Since(start).Seconds(), err) }()

	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Quote requests a best-route quote. Failures wrap domain.ErrQuoteUnavailable.
func (c *Client) Quote(ctx context.Context, r QuoteRequest) (*Quote, error) {
	if r.Amount == 0 {
		return nil, fmt.Errorf("%w: zero amount", domain.ErrQuoteUnavailable)
	}
	q := url.Values{}
	q.Set("inputMint", r.InputMint)
	q.Set("outputMint", r.OutputMint)
	q.Set("amount", strconv.FormatUint(r.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(r.SlippageBps))
	q.Set("restrictIntermediateTokens", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
	}
	body, status, err := c.do(req, "jupiter_quote")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrQuoteUnavailable, status, apiError(body))
	}

	var out Quote
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode quote: %v", domain.ErrQuoteUnavailable, err)
	}
	if units, err := out.OutUnits(); err != nil || units == 0 {
		return nil, fmt.Errorf("%w: no output amount", domain.ErrQuoteUnavailable)
	}
	out.Raw = json.RawMessage(body)
	return &out, nil
}

// BuildSwapTransaction asks the aggregator for an unsigned transaction for quote,
// paid and signed by signer. Failures wrap domain.ErrBuildFailed.
func (c *Client) BuildSwapTransaction(ctx context.Context, quote *Quote, signer string) ([]byte, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing quote", domain.ErrBuildFailed)
	}
	payload := map[string]any{
		"quoteResponse":             quote.Raw,
		"userPublicKey":             signer,
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": c.priorityFeeLamports,
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", domain.ErrBuildFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/swap", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBuildFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req, "jupiter_swap")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBuildFailed, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrBuildFailed, status, apiError(body))
	}

	var sr struct {
		SwapTransaction string `json:"swapTransaction"` // base64, unsigned
	}
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: decode swap: %v", domain.ErrBuildFailed, err)
	}
	if sr.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: empty transaction", domain.ErrBuildFailed)
	}
	raw, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: decode tx: %v", domain.ErrBuildFailed, err)
	}
	return raw, nil
}

// Probe prices a small SOL to USDC swap to check the aggregator is reachable.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Quote(ctx, QuoteRequest{
		InputMint:   domain.NativeMint,
		OutputMint:  domain.USDCMint,
		Amount:      1_000_000, // 0.001 SOL
		SlippageBps: 50,
	})
	return err
}

func apiError(body []byte) string {
	var e struct {
		Error     string `json:"error"`
		ErrorCode string `json:"errorCode"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		if e.ErrorCode != "" {
			return e.ErrorCode + ": " + e.Error
		}
		return e.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
