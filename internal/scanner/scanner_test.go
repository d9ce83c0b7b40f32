package scanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-survival-agent/internal/domain"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	pairs []Pair
	err   error
	query string
}

func (f *fakeSource) SearchPairs(_ context.Context, query string) ([]Pair, error) {
	f.query = query
	return f.pairs, f.err
}

type fakeScorer struct {
	mu     sync.Mutex
	safe   map[string]int
	scored []string
}

func (f *fakeScorer) Score(_ context.Context, addr string) domain.TrustReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scored = append(f.scored, addr)
	if score, ok := f.safe[addr]; ok {
		return domain.TrustReport{TrustScore: score, IsSafe: true, Source: domain.TrustSourcePrimary}
	}
	return domain.TrustReport{TrustScore: 10, IsSafe: false, Source: domain.TrustSourcePrimary}
}

func (f *fakeScorer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scored)
}

func pair(addr string, volume float64, age time.Duration) Pair {
	p := Pair{
		ChainID:   "solana",
		BaseToken: Token{Address: addr, Symbol: "T" + addr},
		PriceUsd:  "0.01",
		Volume:    Volumes{H24: volume},
	}
	if age > 0 {
		p.PairCreatedAt = now.Add(-age).UnixMilli()
	}
	return p
}

func newScanner(src MarketSource, scorer *fakeScorer, opts Options) *Scanner {
	opts.Source = src
	opts.Scorer = scorer
	opts.Logger = zerolog.Nop()
	opts.Now = func() time.Time { return now }
	return New(opts)
}

func TestScan_FiltersAndRanks(t *testing.T) {
	src := &fakeSource{pairs: []Pair{
		pair("low-volume", 50_000, 48*time.Hour),
		pair("too-young", 900_000, time.Hour),
		pair("no-age", 800_000, 0),
		pair("b", 300_000, 72*time.Hour),
		pair("a", 500_000, 72*time.Hour),
		pair("c", 200_000, 30*time.Hour),
		{ChainID: "ethereum", BaseToken: Token{Address: "eth"}, Volume: Volumes{H24: 1e9}, PairCreatedAt: now.Add(-72 * time.Hour).UnixMilli()},
		pair(domain.USDCMint, 9e9, 72*time.Hour),
	}}
	scorer := &fakeScorer{safe: map[string]int{"a": 80, "b": 70, "c": 90, "too-young": 100, "no-age": 100}}

	got := newScanner(src, scorer, Options{Exclude: []string{domain.USDCMint}}).Scan(context.Background())

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].AssetAddress)
	assert.Equal(t, "b", got[1].AssetAddress)
	assert.Equal(t, "c", got[2].AssetAddress)
	assert.Equal(t, 80, got[0].TrustScore)
	assert.Equal(t, "Ta", got[0].Symbol)
	assert.Equal(t, "0.01", got[0].PriceHint)
	assert.Equal(t, domain.TrustSourcePrimary, got[0].DataSource)
	assert.Equal(t, "solana", src.query)
	assert.NotContains(t, scorer.scored, "too-young")
	assert.NotContains(t, scorer.scored, "no-age")
	assert.NotContains(t, scorer.scored, domain.USDCMint)
}

func TestScan_NeverReturnsUnsafeOrMoreThanMax(t *testing.T) {
	var pairs []Pair
	safe := map[string]int{}
	for i := 0; i < 10; i++ {
		addr := string(rune('a' + i))
		pairs = append(pairs, pair(addr, float64(1_000_000-i*10_000), 48*time.Hour))
		if i%2 == 0 {
			safe[addr] = 75
		}
	}
	scorer := &fakeScorer{safe: safe}

	got := newScanner(&fakeSource{pairs: pairs}, scorer, Options{Concurrency: 2}).Scan(context.Background())

	require.Len(t, got, 3)
	for _, c := range got {
		_, ok := safe[c.AssetAddress]
		assert.True(t, ok, "unsafe candidate %s returned", c.AssetAddress)
	}
	assert.Equal(t, []string{"a", "c", "e"}, []string{got[0].AssetAddress, got[1].AssetAddress, got[2].AssetAddress})
	// Third safe candidate is in the third batch of two; scoring stops there.
	assert.Equal(t, 6, scorer.count())
}

func TestScan_DepthLimitsScoring(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 20; i++ {
		pairs = append(pairs, pair(string(rune('a'+i)), float64(200_000+i), 48*time.Hour))
	}
	scorer := &fakeScorer{safe: map[string]int{}}

	got := newScanner(&fakeSource{pairs: pairs}, scorer, Options{Depth: 10}).Scan(context.Background())

	assert.Empty(t, got)
	assert.Equal(t, 10, scorer.count())
}

func TestScan_DuplicateBaseTokenKeepsHighestVolume(t *testing.T) {
	p1 := pair("dup", 150_000, 48*time.Hour)
	p1.PriceUsd = "1"
	p2 := pair("dup", 400_000, 48*time.Hour)
	p2.PriceUsd = "2"
	scorer := &fakeScorer{safe: map[string]int{"dup": 90}}

	got := newScanner(&fakeSource{pairs: []Pair{p1, p2}}, scorer, Options{}).Scan(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].PriceHint)
	assert.Equal(t, 1, scorer.count())
}

func TestScan_SourceErrorIsEmpty(t *testing.T) {
	scorer := &fakeScorer{}
	got := newScanner(&fakeSource{err: errors.New("503")}, scorer, Options{}).Scan(context.Background())
	assert.Empty(t, got)
	assert.Zero(t, scorer.count())
}

func TestDexScreener_SearchPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "solana" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":[{"chainId":"solana","dexId":"raydium","pairAddress":"P1","baseToken":{"address":"M1","name":"Token","symbol":"TKN"},"quoteToken":{"address":"So11111111111111111111111111111111111111112","symbol":"SOL"},"priceUsd":"0.42","volume":{"h24":123456.5},"liquidity":{"usd":5000},"pairCreatedAt":1700000000000}]}`))
	}))
	defer server.Close()

	pairs, err := NewDexScreener(server.URL, time.Second).SearchPairs(context.Background(), "solana")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "M1", pairs[0].BaseToken.Address)
	assert.Equal(t, 123456.5, pairs[0].Volume.H24)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), pairs[0].CreatedAt())
}

func TestDexScreener_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewDexScreener(server.URL, time.Second).SearchPairs(context.Background(), "solana")
	assert.Error(t, err)
}
