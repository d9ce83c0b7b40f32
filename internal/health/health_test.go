package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/engine"
	"solana-survival-agent/internal/radar"
)

type fakeLedger struct {
	slot int64
	err  error
}

func (f fakeLedger) GetSlot(context.Context) (int64, error) { return f.slot, f.err }

type fakeAggregator struct{ err error }

func (f fakeAggregator) Probe(context.Context) error { return f.err }

type fakeEngine struct{ status engine.Status }

func (f fakeEngine) Status() engine.Status { return f.status }

type fakeRadar []radar.Sighting

func (f fakeRadar) Recent() []radar.Sighting { return f }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_AllUp(t *testing.T) {
	s := New(Options{
		Ledger:     fakeLedger{slot: 1234},
		Aggregator: fakeAggregator{},
		Logger:     zerolog.Nop(),
	})

	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Ledger.OK)
	assert.Equal(t, int64(1234), resp.Ledger.Slot)
	require.NotNil(t, resp.Aggregator)
	assert.True(t, resp.Aggregator.OK)
}

func TestHealth_AggregatorDown(t *testing.T) {
	s := New(Options{
		Ledger:     fakeLedger{slot: 1},
		Aggregator: fakeAggregator{err: errors.New("503 unavailable")},
		Logger:     zerolog.Nop(),
	})

	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.True(t, resp.Ledger.OK)
	assert.Equal(t, "503 unavailable", resp.Aggregator.Error)
}

func TestHealth_LedgerDownWithoutAggregator(t *testing.T) {
	s := New(Options{Ledger: fakeLedger{err: errors.New("connection refused")}, Logger: zerolog.Nop()})

	resp := s.Probe(context.Background())
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.Ledger.OK)
	assert.Nil(t, resp.Aggregator)
}

func TestStatus(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	last := domain.ActionOutcome{CycleID: "c-1", Tier: domain.TierNominal, ActionTaken: domain.ActionNone, Success: true}

	s := New(Options{
		Ledger:  fakeLedger{},
		Engine:  fakeEngine{status: engine.Status{Cycles: 7, LastOutcome: &last}},
		Radar:   fakeRadar{{Mint: "MintA", Symbol: "AAA"}},
		Address: "Agent1111111111111111111111111111111111111",
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return now },
	})
	now = start.Add(90 * time.Second)

	rec := get(t, s.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Agent1111111111111111111111111111111111111", resp.Address)
	assert.Equal(t, "1m30s", resp.Uptime)
	assert.Equal(t, int64(7), resp.Engine.Cycles)
	require.NotNil(t, resp.Engine.LastOutcome)
	assert.Equal(t, "c-1", resp.Engine.LastOutcome.CycleID)
	assert.Equal(t, domain.TierNominal, resp.Engine.LastOutcome.Tier)
	require.Len(t, resp.Sightings, 1)
	assert.Equal(t, "MintA", resp.Sightings[0].Mint)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(Options{Ledger: fakeLedger{}, Logger: zerolog.Nop()})
	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
