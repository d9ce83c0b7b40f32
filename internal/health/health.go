// Package health serves the agent's liveness, status and metrics endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-survival-agent/internal/engine"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/radar"
)

// ProbeTimeout bounds each dependency probe.
const ProbeTimeout = 5 * time.Second

// Ledger is the RPC check.
type Ledger interface {
	GetSlot(ctx context.Context) (int64, error)
}

// Aggregator is the swap API check.
type Aggregator interface {
	Probe(ctx context.Context) error
}

// StatusSource reports engine progress.
type StatusSource interface {
	Status() engine.Status
}

// Sightings lists recent radar sightings.
type Sightings interface {
	Recent() []radar.Sighting
}

// Options configures Server. Aggregator and Radar may be nil.
type Options struct {
	Ledger     Ledger
	Aggregator Aggregator
	Engine     StatusSource
	Radar      Sightings
	Address    string
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Server builds the HTTP handlers.
type Server struct {
	opts    Options
	started time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{opts: opts, started: opts.Now()}
}

// Handler returns the mux with /health, /status and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// Check is the result of one dependency probe.
type Check struct {
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	Slot      int64  `json:"slot,omitempty"`
}

// HealthResponse is the JSON body of /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Ledger     Check  `json:"ledger"`
	Aggregator *Check `json:"aggregator,omitempty"`
}

// Probe checks the ledger and the aggregator concurrently.
func (s *Server) Probe(ctx context.Context) HealthResponse {
	var resp HealthResponse
	var agg Check

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, ProbeTimeout)
		defer cancel()
		start := time.Now()
		slot, err := s.opts.Ledger.GetSlot(ctx)
		resp.Ledger = check(start, err)
		resp.Ledger.Slot = slot
		return nil
	})
	if s.opts.Aggregator != nil {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(gctx, ProbeTimeout)
			defer cancel()
			start := time.Now()
			agg = check(start, s.opts.Aggregator.Probe(ctx))
			return nil
		})
	}
	_ = g.Wait()

	resp.Status = "ok"
	if !resp.Ledger.OK {
		resp.Status = "degraded"
	}
	if s.opts.Aggregator != nil {
		resp.Aggregator = &agg
		if !agg.OK {
			resp.Status = "degraded"
		}
	}
	return resp
}

func check(start time.Time, err error) Check {
	c := Check{OK: err == nil, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		c.Error = err.Error()
	}
	return c
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.Probe(r.Context())
	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
		s.opts.Logger.Warn().Interface("health", resp).Msg("dependency probe failed")
	}
	writeJSON(w, code, resp)
}

// StatusResponse is the JSON body of /status.
type StatusResponse struct {
	Address   string           `json:"address"`
	Uptime    string           `json:"uptime"`
	Started   time.Time        `json:"started"`
	Engine    engine.Status    `json:"engine"`
	Sightings []radar.Sighting `json:"sightings,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Address: s.opts.Address,
		Uptime:  s.opts.Now().Sub(s.started).Round(time.Second).String(),
		Started: s.started.UTC(),
	}
	if s.opts.Engine != nil {
		resp.Engine = s.opts.Engine.Status()
	}
	if s.opts.Radar != nil {
		resp.Sightings = s.opts.Radar.Recent()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
