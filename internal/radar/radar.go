// Package radar watches newly created tokens and scores them. It is
// read-only: sightings are logged and exposed on /status, never traded.
package radar

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/security"
)

// DefaultKeep is the number of sightings retained.
const DefaultKeep = 50

// Sighting is one scored token creation.
type Sighting struct {
	Time   time.Time          `json:"time"`
	Mint   string             `json:"mint"`
	Symbol string             `json:"symbol"`
	Name   string             `json:"name"`
	Report domain.TrustReport `json:"report"`
}

// Radar scores every new token from the feed and keeps the latest sightings.
type Radar struct {
	feed         *Feed
	scorer       security.Scorer
	keep         int
	scoreTimeout time.Duration
	logger       zerolog.Logger
	now          func() time.Time

	mu        sync.RWMutex
	sightings []Sighting
}

// New creates a Radar.
func New(feed *Feed, scorer security.Scorer, keep int, logger zerolog.Logger) *Radar {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Radar{
		feed:         feed,
		scorer:       scorer,
		keep:         keep,
		scoreTimeout: 10 * time.Second,
		logger:       logger,
		now:          time.Now,
	}
}

// Run consumes the feed until ctx is done.
func (r *Radar) Run(ctx context.Context) error {
	r.logger.Info().Str("url", r.feed.url).Msg("radar started")
	return r.feed.Run(ctx, func(t NewToken) {
		r.observe(ctx, t)
	})
}

func (r *Radar) observe(ctx context.Context, t NewToken) {
	ctx, cancel := context.WithTimeout(ctx, r.scoreTimeout)
	defer cancel()

	report := r.scorer.Score(ctx, t.Mint)
	observability.RecordRadarToken(report.IsSafe)

	s := Sighting{
		Time:   r.now().UTC(),
		Mint:   t.Mint,
		Symbol: t.Symbol,
		Name:   t.Name,
		Report: report,
	}
	r.logger.Info().
		Str("mint", s.Mint).
		Str("symbol", s.Symbol).
		Int("trust_score", report.TrustScore).
		Bool("safe", report.IsSafe).
		Str("source", string(report.Source)).
		Msg("new token sighted")

	r.mu.Lock()
	r.sightings = append(r.sightings, s)
	if over := len(r.sightings) - r.keep; over > 0 {
		r.sightings = append(r.sightings[:0:0], r.sightings[over:]...)
	}
	r.mu.Unlock()
}

// Recent returns the retained sightings, newest first.
func (r *Radar) Recent() []Sighting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sighting, len(r.sightings))
	for i, s := range r.sightings {
		out[len(out)-1-i] = s
	}
	return out
}
