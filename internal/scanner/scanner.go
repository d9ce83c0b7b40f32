// Package scanner finds high-volume, aged market candidates and keeps the safe ones.
package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/security"
)

// Defaults.
const (
	DefaultChain        = "solana"
	DefaultMinVolumeUSD = 100_000
	DefaultMinPairAge   = 24 * time.Hour
	DefaultDepth        = 10
	DefaultMaxAccepted  = 3
	DefaultConcurrency  = 4
)

// MarketSource supplies candidate pairs.
type MarketSource interface {
	SearchPairs(ctx context.Context, query string) ([]Pair, error)
}

// Options configures Scanner.
type Options struct {
	Source       MarketSource
	Scorer       security.Scorer
	Query        string
	MinVolumeUSD float64
	MinPairAge   time.Duration
	Depth        int
	MaxAccepted  int
	Concurrency  int
	Exclude      []string // asset addresses never offered, e.g. the native and stable mints
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Scanner ranks market candidates by volume and filters them through a Scorer.
type Scanner struct {
	source      MarketSource
	scorer      security.Scorer
	query       string
	minVolume   float64
	minAge      time.Duration
	depth       int
	maxAccepted int
	concurrency int
	exclude     map[string]struct{}
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a Scanner, filling zero options with defaults.
func New(opts Options) *Scanner {
	if opts.Query == "" {
		opts.Query = DefaultChain
	}
	if opts.MinVolumeUSD <= 0 {
		opts.MinVolumeUSD = DefaultMinVolumeUSD
	}
	if opts.MinPairAge <= 0 {
		opts.MinPairAge = DefaultMinPairAge
	}
	if opts.Depth <= 0 {
		opts.Depth = DefaultDepth
	}
	if opts.MaxAccepted <= 0 {
		opts.MaxAccepted = DefaultMaxAccepted
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, a := range opts.Exclude {
		exclude[a] = struct{}{}
	}
	return &Scanner{
		source:      opts.Source,
		scorer:      opts.Scorer,
		query:       opts.Query,
		minVolume:   opts.MinVolumeUSD,
		minAge:      opts.MinPairAge,
		depth:       opts.Depth,
		maxAccepted: opts.MaxAccepted,
		concurrency: opts.Concurrency,
		exclude:     exclude,
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// Scan returns at most MaxAccepted safe candidates ordered by descending volume.
// It never fails: a market-data error yields an empty list.
func (s *Scanner) Scan(ctx context.Context) []domain.Candidate {
	pairs, err := s.source.SearchPairs(ctx, s.query)
	if err != nil {
		s.logger.Warn().Err(err).Msg("market scan failed")
		observability.RecordScan(0, err)
		return nil
	}

	ranked := s.rank(pairs)
	accepted := s.screen(ctx, ranked)

	s.logger.Info().
		Int("pairs", len(pairs)).
		Int("eligible", len(ranked)).
		Int("accepted", len(accepted)).
		Msg("market scan complete")
	observability.RecordScan(len(accepted), nil)
	return accepted
}

// rank filters pairs, collapses duplicates per base token and returns the
// top Depth by 24h volume.
func (s *Scanner) rank(pairs []Pair) []Pair {
	now := s.now()
	best := make(map[string]Pair)
	for _, p := range pairs {
		addr := p.BaseToken.Address
		if p.ChainID != DefaultChain || addr == "" {
			continue
		}
		if _, skip := s.exclude[addr]; skip {
			continue
		}
		if p.Volume.H24 < s.minVolume {
			continue
		}
		created := p.CreatedAt()
		if created.IsZero() || now.Sub(created) < s.minAge {
			continue
		}
		if cur, ok := best[addr]; !ok || p.Volume.H24 > cur.Volume.H24 {
			best[addr] = p
		}
	}

	out := make([]Pair, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Volume.H24 != out[j].Volume.H24 {
			return out[i].Volume.H24 > out[j].Volume.H24
		}
		return out[i].BaseToken.Address < out[j].BaseToken.Address
	})
	if len(out) > s.depth {
		out = out[:s.depth]
	}
	return out
}

// screen scores ranked pairs in batches of Concurrency, keeping ranking order,
// and stops once MaxAccepted safe candidates are collected.
func (s *Scanner) screen(ctx context.Context, ranked []Pair) []domain.Candidate {
	var accepted []domain.Candidate
	for start := 0; start < len(ranked) && len(accepted) < s.maxAccepted; start += s.concurrency {
		if ctx.Err() != nil {
			break
		}
		end := min(start+s.concurrency, len(ranked))
		batch := ranked[start:end]
		reports := make([]domain.TrustReport, len(batch))

		var g errgroup.Group
		for i, p := range batch {
			i, p := i, p
			g.Go(func() error {
				reports[i] = s.scorer.Score(ctx, p.BaseToken.Address)
				return nil
			})
		}
		_ = g.Wait()

		for i, p := range batch {
			r := reports[i]
			if !r.IsSafe {
				s.logger.Debug().Str("symbol", p.BaseToken.Symbol).Int("score", r.TrustScore).Msg("candidate rejected")
				continue
			}
			accepted = append(accepted, domain.Candidate{
				Symbol:       p.BaseToken.Symbol,
				AssetAddress: p.BaseToken.Address,
				Volume:       decimal.NewFromFloat(p.Volume.H24),
				TrustScore:   r.TrustScore,
				PriceHint:    p.PriceUsd,
				DataSource:   r.Source,
				PairCreated:  p.CreatedAt(),
			})
			if len(accepted) >= s.maxAccepted {
				break
			}
		}
	}
	return accepted
}
