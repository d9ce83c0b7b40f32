// Package security scores candidate assets from independent risk sources.
package security

import (
	"context"

	"github.com/rs/zerolog"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/observability"
)

// Defaults.
const (
	DefaultSafeCutoff    = 60
	DefaultFallbackScore = 70
)

// Scorer yields a trust verdict for an asset. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, assetAddress string) domain.TrustReport
}

// Options configures Service. Primary may be nil when no credential is configured.
type Options struct {
	Primary       *BirdeyeClient
	Fallback      *StrictList
	SafeCutoff    int
	FallbackScore int
	Logger        zerolog.Logger
}

// Service scores with the primary source and degrades to the verified list.
type Service struct {
	primary       *BirdeyeClient
	fallback      *StrictList
	cutoff        int
	fallbackScore int
	logger        zerolog.Logger
}

// New creates a scoring Service.
func New(opts Options) *Service {
	if opts.SafeCutoff <= 0 {
		opts.SafeCutoff = DefaultSafeCutoff
	}
	if opts.FallbackScore <= 0 {
		opts.FallbackScore = DefaultFallbackScore
	}
	return &Service{
		primary:       opts.Primary,
		fallback:      opts.Fallback,
		cutoff:        opts.SafeCutoff,
		fallbackScore: opts.FallbackScore,
		logger:        opts.Logger,
	}
}

// Score never returns an error: when no source answers, the asset is unsafe.
func (s *Service) Score(ctx context.Context, assetAddress string) domain.TrustReport {
	report := s.score(ctx, assetAddress)
	observability.RecordCandidateScored(string(report.Source), report.IsSafe)
	return report
}

func (s *Service) score(ctx context.Context, assetAddress string) domain.TrustReport {
	if s.primary != nil {
		signals, err := s.primary.TokenSecurity(ctx, assetAddress)
		if err == nil {
			score := signals.Score()
			return domain.TrustReport{
				TrustScore: score,
				IsSafe:     score >= s.cutoff,
				Source:     domain.TrustSourcePrimary,
			}
		}
		s.logger.Debug().Err(err).Str("asset", assetAddress).Msg("primary security source failed, using verified list")
	}

	if s.fallback != nil {
		member, err := s.fallback.Contains(ctx, assetAddress)
		if err != nil {
			s.logger.Debug().Err(err).Str("asset", assetAddress).Msg("verified list unavailable")
		} else if member {
			return domain.TrustReport{
				TrustScore: s.fallbackScore,
				IsSafe:     true,
				Source:     domain.TrustSourceFallback,
			}
		}
	}

	return domain.TrustReport{TrustScore: 0, IsSafe: false, Source: domain.TrustSourceNone}
}

var _ Scorer = (*Service)(nil)
