package storage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"solana-survival-agent/internal/domain"
)

// AmountText encodes an amount for a nullable text column. Unknown is NULL.
func AmountText(a domain.Amount) *string {
	v, ok := a.Get()
	if !ok {
		return nil
	}
	s := v.String()
	return &s
}

// ParseAmount decodes a nullable text column written by AmountText.
func ParseAmount(s *string) (domain.Amount, error) {
	if s == nil {
		return domain.UnknownAmount(), nil
	}
	v, err := decimal.NewFromString(*s)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("%w: amount %q", ErrInvalidInput, *s)
	}
	return domain.KnownAmount(v), nil
}

// ValidOutcome checks the fields every backend requires.
func ValidOutcome(o *domain.ActionOutcome) error {
	if o == nil || o.CycleID == "" {
		return ErrInvalidInput
	}
	return nil
}

// ValidTribute checks the fields every backend requires.
func ValidTribute(r *domain.TributeRecord) error {
	if r == nil || r.ID == "" || r.Recipient == "" {
		return ErrInvalidInput
	}
	return nil
}

// ValidPoint checks the fields every backend requires.
func ValidPoint(p *domain.BalancePoint) error {
	if p == nil || p.CycleID == "" {
		return ErrInvalidInput
	}
	return nil
}
