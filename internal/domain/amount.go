package domain

import "github.com/shopspring/decimal"

// Amount is a balance reading that may be unknown.
// An unknown amount is never equal to zero and has no numeric value.
type Amount struct {
	value decimal.Decimal
	known bool
}

// KnownAmount wraps a confirmed value.
func KnownAmount(v decimal.Decimal) Amount {
	return Amount{value: v, known: true}
}

// UnknownAmount returns an amount that could not be read.
func UnknownAmount() Amount {
	return Amount{}
}

// Get returns the value and whether it is known.
func (a Amount) Get() (decimal.Decimal, bool) {
	return a.value, a.known
}

// IsKnown reports whether the amount was confirmed.
func (a Amount) IsKnown() bool {
	return a.known
}

// String renders the amount, or "unknown".
func (a Amount) String() string {
	if !a.known {
		return "unknown"
	}
	return a.value.String()
}

// MarshalJSON encodes unknown amounts as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.known {
		return []byte("null"), nil
	}
	return a.value.MarshalJSON()
}

// UnmarshalJSON decodes null as unknown.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = UnknownAmount()
		return nil
	}
	var v decimal.Decimal
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = KnownAmount(v)
	return nil
}
