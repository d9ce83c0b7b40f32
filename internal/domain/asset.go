package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Well-known mainnet mints.
const (
	NativeMint = "So11111111111111111111111111111111111111112" // wrapped SOL, used by the aggregator for SOL
	USDCMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// Decimal places of the native asset (lamports per SOL = 10^9).
const NativeDecimals = 9

// FromBaseUnits converts an integer base-unit amount to whole units.
func FromBaseUnits(units uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -decimals)
}

// ToBaseUnits converts whole units to base units, truncating sub-unit dust.
// Negative amounts and amounts beyond uint64 are rejected.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", amount)
	}
	units := amount.Shift(decimals).Truncate(0).BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("amount %s out of range", amount)
	}
	return units.Uint64(), nil
}
