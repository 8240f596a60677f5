package router

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// SmallestUnit converts a decimal amount string into the asset's integer
// smallest-unit representation. The conversion starts from the authoritative
// input string at full precision; amounts that reach the chain never pass
// through the 6-decimal display form. Excess fractional digits beyond the
// asset's precision are truncated.
//
// Parameters:
// - amount: the decimal amount string.
// - decimals: the asset's integer decimal precision.
//
// Returns:
// - *big.Int: the amount in smallest units.
// - error: an error if the amount is empty, malformed, or negative.
func SmallestUnit(amount string, decimals uint8) (*big.Int, error) {
	if amount == "" {
		return nil, errors.New("empty amount")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse amount")
	}
	if d.IsNegative() {
		return nil, errors.New("negative amount")
	}

	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// FromSmallestUnit converts an integer smallest-unit amount back into a
// decimal value at the asset's precision. Used for display and balance
// comparisons only.
//
// Parameters:
// - amount: the amount in smallest units.
// - decimals: the asset's integer decimal precision.
//
// Returns:
// - decimal.Decimal: the decimal amount.
func FromSmallestUnit(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, 0).Shift(-int32(decimals))
}
