package quote

import (
	"github.com/shopspring/decimal"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// DisplayDecimals is the display precision for derived amounts. It applies to
// user-facing strings only; amounts submitted on-chain are converted from the
// authoritative input string at the asset's true integer precision.
const DisplayDecimals = 6

// bpsDenominator converts basis points to a fraction.
var bpsDenominator = decimal.NewFromInt(10000)

// ParseAmount parses a user-entered amount string.
//
// Parameters:
// - s: the amount string to parse.
//
// Returns:
// - decimal.Decimal: the parsed amount.
// - bool: false if the string is empty, malformed, or negative.
func ParseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// TokenFromNative converts a native-asset amount to a token amount using the
// current USD price pair. The result is truncated to display precision.
//
// Parameters:
// - nativeAmt: the native-asset amount string.
// - nativePriceUSD: the native-asset USD price.
// - tokenPriceUSD: the token USD price.
//
// Returns:
// - string: the derived token amount at display precision.
// - bool: false when either price is unknown or the input does not parse.
func TokenFromNative(nativeAmt string, nativePriceUSD, tokenPriceUSD decimal.Decimal) (string, bool) {
	return convert(nativeAmt, nativePriceUSD, tokenPriceUSD)
}

// NativeFromToken converts a token amount to a native-asset amount using the
// current USD price pair. The result is truncated to display precision.
//
// Parameters:
// - tokenAmt: the token amount string.
// - nativePriceUSD: the native-asset USD price.
// - tokenPriceUSD: the token USD price.
//
// Returns:
// - string: the derived native amount at display precision.
// - bool: false when either price is unknown or the input does not parse.
func NativeFromToken(tokenAmt string, nativePriceUSD, tokenPriceUSD decimal.Decimal) (string, bool) {
	return convert(tokenAmt, tokenPriceUSD, nativePriceUSD)
}

// convert computes amt * priceA / priceB. A non-positive price means the
// price is unknown, never a divide-by-zero.
func convert(amt string, priceA, priceB decimal.Decimal) (string, bool) {
	if !priceA.IsPositive() || !priceB.IsPositive() {
		return "", false
	}
	d, ok := ParseAmount(amt)
	if !ok {
		return "", false
	}
	out := d.Mul(priceA).Div(priceB).Truncate(DisplayDecimals)
	return out.StringFixed(DisplayDecimals), true
}

// MinReceived computes outputAmount * (1 - slippageBps/10000), floored to
// display precision.
//
// Parameters:
// - outputAmount: the quoted output amount string.
// - slippageBps: the slippage tolerance in basis points.
//
// Returns:
// - decimal.Decimal: the minimum acceptable output amount.
// - bool: false when the output amount does not parse or slippage is outside
//   [0, MaxSlippageBps].
func MinReceived(outputAmount string, slippageBps int) (decimal.Decimal, bool) {
	out, ok := ParseAmount(outputAmount)
	if !ok || slippageBps < 0 || slippageBps > types.MaxSlippageBps {
		return decimal.Zero, false
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(slippageBps)).Div(bpsDenominator))
	return out.Mul(factor).RoundFloor(DisplayDecimals), true
}
