package quote

import (
	"github.com/shopspring/decimal"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// Recompute derives the non-edited side of an amount pair from the edited
// side using the current price pair. The edited side is never rewritten, so
// the field the user is typing in cannot feed back into itself.
//
// Parameters:
// - pair: the current amount pair.
// - nativePriceUSD: the native-asset USD price.
// - tokenPriceUSD: the token USD price.
//
// Returns:
// - types.AmountPair: the pair with the derived side updated. When the edited
//   side is empty or a price is unknown, the derived side is cleared.
func Recompute(pair types.AmountPair, nativePriceUSD, tokenPriceUSD decimal.Decimal) types.AmountPair {
	if pair.LastEdited == types.NativeSide {
		derived, ok := TokenFromNative(pair.NativeAmount, nativePriceUSD, tokenPriceUSD)
		if !ok {
			derived = ""
		}
		pair.TokenAmount = derived
		return pair
	}

	derived, ok := NativeFromToken(pair.TokenAmount, nativePriceUSD, tokenPriceUSD)
	if !ok {
		derived = ""
	}
	pair.NativeAmount = derived
	return pair
}

// Edit records a user edit on one side and recomputes the other.
//
// Parameters:
// - pair: the current amount pair.
// - side: the side the user edited.
// - value: the new amount string for that side.
// - nativePriceUSD: the native-asset USD price.
// - tokenPriceUSD: the token USD price.
//
// Returns:
// - types.AmountPair: the updated pair with LastEdited set to the edited side.
func Edit(pair types.AmountPair, side types.Side, value string, nativePriceUSD, tokenPriceUSD decimal.Decimal) types.AmountPair {
	pair.LastEdited = side
	if side == types.NativeSide {
		pair.NativeAmount = value
	} else {
		pair.TokenAmount = value
	}
	return Recompute(pair, nativePriceUSD, tokenPriceUSD)
}
