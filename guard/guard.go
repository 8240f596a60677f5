package guard

import (
	"math/big"

	"github.com/shopspring/decimal"

	swaperrors "github.com/BaseSwapLabs/swap-engine/common/errors"
	"github.com/BaseSwapLabs/swap-engine/common/types"
	"github.com/BaseSwapLabs/swap-engine/quote"
	"github.com/BaseSwapLabs/swap-engine/router"
)

// Snapshot carries everything the submit checks depend on. The engine
// rebuilds it whenever any dependent value changes, so the blocking reason
// is always current.
//
// Fields:
// - Wallet: the wallet session snapshot.
// - TargetChainID: the chain submissions must run on.
// - Token: the selected token descriptor, nil when none is loaded.
// - Direction: the swap direction.
// - Pair: the current amount pair.
// - GasCost: the estimated gas cost in native units.
// - NativeBalance: the native balance in smallest units, nil when unknown.
// - TokenBalance: the token balance in smallest units, nil when unknown.
// - NativeDecimals: decimal precision of the native asset.
type Snapshot struct {
	Wallet         types.WalletState
	TargetChainID  uint64
	Token          *types.TokenDescriptor
	Direction      types.Direction
	Pair           types.AmountPair
	GasCost        decimal.Decimal
	NativeBalance  *big.Int
	TokenBalance   *big.Int
	NativeDecimals uint8
}

// Check runs the submit preconditions in their fixed order and returns the
// first failing one. The order is part of the contract: a wrong network is
// reported before an insufficient balance.
//
// Parameters:
// - s: the current precondition snapshot.
//
// Returns:
// - error: nil when submission is allowed, otherwise the sentinel for the
//   first failing check.
func Check(s Snapshot) error {
	if !s.Wallet.IsConnected() {
		return swaperrors.ErrNotConnected
	}

	if !s.Wallet.IsCorrectNetwork(s.TargetChainID) {
		return swaperrors.ErrWrongNetwork
	}

	if s.Token == nil {
		return swaperrors.ErrNoToken
	}

	input, ok := quote.ParseAmount(s.Pair.InputAmount(s.Direction))
	if !ok || !input.IsPositive() {
		return swaperrors.ErrInvalidAmount
	}

	if err := checkNativeBalance(s, input); err != nil {
		return err
	}

	if s.Direction == types.TokenToNative {
		required, err := router.SmallestUnit(input.String(), s.Token.Decimals)
		if err != nil {
			return swaperrors.ErrInvalidAmount
		}
		if s.TokenBalance == nil || s.TokenBalance.Cmp(required) < 0 {
			return swaperrors.ErrInsufficientToken
		}
	}

	return nil
}

// checkNativeBalance verifies the native balance covers gas, plus the input
// amount when the native asset is being spent.
func checkNativeBalance(s Snapshot, input decimal.Decimal) error {
	required, err := router.SmallestUnit(s.GasCost.String(), s.NativeDecimals)
	if err != nil {
		required = big.NewInt(0)
	}

	if s.Direction == types.NativeToToken {
		amount, err := router.SmallestUnit(input.String(), s.NativeDecimals)
		if err != nil {
			return swaperrors.ErrInvalidAmount
		}
		required = new(big.Int).Add(required, amount)
	}

	if s.NativeBalance == nil || s.NativeBalance.Cmp(required) < 0 {
		return swaperrors.ErrInsufficientNative
	}

	return nil
}
