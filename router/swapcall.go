package router

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/BaseSwapLabs/swap-engine/common/types"
	"github.com/BaseSwapLabs/swap-engine/quote"
)

// SwapCall is a fully assembled swap submission. The gas estimator simulates
// it and the orchestrator submits it, so both always agree on the exact call.
//
// Fields:
// - To: the router contract address.
// - Value: the native value to attach (the input amount for native-to-token).
// - Data: the packed call data.
// - AmountIn: the input amount in the input asset's smallest units.
// - MinReceived: the slippage-bounded minimum output in the output asset's smallest units.
// - Deadline: the unix deadline packed into the call.
type SwapCall struct {
	To          common.Address
	Value       *big.Int
	Data        []byte
	AmountIn    *big.Int
	MinReceived *big.Int
	Deadline    *big.Int
}

// BuildSwapCall assembles the swap call for the current inputs. Amounts are
// converted from the authoritative decimal strings at each asset's true
// integer precision; the deadline is computed from now and must never be
// reused across submissions.
//
// Parameters:
// - direction: the swap direction.
// - token: the token side of the pair.
// - inputAmount: the spent amount as entered or derived, full precision.
// - outputAmount: the expected output amount, full precision.
// - slippageBps: the slippage tolerance in basis points.
// - recipient: the connected address receiving the output.
// - nativeDecimals: decimal precision of the native asset.
// - now: the submission time the deadline is derived from.
//
// Returns:
// - *SwapCall: the assembled call.
// - error: an error if an amount does not parse or packing fails.
func (r *Router) BuildSwapCall(
	direction types.Direction,
	token *types.TokenDescriptor,
	inputAmount string,
	outputAmount string,
	slippageBps int,
	recipient common.Address,
	nativeDecimals uint8,
	now time.Time,
) (*SwapCall, error) {
	if token == nil {
		return nil, errors.New("no token for swap call")
	}

	minReceived, ok := quote.MinReceived(outputAmount, slippageBps)
	if !ok {
		minReceived = decimal.Zero
	}

	deadline := r.Deadline(now)

	if direction == types.NativeToToken {
		amountIn, err := SmallestUnit(inputAmount, nativeDecimals)
		if err != nil {
			return nil, errors.Wrap(err, "invalid input amount")
		}
		minOut, err := SmallestUnit(minReceived.String(), token.Decimals)
		if err != nil {
			return nil, errors.Wrap(err, "invalid min received")
		}
		data, err := r.SwapNativeForTokensCalldata(minOut, token.Address, recipient, deadline)
		if err != nil {
			return nil, err
		}
		return &SwapCall{
			To:          r.address,
			Value:       amountIn,
			Data:        data,
			AmountIn:    amountIn,
			MinReceived: minOut,
			Deadline:    deadline,
		}, nil
	}

	amountIn, err := SmallestUnit(inputAmount, token.Decimals)
	if err != nil {
		return nil, errors.Wrap(err, "invalid input amount")
	}
	minOut, err := SmallestUnit(minReceived.String(), nativeDecimals)
	if err != nil {
		return nil, errors.Wrap(err, "invalid min received")
	}
	data, err := r.SwapTokensForNativeCalldata(amountIn, minOut, token.Address, recipient, deadline)
	if err != nil {
		return nil, err
	}
	return &SwapCall{
		To:          r.address,
		Value:       big.NewInt(0),
		Data:        data,
		AmountIn:    amountIn,
		MinReceived: minOut,
		Deadline:    deadline,
	}, nil
}
