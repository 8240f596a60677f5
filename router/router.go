package router

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// Router builds calldata for the fixed on-chain router contract. The router
// and wrapped-native addresses come from the engine configuration, never
// from literals inside the call-building logic.
type Router struct {
	address        common.Address
	wrappedNative  common.Address
	deadlineWindow time.Duration
	routerAbi      abi.ABI
	erc20Abi       abi.ABI
}

// New creates a router calldata builder from the engine configuration.
//
// Parameters:
// - cfg: the engine configuration carrying the router and wrapped-native addresses.
//
// Returns:
// - *Router: the calldata builder.
// - error: an error if the embedded ABI definitions fail to parse.
func New(cfg *types.EngineConfig) (*Router, error) {
	routerAbi, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse router ABI")
	}

	erc20Abi, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	window := cfg.DeadlineWindow
	if window <= 0 {
		window = types.DefaultDeadlineWindow
	}

	return &Router{
		address:        cfg.RouterAddress,
		wrappedNative:  cfg.WrappedNativeAddress,
		deadlineWindow: window,
		routerAbi:      routerAbi,
		erc20Abi:       erc20Abi,
	}, nil
}

// Address returns the fixed router contract address.
func (r *Router) Address() common.Address {
	return r.address
}

// Path returns the two-hop swap path through the wrapped-native intermediate.
//
// Parameters:
// - direction: the swap direction.
// - token: the token side of the pair.
//
// Returns:
// - []common.Address: exactly [wrappedNative, token] or [token, wrappedNative].
func (r *Router) Path(direction types.Direction, token common.Address) []common.Address {
	if direction == types.NativeToToken {
		return []common.Address{r.wrappedNative, token}
	}
	return []common.Address{token, r.wrappedNative}
}

// Deadline computes the swap deadline as a unix timestamp. It must be called
// at submission time; a deadline computed earlier and reused is exactly the
// stale-transaction hazard the router's deadline check exists to reject.
//
// Parameters:
// - now: the current time.
//
// Returns:
// - *big.Int: unix timestamp of now plus the configured window.
func (r *Router) Deadline(now time.Time) *big.Int {
	return big.NewInt(now.Add(r.deadlineWindow).Unix())
}

// ApproveCalldata packs an ERC-20 approve call for the router as spender.
// The approval is for exactly the required amount, never unlimited.
//
// Parameters:
// - amount: the exact allowance to grant in the token's smallest unit.
//
// Returns:
// - []byte: the packed call data, to be sent to the token contract.
// - error: an error if packing fails.
func (r *Router) ApproveCalldata(amount *big.Int) ([]byte, error) {
	data, err := r.erc20Abi.Pack("approve", r.address, amount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack approve data")
	}
	return data, nil
}

// AllowanceCalldata packs an ERC-20 allowance read for (owner, router).
//
// Parameters:
// - owner: the token owner address.
//
// Returns:
// - []byte: the packed call data, to be sent to the token contract.
// - error: an error if packing fails.
func (r *Router) AllowanceCalldata(owner common.Address) ([]byte, error) {
	data, err := r.erc20Abi.Pack("allowance", owner, r.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack allowance data")
	}
	return data, nil
}

// ParseAllowance decodes the raw return data of an allowance read.
//
// Parameters:
// - result: the raw contract return data.
//
// Returns:
// - *big.Int: the decoded allowance.
// - error: an error if the result is empty.
func (r *Router) ParseAllowance(result []byte) (*big.Int, error) {
	if len(result) == 0 {
		return nil, errors.New("empty result from allowance call")
	}
	return new(big.Int).SetBytes(result), nil
}

// SwapNativeForTokensCalldata packs the native-to-token swap call. The
// native input amount travels as the transaction value, not as calldata.
//
// Parameters:
// - amountOutMin: the minimum acceptable token output in smallest units.
// - token: the output token address.
// - recipient: the address receiving the output.
// - deadline: the unix deadline for the swap.
//
// Returns:
// - []byte: the packed call data, to be sent to the router with value attached.
// - error: an error if packing fails.
func (r *Router) SwapNativeForTokensCalldata(amountOutMin *big.Int, token common.Address, recipient common.Address, deadline *big.Int) ([]byte, error) {
	path := r.Path(types.NativeToToken, token)
	data, err := r.routerAbi.Pack("swapExactNativeForTokens", amountOutMin, path, recipient, deadline)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack swap data")
	}
	return data, nil
}

// SwapTokensForNativeCalldata packs the token-to-native swap call.
//
// Parameters:
// - amountIn: the token input amount in smallest units.
// - amountOutMin: the minimum acceptable native output in smallest units.
// - token: the input token address.
// - recipient: the address receiving the output.
// - deadline: the unix deadline for the swap.
//
// Returns:
// - []byte: the packed call data, to be sent to the router.
// - error: an error if packing fails.
func (r *Router) SwapTokensForNativeCalldata(amountIn, amountOutMin *big.Int, token common.Address, recipient common.Address, deadline *big.Int) ([]byte, error) {
	path := r.Path(types.TokenToNative, token)
	data, err := r.routerAbi.Pack("swapExactTokensForNative", amountIn, amountOutMin, path, recipient, deadline)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack swap data")
	}
	return data, nil
}
