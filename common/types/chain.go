package types

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EngineConfig holds the configuration for the swap engine on its single
// target chain. All addresses and timeouts are injected at construction so
// the core stays portable across target chains in tests.
//
// Fields:
// - ChainName: the human-readable name of the target chain.
// - ChainID: the target chain ID; submissions on any other chain are refused.
// - RpcUrl: the URL for the chain's RPC endpoint.
// - RouterAddress: the fixed swap router contract address.
// - WrappedNativeAddress: the wrapped-native token used as the routing intermediate.
// - NativeDecimals: decimal precision of the native asset.
// - NativeSymbol: display symbol of the native asset.
// - PriceFeedUrl: HTTP endpoint supplying the native-asset USD price.
// - FallbackNativePriceUSD: price used when the feed has never answered.
// - ReceiptTimeout: the maximum time to wait for a transaction receipt.
// - DeadlineWindow: how far in the future swap deadlines are set.
type EngineConfig struct {
	ChainName              string
	ChainID                uint64
	RpcUrl                 string
	RouterAddress          common.Address
	WrappedNativeAddress   common.Address
	NativeDecimals         uint8
	NativeSymbol           string
	PriceFeedUrl           string
	FallbackNativePriceUSD decimal.Decimal
	ReceiptTimeout         time.Duration
	DeadlineWindow         time.Duration
}

const (
	// DefaultReceiptTimeout bounds how long a submission waits for confirmation.
	DefaultReceiptTimeout = 60 * time.Second
	// DefaultDeadlineWindow is how far in the future swap deadlines are set.
	DefaultDeadlineWindow = 600 * time.Second
)

// Normalize fills unset timeout fields with their defaults.
func (c *EngineConfig) Normalize() {
	if c.ReceiptTimeout <= 0 {
		c.ReceiptTimeout = DefaultReceiptTimeout
	}
	if c.DeadlineWindow <= 0 {
		c.DeadlineWindow = DefaultDeadlineWindow
	}
}

// SubscriptionMode represents how new-block notifications are delivered.
type SubscriptionMode string

const (
	// WebSocketMode delivers new heads over a push subscription.
	WebSocketMode SubscriptionMode = "websocket"
	// HTTPPollingMode derives new heads by polling the block number.
	HTTPPollingMode SubscriptionMode = "http"
)

// GetSubscriptionMode determines the notification mode from the RPC URL
// scheme.
//
// Parameters:
// - rpcUrl: the chain RPC endpoint URL.
//
// Returns:
// - SubscriptionMode: WebSocketMode for ws/wss endpoints, HTTPPollingMode otherwise.
func GetSubscriptionMode(rpcUrl string) SubscriptionMode {
	if strings.HasPrefix(rpcUrl, "ws://") || strings.HasPrefix(rpcUrl, "wss://") {
		return WebSocketMode
	}
	return HTTPPollingMode
}

// ChainReader is the read-only chain client collaborator. All calls are
// non-mutating; transaction submission goes through the Wallet.
type ChainReader interface {
	// GasPrice returns the current gas price in wei.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	//
	// Returns:
	// - *big.Int: the suggested gas price.
	// - error: an error if the request fails.
	GasPrice(ctx context.Context) (*big.Int, error)

	// SimulateCall simulates a contract call and returns its gas unit count.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - from: the caller address.
	// - to: the contract address.
	// - value: the native-asset value attached to the call.
	// - data: the call data.
	//
	// Returns:
	// - uint64: the estimated gas units for the call.
	// - error: an error if the simulation fails or reverts.
	SimulateCall(ctx context.Context, from common.Address, to common.Address, value *big.Int, data []byte) (uint64, error)

	// ReadContract executes a read-only contract call.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - addr: the contract address.
	// - data: the packed call data.
	//
	// Returns:
	// - []byte: the raw return data.
	// - error: an error if the call fails.
	ReadContract(ctx context.Context, addr common.Address, data []byte) ([]byte, error)

	// NativeBalance returns the native-asset balance of an address.
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)

	// TokenBalance returns the ERC-20 balance of an owner for a token contract.
	TokenBalance(ctx context.Context, owner common.Address, token common.Address) (*big.Int, error)

	// SubscribeNewHeads delivers new block numbers until the returned stop
	// function is called or the context is canceled.
	//
	// Parameters:
	// - ctx: the context bounding the subscription lifetime.
	//
	// Returns:
	// - <-chan uint64: the channel of new block numbers.
	// - func(): the stop function releasing the subscription.
	// - error: an error if the subscription cannot be established.
	SubscribeNewHeads(ctx context.Context) (<-chan uint64, func(), error)
}

// PriceSource supplies the native-asset USD reference price.
type PriceSource interface {
	// NativePriceUSD returns the current native-asset USD price. The engine
	// calls it on its hot path, so implementations must serve a cached or
	// fallback value rather than fetch synchronously.
	NativePriceUSD(ctx context.Context) (decimal.Decimal, error)
}
