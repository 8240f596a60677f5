package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenDescriptor describes an ERC-20 token as returned by a metadata lookup.
// A descriptor is immutable once fetched and is replaced wholesale when a new
// token is looked up.
//
// Fields:
// - Address: the checksummed token contract address.
// - Symbol: the token symbol.
// - Name: the token name.
// - Decimals: the token's integer decimal precision.
// - PriceUSD: the token USD price; a zero value means the price is unknown.
type TokenDescriptor struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
	PriceUSD decimal.Decimal
}

// HasPrice reports whether the descriptor carries a usable USD price.
func (t *TokenDescriptor) HasPrice() bool {
	return t != nil && t.PriceUSD.IsPositive()
}

// Direction determines which asset is spent and which route function is used
// on-chain.
type Direction int

const (
	// NativeToToken spends the native asset and buys the token.
	NativeToToken Direction = iota
	// TokenToNative spends the token and receives the native asset.
	TokenToNative
)

// Opposite returns the reversed direction.
func (d Direction) Opposite() Direction {
	if d == NativeToToken {
		return TokenToNative
	}
	return NativeToToken
}

// String converts Direction to its string representation.
func (d Direction) String() string {
	switch d {
	case NativeToToken:
		return "NATIVE_TO_TOKEN"
	case TokenToNative:
		return "TOKEN_TO_NATIVE"
	default:
		return "UNKNOWN"
	}
}

// Side identifies which amount field of an AmountPair the user edited last.
type Side int

const (
	// NativeSide is the native-asset amount field.
	NativeSide Side = iota
	// TokenSide is the token amount field.
	TokenSide
)

// String converts Side to its string representation.
func (s Side) String() string {
	if s == NativeSide {
		return "NATIVE"
	}
	return "TOKEN"
}

// AmountPair holds the two user-facing amount fields as decimal strings.
// The side not marked as LastEdited is always derived from the edited side
// via current prices and must never be treated as authoritative.
type AmountPair struct {
	NativeAmount string
	TokenAmount  string
	LastEdited   Side
}

// EditedAmount returns the amount string of the side the user edited last.
func (p AmountPair) EditedAmount() string {
	if p.LastEdited == NativeSide {
		return p.NativeAmount
	}
	return p.TokenAmount
}

// InputAmount returns the amount that will be spent for the given direction.
func (p AmountPair) InputAmount(direction Direction) string {
	if direction == NativeToToken {
		return p.NativeAmount
	}
	return p.TokenAmount
}

// OutputAmount returns the amount expected to be received for the given direction.
func (p AmountPair) OutputAmount(direction Direction) string {
	if direction == NativeToToken {
		return p.TokenAmount
	}
	return p.NativeAmount
}

// QuoteParams holds user-tunable quote parameters. MinReceived and the swap
// deadline are always derived at use time and never stored here.
//
// Fields:
// - SlippageBps: tolerated slippage in basis points, valid range [0, 5000].
type QuoteParams struct {
	SlippageBps int
}

const (
	// DefaultSlippageBps is the default slippage tolerance (0.5%).
	DefaultSlippageBps = 50
	// MaxSlippageBps is the maximum accepted slippage tolerance (50%).
	MaxSlippageBps = 5000
)

// Valid reports whether the slippage setting is within the accepted range.
func (q QuoteParams) Valid() bool {
	return q.SlippageBps >= 0 && q.SlippageBps <= MaxSlippageBps
}

// GasEstimate is the current swap gas cost in native-asset units.
//
// Fields:
// - NativeCost: the estimated cost; zero means unknown or not applicable.
// - Stale: true while a recomputation is in flight.
type GasEstimate struct {
	NativeCost decimal.Decimal
	Stale      bool
}
