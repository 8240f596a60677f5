package oracle

import (
	"context"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// defaultTokenDecimals is assumed when the metadata payload omits decimals.
// Most L2 tokens use the full 18-decimal precision.
const defaultTokenDecimals = 18

// LookupToken fetches token metadata and price from the given endpoint and
// returns a descriptor for the engine. The descriptor is immutable; a new
// lookup replaces it wholesale.
//
// Parameters:
// - ctx: the context for managing the request.
// - url: the metadata endpoint for the token.
//
// Returns:
// - *types.TokenDescriptor: the fetched descriptor.
// - error: an error if the request fails or the payload lacks a token address.
func (o *Oracle) LookupToken(ctx context.Context, url string) (*types.TokenDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build token lookup request")
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "token lookup request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("token lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token lookup response")
	}

	return parseTokenDescriptor(body)
}

// parseTokenDescriptor extracts a token descriptor from a metadata payload.
// Single-object and pair-wrapped envelopes are both accepted.
func parseTokenDescriptor(body []byte) (*types.TokenDescriptor, error) {
	root := gjson.ParseBytes(body)
	if pair := root.Get("pair"); pair.Exists() {
		root = pair
	} else if first := root.Get("pairs.0"); first.Exists() {
		root = first
	}

	addrField := root.Get("baseToken.address")
	if !addrField.Exists() {
		addrField = root.Get("address")
	}
	if !addrField.Exists() || !common.IsHexAddress(addrField.String()) {
		return nil, errors.New("no token address in lookup response")
	}

	descriptor := &types.TokenDescriptor{
		Address:  common.HexToAddress(addrField.String()),
		Symbol:   firstString(root, "baseToken.symbol", "symbol"),
		Name:     firstString(root, "baseToken.name", "name"),
		Decimals: defaultTokenDecimals,
	}

	if dec := root.Get("decimals"); dec.Exists() {
		descriptor.Decimals = uint8(dec.Int())
	}

	if price := root.Get("priceUsd"); price.Exists() {
		parsed, err := decimal.NewFromString(price.String())
		// An absent or malformed price leaves the descriptor priceless, which
		// the quote engine treats as "unknown" rather than an error.
		if err == nil && parsed.IsPositive() {
			descriptor.PriceUSD = parsed
		}
	}

	return descriptor, nil
}

func firstString(root gjson.Result, paths ...string) string {
	for _, path := range paths {
		if field := root.Get(path); field.Exists() {
			return field.String()
		}
	}
	return ""
}
