package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// GasPrice returns the suggested gas price in wei.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - *big.Int: the suggested gas price.
// - error: an error if the client is not initialized or the request fails.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	client := c.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	return client.SuggestGasPrice(ctx)
}

// SimulateCall runs the call against the pending state and returns its gas
// unit count. A reverting call returns an error, which callers treat as a
// signal rather than a hard failure.
//
// Parameters:
// - ctx: the context for managing the request.
// - from: the caller address.
// - to: the contract address.
// - value: the native value attached to the call.
// - data: the call data.
//
// Returns:
// - uint64: the estimated gas units.
// - error: an error if the client is not initialized or the simulation fails.
func (c *Client) SimulateCall(ctx context.Context, from common.Address, to common.Address, value *big.Int, data []byte) (uint64, error) {
	client := c.getClient()
	if client == nil {
		return 0, errors.New("client not initialized")
	}

	msg := ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	}

	return client.EstimateGas(ctx, msg)
}

// ReadContract executes a read-only contract call.
//
// Parameters:
// - ctx: the context for managing the request.
// - addr: the contract address.
// - data: the packed call data.
//
// Returns:
// - []byte: the raw return data.
// - error: an error if the client is not initialized or the call fails.
func (c *Client) ReadContract(ctx context.Context, addr common.Address, data []byte) ([]byte, error) {
	client := c.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call contract")
	}

	return result, nil
}
