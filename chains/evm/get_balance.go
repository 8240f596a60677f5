package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// NativeBalance returns the native-asset balance of the given address.
//
// Parameters:
// - ctx: the context for managing the request.
// - addr: the address to check the balance for.
//
// Returns:
// - *big.Int: the balance in wei.
// - error: an error if the client is not initialized or the read fails.
func (c *Client) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	client := c.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	balance, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get native balance")
	}

	return balance, nil
}

// TokenBalance returns the ERC-20 balance of an owner for a token contract.
//
// Parameters:
// - ctx: the context for managing the request.
// - owner: the address to check the balance for.
// - token: the token contract address.
//
// Returns:
// - *big.Int: the balance in the token's smallest unit.
// - error: an error if the client is not initialized or the read fails.
func (c *Client) TokenBalance(ctx context.Context, owner common.Address, token common.Address) (*big.Int, error) {
	client := c.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	data, err := c.erc20Abi.Pack("balanceOf", owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf data")
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}

	if len(result) == 0 {
		return nil, errors.New("empty result from balanceOf call")
	}

	return new(big.Int).SetBytes(result), nil
}
