package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/BaseSwapLabs/swap-engine/connectionmonitor"
)

// evmConnectionManager adapts the chain client to the connection monitor.
type evmConnectionManager struct {
	chain *Client
}

// initMonitor starts the connection monitor for the chain client.
//
// Parameters:
// - ctx: the context for managing the monitor lifetime.
//
// Returns:
// - error: an error if the monitor fails to start.
func (c *Client) initMonitor(ctx context.Context) error {
	c.monitorMutex.Lock()
	defer c.monitorMutex.Unlock()

	connectionManager := &evmConnectionManager{chain: c}
	c.monitor = connectionmonitor.NewConnectionMonitor(connectionManager, c.logger, c.config.ChainName)
	return c.monitor.Start(ctx)
}

// CheckConnection checks the RPC connection by reading the current block
// number.
//
// Parameters:
// - ctx: the context for managing the connection check.
//
// Returns:
// - error: an error if the client is not initialized or the read fails.
func (m *evmConnectionManager) CheckConnection(ctx context.Context) error {
	client := m.chain.getClient()
	if client == nil {
		return errors.New("client not initialized")
	}

	_, err := client.BlockNumber(ctx)
	return err
}

// Reconnect dials a fresh RPC client and swaps it in under the write lock.
//
// Parameters:
// - ctx: the context for managing the reconnection.
//
// Returns:
// - error: an error if dialing fails.
func (m *evmConnectionManager) Reconnect(ctx context.Context) error {
	m.chain.clientMutex.Lock()
	defer m.chain.clientMutex.Unlock()

	if m.chain.client != nil {
		m.chain.client.Close()
	}

	client, err := ethclient.Dial(m.chain.config.RpcUrl)
	if err != nil {
		return err
	}

	m.chain.client = client
	return nil
}
