package evm

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/BaseSwapLabs/swap-engine/common/types"
	"github.com/BaseSwapLabs/swap-engine/connectionmonitor"
	"github.com/BaseSwapLabs/swap-engine/router"
)

// Client is the EVM implementation of the read-only chain collaborator. The
// underlying RPC client is guarded by its own mutex because the connection
// monitor may replace it while reads are in flight.
type Client struct {
	config *types.EngineConfig
	logger *logrus.Logger

	clientMutex sync.RWMutex
	client      *ethclient.Client

	erc20Abi abi.ABI

	monitorMutex sync.RWMutex
	monitor      connectionmonitor.ConnectionMonitor
}

// New creates an EVM chain client connected to the configured RPC endpoint
// and starts its connection monitor.
//
// Parameters:
// - ctx: the context for managing the connection lifetime.
// - config: the engine configuration.
// - logger: the logger for logging events.
//
// Returns:
// - *Client: the connected chain client.
// - error: an error if dialing or monitor startup fails.
func New(ctx context.Context, config *types.EngineConfig, logger *logrus.Logger) (*Client, error) {
	client, err := ethclient.Dial(config.RpcUrl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	erc20Abi, err := abi.JSON(strings.NewReader(router.ERC20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	c := &Client{
		config:   config,
		logger:   logger,
		client:   client,
		erc20Abi: erc20Abi,
	}

	if err := c.initMonitor(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to init connection monitor")
	}

	return c, nil
}

// Close stops the connection monitor and closes the RPC client. The client
// must not be used afterwards.
func (c *Client) Close() {
	c.monitorMutex.Lock()
	if c.monitor != nil {
		c.monitor.Stop()
	}
	c.monitorMutex.Unlock()

	c.clientMutex.Lock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	c.clientMutex.Unlock()
}

// getClient returns the current RPC client under the read lock.
func (c *Client) getClient() *ethclient.Client {
	c.clientMutex.RLock()
	defer c.clientMutex.RUnlock()
	return c.client
}
