package evm

import (
	"context"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// pollInterval is the new-head polling cadence for HTTP-only endpoints.
const pollInterval = 4 * time.Second

// SubscribeNewHeads delivers new block numbers until the stop function is
// called or the context ends. WebSocket endpoints get a push subscription;
// HTTP endpoints fall back to polling the block number.
//
// Parameters:
// - ctx: the context bounding the subscription lifetime.
//
// Returns:
// - <-chan uint64: the channel of new block numbers.
// - func(): the stop function releasing the subscription.
// - error: an error if the client is not initialized or the subscription fails.
func (c *Client) SubscribeNewHeads(ctx context.Context) (<-chan uint64, func(), error) {
	client := c.getClient()
	if client == nil {
		return nil, nil, errors.New("client not initialized")
	}

	if types.GetSubscriptionMode(c.config.RpcUrl) == types.WebSocketMode {
		return c.subscribeHeadsWS(ctx)
	}
	return c.subscribeHeadsHTTP(ctx)
}

// subscribeHeadsWS forwards block numbers from a new-head push subscription.
func (c *Client) subscribeHeadsWS(ctx context.Context) (<-chan uint64, func(), error) {
	client := c.getClient()

	headerChan := make(chan *ethtypes.Header)
	sub, err := client.SubscribeNewHead(ctx, headerChan)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to subscribe to new heads")
	}

	heads := make(chan uint64)
	stopChan := make(chan struct{})

	go func() {
		defer close(heads)
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return

			case <-stopChan:
				return

			case err := <-sub.Err():
				c.logger.WithField("chain", c.config.ChainName).WithError(err).Error("Head subscription error")
				return

			case header := <-headerChan:
				if header == nil {
					continue
				}
				select {
				case heads <- header.Number.Uint64():
				case <-stopChan:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	stop := func() {
		select {
		case <-stopChan:
		default:
			close(stopChan)
		}
	}
	return heads, stop, nil
}

// subscribeHeadsHTTP emits a block number whenever polling observes a new one.
func (c *Client) subscribeHeadsHTTP(ctx context.Context) (<-chan uint64, func(), error) {
	heads := make(chan uint64)
	stopChan := make(chan struct{})

	go func() {
		defer close(heads)

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var lastBlock uint64

		for {
			select {
			case <-ctx.Done():
				return

			case <-stopChan:
				return

			case <-ticker.C:
				client := c.getClient()
				if client == nil {
					continue
				}

				blockNumber, err := client.BlockNumber(ctx)
				if err != nil {
					c.logger.WithField("chain", c.config.ChainName).WithError(err).Warn("Failed to poll block number")
					continue
				}

				if blockNumber <= lastBlock {
					continue
				}
				lastBlock = blockNumber

				select {
				case heads <- blockNumber:
				case <-stopChan:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	stop := func() {
		select {
		case <-stopChan:
		default:
			close(stopChan)
		}
	}
	return heads, stop, nil
}
