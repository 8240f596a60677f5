package wallet

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	swaperrors "github.com/BaseSwapLabs/swap-engine/common/errors"
	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// receiptPollInterval is the receipt polling cadence for HTTP endpoints.
const receiptPollInterval = time.Second

// WaitForReceipt waits until the transaction is mined and reports whether it
// succeeded. WebSocket endpoints check on every new head; HTTP endpoints
// poll.
//
// Parameters:
// - ctx: the context for managing the wait.
// - hash: the transaction hash to wait for.
// - timeout: the maximum time to wait before giving up.
//
// Returns:
// - types.ReceiptStatus: the mined transaction's status.
// - error: ErrReceiptTimeout when the timeout elapses, or an error if the
//   wallet is not connected or a receipt read fails.
func (w *Wallet) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (types.ReceiptStatus, error) {
	client := w.getClient()
	if client == nil {
		return types.ReceiptFailed, errors.New("wallet not connected")
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var status types.ReceiptStatus
	var err error
	if types.GetSubscriptionMode(w.config.RpcUrl) == types.WebSocketMode {
		status, err = w.waitForReceiptWS(waitCtx, hash)
	} else {
		status, err = w.waitForReceiptHTTP(waitCtx, hash)
	}

	if err != nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return types.ReceiptFailed, swaperrors.ErrReceiptTimeout
	}
	return status, err
}

// waitForReceiptWS checks the receipt on every new block header.
func (w *Wallet) waitForReceiptWS(ctx context.Context, hash common.Hash) (types.ReceiptStatus, error) {
	client := w.getClient()

	headerChan := make(chan *ethtypes.Header)
	sub, err := client.SubscribeNewHead(ctx, headerChan)
	if err != nil {
		// A WS endpoint that refuses the subscription can still answer polls.
		return w.waitForReceiptHTTP(ctx, hash)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return types.ReceiptFailed, ctx.Err()

		case err := <-sub.Err():
			return types.ReceiptFailed, errors.Wrap(err, "head subscription error")

		case <-headerChan:
			status, found, err := w.checkReceipt(ctx, hash)
			if err != nil {
				return types.ReceiptFailed, err
			}
			if found {
				return status, nil
			}
		}
	}
}

// waitForReceiptHTTP polls for the receipt with backoff until the context
// deadline.
func (w *Wallet) waitForReceiptHTTP(ctx context.Context, hash common.Hash) (types.ReceiptStatus, error) {
	operation := func() (types.ReceiptStatus, error) {
		status, found, err := w.checkReceipt(ctx, hash)
		if err != nil {
			return types.ReceiptFailed, backoff.Permanent(err)
		}
		if !found {
			return types.ReceiptFailed, errors.New("transaction not yet mined")
		}
		return status, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = receiptPollInterval
	b.MaxInterval = 5 * receiptPollInterval

	status, err := backoff.Retry(ctx, operation, backoff.WithBackOff(b))
	if err != nil {
		if ctx.Err() != nil {
			return types.ReceiptFailed, ctx.Err()
		}
		return types.ReceiptFailed, err
	}
	return status, nil
}

// checkReceipt reads the receipt once. A not-yet-mined transaction reports
// found=false without an error.
func (w *Wallet) checkReceipt(ctx context.Context, hash common.Hash) (types.ReceiptStatus, bool, error) {
	client := w.getClient()
	if client == nil {
		return types.ReceiptFailed, false, errors.New("wallet not connected")
	}

	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return types.ReceiptFailed, false, nil
		}
		return types.ReceiptFailed, false, errors.Wrap(err, "failed to get transaction receipt")
	}

	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return types.ReceiptSucceeded, true, nil
	}
	return types.ReceiptFailed, true, nil
}
