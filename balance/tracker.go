package balance

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// Tracker keeps the connected account's native and token balances current.
// Balances revalidate on new block arrival and whenever the tracked token
// changes; a manual Refresh covers the post-transaction case. Read failures
// keep the previous value; they never propagate past the tracker.
type Tracker struct {
	config *types.EngineConfig
	reader types.ChainReader
	logger *logrus.Logger

	mu           sync.RWMutex
	owner        *common.Address
	token        *common.Address
	nativeBal    *big.Int
	tokenBal     *big.Int
	onChange     func()
	unsubscribe  func()
	isWatching   bool
	watchStopped chan struct{}
}

// New creates a balance tracker.
//
// Parameters:
// - config: the engine configuration.
// - reader: the chain read client.
// - logger: the logger for logging events.
//
// Returns:
// - *Tracker: the tracker instance. Call Start to follow new blocks.
func New(config *types.EngineConfig, reader types.ChainReader, logger *logrus.Logger) *Tracker {
	return &Tracker{
		config: config,
		reader: reader,
		logger: logger,
	}
}

// OnChange registers a callback invoked after any balance update.
func (t *Tracker) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// SetOwner sets the account whose balances are tracked. A nil owner clears
// both balances.
func (t *Tracker) SetOwner(ctx context.Context, owner *common.Address) {
	t.mu.Lock()
	t.owner = owner
	if owner == nil {
		t.nativeBal = nil
		t.tokenBal = nil
	}
	t.mu.Unlock()

	if owner != nil {
		t.Refresh(ctx)
	} else {
		t.notify()
	}
}

// SetToken sets the tracked token contract. The stale token balance is
// cleared immediately so a read for the previous token can never show up
// under the new one.
func (t *Tracker) SetToken(ctx context.Context, token *common.Address) {
	t.mu.Lock()
	t.token = token
	t.tokenBal = nil
	t.mu.Unlock()

	t.Refresh(ctx)
}

// NativeBalance returns the last known native balance, nil when unknown.
func (t *Tracker) NativeBalance() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.nativeBal == nil {
		return nil
	}
	return new(big.Int).Set(t.nativeBal)
}

// TokenBalance returns the last known token balance, nil when unknown.
func (t *Tracker) TokenBalance() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tokenBal == nil {
		return nil
	}
	return new(big.Int).Set(t.tokenBal)
}

// Refresh reads both balances now. The native and token reads run
// concurrently; each writes its own field, so they never conflict. The token
// read is skipped entirely while no valid token address is set.
//
// Parameters:
// - ctx: the context for managing the reads.
func (t *Tracker) Refresh(ctx context.Context) {
	t.mu.RLock()
	owner := t.owner
	token := t.token
	t.mu.RUnlock()

	if owner == nil {
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		balance, err := t.reader.NativeBalance(ctx, *owner)
		if err != nil {
			t.logger.WithField("address", owner.Hex()).WithError(err).Warn("Failed to read native balance")
			return
		}
		t.mu.Lock()
		t.nativeBal = balance
		t.mu.Unlock()
	}()

	if token != nil && *token != (common.Address{}) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			balance, err := t.reader.TokenBalance(ctx, *owner, *token)
			if err != nil {
				t.logger.WithField("token", token.Hex()).WithError(err).Warn("Failed to read token balance")
				return
			}
			t.mu.Lock()
			t.tokenBal = balance
			t.mu.Unlock()
		}()
	}

	wg.Wait()
	t.notify()
}

// Start begins revalidating balances on new block arrival.
//
// Parameters:
// - ctx: the context bounding the watch lifetime.
//
// Returns:
// - error: an error if the tracker is already watching or the head
//   subscription cannot be established.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isWatching {
		t.mu.Unlock()
		return errors.New("balance tracker is already watching")
	}

	heads, unsubscribe, err := t.reader.SubscribeNewHeads(ctx)
	if err != nil {
		t.mu.Unlock()
		return errors.Wrap(err, "failed to subscribe to new heads")
	}

	t.isWatching = true
	t.unsubscribe = unsubscribe
	t.watchStopped = make(chan struct{})
	stopped := t.watchStopped
	t.mu.Unlock()

	go t.watch(ctx, heads, stopped)
	return nil
}

// Stop ends new-block revalidation. Safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isWatching {
		return
	}

	t.unsubscribe()
	close(t.watchStopped)
	t.isWatching = false
}

// watch refreshes balances for every new head until stopped.
func (t *Tracker) watch(ctx context.Context, heads <-chan uint64, stopped chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-stopped:
			return

		case _, ok := <-heads:
			if !ok {
				return
			}
			t.Refresh(ctx)
		}
	}
}

// notify invokes the change callback outside the tracker lock.
func (t *Tracker) notify() {
	t.mu.RLock()
	fn := t.onChange
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}
