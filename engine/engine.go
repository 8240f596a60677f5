package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	swaperrors "github.com/BaseSwapLabs/swap-engine/common/errors"
	"github.com/BaseSwapLabs/swap-engine/balance"
	"github.com/BaseSwapLabs/swap-engine/common/types"
	"github.com/BaseSwapLabs/swap-engine/gas"
	"github.com/BaseSwapLabs/swap-engine/guard"
	"github.com/BaseSwapLabs/swap-engine/oracle"
	"github.com/BaseSwapLabs/swap-engine/orchestrator"
	"github.com/BaseSwapLabs/swap-engine/quote"
	"github.com/BaseSwapLabs/swap-engine/router"
)

// quoteRefreshInterval is how often derived amounts are recomputed from
// fresh prices while the engine is running.
const quoteRefreshInterval = 20 * time.Second

// Engine is the facade tying the quoting, gas, balance and submission
// components together behind one mutex-guarded page state: the selected
// token, the swap direction, the amount pair and the slippage setting.
// Mutations recompute the derived amount side and reschedule the gas
// estimate; observers are notified after every change.
type Engine struct {
	config      *types.EngineConfig
	logger      *logrus.Logger
	wallet      types.Wallet
	reader      types.ChainReader
	priceSource types.PriceSource
	ownedOracle *oracle.Oracle
	route       *router.Router
	tracker     *balance.Tracker
	estimator   *gas.Estimator
	orch        *orchestrator.Orchestrator

	mu          sync.RWMutex
	token       *types.TokenDescriptor
	direction   types.Direction
	pair        types.AmountPair
	slippageBps int
	started     bool
	stopChan    chan struct{}

	observerMutex sync.RWMutex
	onUpdate      func()
}

// OnUpdate registers a callback invoked after any observable state change:
// quote recomputation, balance update, gas estimate or submission progress.
func (e *Engine) OnUpdate(fn func()) {
	e.observerMutex.Lock()
	e.onUpdate = fn
	e.observerMutex.Unlock()
}

// Start begins the engine's background work: the price refresh loop, the
// balance watch and the periodic quote recomputation.
//
// Parameters:
// - ctx: the context bounding the background work.
//
// Returns:
// - error: an error if the engine is already started or a component fails
//   to start.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("engine is already started")
	}
	e.started = true
	e.stopChan = make(chan struct{})
	stopped := e.stopChan
	e.mu.Unlock()

	if e.ownedOracle != nil {
		if err := e.ownedOracle.Start(ctx); err != nil {
			e.abortStart()
			return errors.Wrap(err, "failed to start price oracle")
		}
	}

	if err := e.tracker.Start(ctx); err != nil {
		e.abortStart()
		return errors.Wrap(err, "failed to start balance tracker")
	}

	go e.refreshLoop(ctx, stopped)
	return nil
}

// abortStart rolls back a failed Start so it can be retried.
func (e *Engine) abortStart() {
	e.mu.Lock()
	if e.started {
		close(e.stopChan)
		e.started = false
	}
	e.mu.Unlock()
}

// Close stops all background work and tears down the components. Results
// from in-flight work are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.started {
		close(e.stopChan)
		e.started = false
	}
	e.mu.Unlock()

	e.estimator.Stop()
	e.tracker.Stop()
	e.orch.Close()
	if e.ownedOracle != nil {
		e.ownedOracle.Stop()
	}
}

// ConnectWallet establishes the wallet session and points the balance
// tracker at the connected account.
//
// Parameters:
// - ctx: the context for managing the connection.
//
// Returns:
// - error: an error if the wallet connection fails.
func (e *Engine) ConnectWallet(ctx context.Context) error {
	if err := e.wallet.Connect(ctx); err != nil {
		return errors.Wrap(err, "failed to connect wallet")
	}

	e.tracker.SetOwner(ctx, e.wallet.State().Address)
	e.scheduleEstimate()
	e.notify()
	return nil
}

// SwitchNetwork asks the wallet session to move to the target chain.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the switch fails or is refused.
func (e *Engine) SwitchNetwork(ctx context.Context) error {
	if err := e.wallet.SwitchChain(ctx, e.config.ChainID); err != nil {
		return errors.Wrap(err, "failed to switch network")
	}

	e.scheduleEstimate()
	e.notify()
	return nil
}

// SelectToken replaces the selected token. Derived amounts and the token
// balance are recomputed for the new token; a terminal submission state is
// acknowledged so the page reopens for the next trade.
//
// Parameters:
// - ctx: the context for managing the balance refresh.
// - token: the new token descriptor, nil to clear the selection.
func (e *Engine) SelectToken(ctx context.Context, token *types.TokenDescriptor) {
	e.orch.Acknowledge()

	e.mu.Lock()
	e.token = token
	e.pair = quote.Recompute(e.pair, e.nativePriceLocked(ctx), tokenPrice(token))
	e.mu.Unlock()

	if token != nil {
		addr := token.Address
		e.tracker.SetToken(ctx, &addr)
	} else {
		e.tracker.SetToken(ctx, nil)
	}

	e.scheduleEstimate()
	e.notify()
}

// EditAmount records a user edit on one amount field and derives the other
// side from current prices.
//
// Parameters:
// - ctx: the context for the price read.
// - side: the edited field.
// - value: the new amount string.
func (e *Engine) EditAmount(ctx context.Context, side types.Side, value string) {
	e.orch.Acknowledge()

	e.mu.Lock()
	e.pair = quote.Edit(e.pair, side, value, e.nativePriceLocked(ctx), tokenPrice(e.token))
	e.mu.Unlock()

	e.scheduleEstimate()
	e.notify()
}

// ToggleDirection flips the swap direction. The last-edited amount is kept
// and the other side re-derives, so the user's number survives the flip.
//
// Parameters:
// - ctx: the context for the price read.
func (e *Engine) ToggleDirection(ctx context.Context) {
	e.orch.Acknowledge()

	e.mu.Lock()
	e.direction = e.direction.Opposite()
	e.pair = quote.Recompute(e.pair, e.nativePriceLocked(ctx), tokenPrice(e.token))
	e.mu.Unlock()

	e.scheduleEstimate()
	e.notify()
}

// SetSlippage updates the slippage tolerance.
//
// Parameters:
// - bps: the new tolerance in basis points.
//
// Returns:
// - error: ErrInvalidAmount if the value is outside the accepted range.
func (e *Engine) SetSlippage(bps int) error {
	if !(types.QuoteParams{SlippageBps: bps}).Valid() {
		return swaperrors.ErrInvalidAmount
	}

	e.mu.Lock()
	e.slippageBps = bps
	e.mu.Unlock()

	e.scheduleEstimate()
	e.notify()
	return nil
}

// Token returns the selected token descriptor, nil when none is selected.
func (e *Engine) Token() *types.TokenDescriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.token
}

// Direction returns the current swap direction.
func (e *Engine) Direction() types.Direction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.direction
}

// Pair returns the current amount pair.
func (e *Engine) Pair() types.AmountPair {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pair
}

// Slippage returns the slippage tolerance in basis points.
func (e *Engine) Slippage() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slippageBps
}

// GasEstimate returns the current gas estimate.
func (e *Engine) GasEstimate() types.GasEstimate {
	return e.estimator.Estimate()
}

// MinReceived returns the slippage-bounded minimum output for the current
// quote, false when no usable quote exists.
func (e *Engine) MinReceived() (decimal.Decimal, bool) {
	e.mu.RLock()
	output := e.pair.OutputAmount(e.direction)
	bps := e.slippageBps
	e.mu.RUnlock()

	return quote.MinReceived(output, bps)
}

// SubmissionState returns the current submission machine state.
func (e *Engine) SubmissionState() orchestrator.State {
	return e.orch.State()
}

// SubmissionError returns the failure that ended the last submission, nil
// when it succeeded or none ran.
func (e *Engine) SubmissionError() error {
	return e.orch.FailureReason()
}

// CanSubmit reports whether a submission would currently be accepted,
// returning the first failing precondition otherwise.
//
// Returns:
// - error: nil when submission is possible, otherwise the blocking sentinel.
func (e *Engine) CanSubmit() error {
	return guard.Check(e.snapshot())
}

// Submit runs the approve-then-swap sequence for the current page state. On
// success the amount fields are cleared and balances refresh, so the page
// never shows a quote for a trade that already happened.
//
// Parameters:
// - ctx: the context for managing the submission.
//
// Returns:
// - *orchestrator.Result: the submitted transaction hashes on success.
// - error: the refusal or failure that stopped the submission.
func (e *Engine) Submit(ctx context.Context) (*orchestrator.Result, error) {
	e.mu.RLock()
	req := orchestrator.Request{
		Direction:   e.direction,
		Token:       e.token,
		Pair:        e.pair,
		SlippageBps: e.slippageBps,
	}
	e.mu.RUnlock()

	result, err := e.orch.Submit(ctx, req, e.snapshot())
	if err != nil {
		e.notify()
		return nil, err
	}

	e.mu.Lock()
	e.pair.NativeAmount = ""
	e.pair.TokenAmount = ""
	e.mu.Unlock()

	e.tracker.Refresh(ctx)
	e.scheduleEstimate()
	e.notify()
	return result, nil
}

// snapshot assembles the precondition snapshot from current component state.
func (e *Engine) snapshot() guard.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return guard.Snapshot{
		Wallet:         e.wallet.State(),
		TargetChainID:  e.config.ChainID,
		Token:          e.token,
		Direction:      e.direction,
		Pair:           e.pair,
		GasCost:        e.estimator.Estimate().NativeCost,
		NativeBalance:  e.tracker.NativeBalance(),
		TokenBalance:   e.tracker.TokenBalance(),
		NativeDecimals: e.config.NativeDecimals,
	}
}

// scheduleEstimate pushes the current inputs to the gas estimator.
func (e *Engine) scheduleEstimate() {
	e.mu.RLock()
	inputs := gas.Inputs{
		Pair:        e.pair,
		Direction:   e.direction,
		SlippageBps: e.slippageBps,
		Token:       e.token,
		Wallet:      e.wallet.State(),
	}
	e.mu.RUnlock()

	e.estimator.Update(inputs)
}

// refreshLoop re-derives quotes from fresh prices on a fixed cadence.
func (e *Engine) refreshLoop(ctx context.Context, stopped chan struct{}) {
	ticker := time.NewTicker(quoteRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-stopped:
			return

		case <-ticker.C:
			e.mu.Lock()
			e.pair = quote.Recompute(e.pair, e.nativePriceLocked(ctx), tokenPrice(e.token))
			e.mu.Unlock()

			e.scheduleEstimate()
			e.notify()
		}
	}
}

// nativePriceLocked reads the native USD price, falling back to the
// configured price when the source fails. Callers hold the engine mutex,
// which is safe because PriceSource reads are cache lookups, never
// network calls.
func (e *Engine) nativePriceLocked(ctx context.Context) decimal.Decimal {
	price, err := e.priceSource.NativePriceUSD(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to read native price, using fallback")
		return e.config.FallbackNativePriceUSD
	}
	return price
}

// tokenPrice returns the token USD price, zero when unknown.
func tokenPrice(token *types.TokenDescriptor) decimal.Decimal {
	if token == nil {
		return decimal.Zero
	}
	return token.PriceUSD
}

// handleBalanceChange propagates balance updates to the observer.
func (e *Engine) handleBalanceChange() {
	e.notify()
}

// handleGasUpdate propagates gas estimate updates to the observer.
func (e *Engine) handleGasUpdate(types.GasEstimate) {
	e.notify()
}

// handleTransition propagates submission progress to the observer.
func (e *Engine) handleTransition(orchestrator.State) {
	e.notify()
}

// notify invokes the observer callback outside all engine locks.
func (e *Engine) notify() {
	e.observerMutex.RLock()
	fn := e.onUpdate
	e.observerMutex.RUnlock()

	if fn != nil {
		fn()
	}
}
