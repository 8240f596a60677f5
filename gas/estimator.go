package gas

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/BaseSwapLabs/swap-engine/common/types"
	"github.com/BaseSwapLabs/swap-engine/quote"
	"github.com/BaseSwapLabs/swap-engine/router"
)

const (
	// debounceDelay is how long after the last input change an estimation run
	// is started.
	debounceDelay = 500 * time.Millisecond
	// estimateTimeout bounds a single estimation run.
	estimateTimeout = 15 * time.Second
	// fallbackSwapGasUnits is the conservative gas unit count used when the
	// token-to-native simulation fails. That direction needs a prior approval,
	// which makes an exact simulation against the current chain state fail for
	// accounts that have not approved yet.
	fallbackSwapGasUnits = 300000
)

// fallbackNativeCost covers every other estimation failure.
var fallbackNativeCost = decimal.RequireFromString("0.0005")

// Inputs is the snapshot of everything a gas estimate depends on. Each input
// change supersedes the previous estimation run.
type Inputs struct {
	Pair        types.AmountPair
	Direction   types.Direction
	SlippageBps int
	Token       *types.TokenDescriptor
	Wallet      types.WalletState
}

// Estimator recomputes the swap gas cost whenever its inputs change. Runs are
// debounced and carry a generation number; a superseded run never publishes
// its result, so the visible estimate always corresponds to the most recent
// inputs.
type Estimator struct {
	config *types.EngineConfig
	reader types.ChainReader
	route  *router.Router
	logger *logrus.Logger

	debounce time.Duration

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	estimate   types.GasEstimate
	onUpdate   func(types.GasEstimate)
	stopped    bool
}

// New creates a gas estimator.
//
// Parameters:
// - config: the engine configuration.
// - reader: the chain read client used for simulation and gas price.
// - route: the router calldata builder; the simulated call is the exact call
//   that would be submitted, not a generic estimate.
// - logger: the logger for logging events.
//
// Returns:
// - *Estimator: the estimator instance.
func New(config *types.EngineConfig, reader types.ChainReader, route *router.Router, logger *logrus.Logger) *Estimator {
	return &Estimator{
		config:   config,
		reader:   reader,
		route:    route,
		logger:   logger,
		debounce: debounceDelay,
	}
}

// OnUpdate registers a callback invoked whenever a new estimate is published.
// Must be set before the first Update call.
func (e *Estimator) OnUpdate(fn func(types.GasEstimate)) {
	e.mu.Lock()
	e.onUpdate = fn
	e.mu.Unlock()
}

// Estimate returns the current gas estimate.
func (e *Estimator) Estimate() types.GasEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.estimate
}

// Update schedules a recomputation for the given inputs, superseding any
// pending or in-flight run. Inputs that cannot produce a meaningful estimate
// publish a zero ("not applicable") estimate immediately.
//
// Parameters:
// - inputs: the snapshot of estimate-relevant state.
func (e *Estimator) Update(inputs Inputs) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}

	e.generation++
	gen := e.generation
	e.cancelPendingLocked()

	if !estimable(inputs, e.config.ChainID) {
		e.publishLocked(gen, types.GasEstimate{NativeCost: decimal.Zero, Stale: false})
		return
	}

	e.estimate.Stale = true

	e.timer = time.AfterFunc(e.debounce, func() {
		e.run(gen, inputs)
	})
}

// Stop cancels any pending or in-flight estimation. Results arriving after
// Stop are discarded, so a torn-down view is never mutated.
func (e *Estimator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.cancelPendingLocked()
}

// cancelPendingLocked stops the debounce timer and cancels the in-flight run.
func (e *Estimator) cancelPendingLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// publishLocked applies a result if its generation is still current.
func (e *Estimator) publishLocked(gen uint64, estimate types.GasEstimate) {
	if e.stopped || gen != e.generation {
		return
	}
	e.estimate = estimate
	if e.onUpdate != nil {
		go e.onUpdate(estimate)
	}
}

// run executes one estimation attempt for the given generation.
func (e *Estimator) run(gen uint64, inputs Inputs) {
	ctx, cancel := context.WithTimeout(context.Background(), estimateTimeout)

	e.mu.Lock()
	if e.stopped || gen != e.generation {
		e.mu.Unlock()
		cancel()
		return
	}
	e.cancel = cancel
	e.mu.Unlock()

	cost := e.estimateCost(ctx, inputs)
	cancel()

	e.mu.Lock()
	e.publishLocked(gen, types.GasEstimate{NativeCost: cost, Stale: false})
	e.mu.Unlock()
}

// estimateCost simulates the exact pending swap call and converts the gas
// unit count to a native-asset cost. Failures degrade to fixed fallbacks and
// are never surfaced as errors.
func (e *Estimator) estimateCost(ctx context.Context, inputs Inputs) decimal.Decimal {
	from := *inputs.Wallet.Address

	call, err := e.route.BuildSwapCall(
		inputs.Direction,
		inputs.Token,
		inputs.Pair.InputAmount(inputs.Direction),
		inputs.Pair.OutputAmount(inputs.Direction),
		inputs.SlippageBps,
		from,
		e.config.NativeDecimals,
		time.Now(),
	)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to build swap call for estimation")
		return fallbackNativeCost
	}

	gasUnits, err := e.reader.SimulateCall(ctx, from, call.To, call.Value, call.Data)
	if err != nil {
		if inputs.Direction != types.TokenToNative {
			e.logger.WithError(err).Warn("Swap simulation failed, using fallback cost")
			return fallbackNativeCost
		}
		// A missing approval makes the sell-side simulation revert; a fixed
		// conservative unit count still yields a usable cost.
		gasUnits = fallbackSwapGasUnits
	}

	gasPrice, err := e.reader.GasPrice(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to get gas price, using fallback cost")
		return fallbackNativeCost
	}

	costWei := new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasPrice)
	return router.FromSmallestUnit(costWei, e.config.NativeDecimals)
}

// estimable reports whether the inputs can produce a meaningful estimate.
func estimable(inputs Inputs, targetChainID uint64) bool {
	if !inputs.Wallet.IsConnected() || !inputs.Wallet.IsCorrectNetwork(targetChainID) {
		return false
	}
	if inputs.Token == nil {
		return false
	}
	amount, ok := quote.ParseAmount(inputs.Pair.InputAmount(inputs.Direction))
	return ok && amount.IsPositive()
}
