package orchestrator

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	swaperrors "github.com/BaseSwapLabs/swap-engine/common/errors"
	"github.com/BaseSwapLabs/swap-engine/common/types"
	"github.com/BaseSwapLabs/swap-engine/guard"
	"github.com/BaseSwapLabs/swap-engine/router"
)

// State is a step of the approve-then-swap transaction sequence.
type State string

const (
	StateIdle                    State = "IDLE"
	StateCheckingAllowance       State = "CHECKING_ALLOWANCE"
	StateApproving               State = "APPROVING"
	StateAwaitingApprovalReceipt State = "AWAITING_APPROVAL_RECEIPT"
	StateSubmittingSwap          State = "SUBMITTING_SWAP"
	StateAwaitingSwapReceipt     State = "AWAITING_SWAP_RECEIPT"
	StateSucceeded               State = "SUCCEEDED"
	StateFailed                  State = "FAILED"
)

// Terminal reports whether the state ends a submission sequence.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// resetDelay is how long a terminal state stays visible before the machine
// returns to idle on its own.
const resetDelay = 3 * time.Second

// Request carries everything a submission needs. Amounts are the
// authoritative decimal strings; smallest-unit conversion happens inside at
// each asset's true precision.
type Request struct {
	Direction   types.Direction
	Token       *types.TokenDescriptor
	Pair        types.AmountPair
	SlippageBps int
}

// Result reports a completed submission.
//
// Fields:
// - ApprovalTx: the approval transaction hash, nil when no approval was needed.
// - SwapTx: the swap transaction hash.
type Result struct {
	ApprovalTx *common.Hash
	SwapTx     common.Hash
}

// Orchestrator drives the approve-then-swap sequence as an explicit state
// machine. At most one sequence is in flight: the machine refuses a new
// submission until it has returned to idle. Every failure path lands in the
// FAILED state and then idles, so the caller is never left stuck in a
// processing state.
type Orchestrator struct {
	config *types.EngineConfig
	wallet types.Wallet
	reader types.ChainReader
	route  *router.Router
	logger *logrus.Logger

	mu           sync.Mutex
	state        State
	claimed      bool
	failure      error
	resetTimer   *time.Timer
	onTransition func(State)
}

// New creates a transaction orchestrator.
//
// Parameters:
// - config: the engine configuration.
// - wallet: the wallet collaborator that signs and submits.
// - reader: the chain read client used for allowance checks.
// - route: the router calldata builder.
// - logger: the logger for logging events.
//
// Returns:
// - *Orchestrator: the orchestrator, starting in the idle state.
func New(config *types.EngineConfig, wallet types.Wallet, reader types.ChainReader, route *router.Router, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		config: config,
		wallet: wallet,
		reader: reader,
		route:  route,
		logger: logger,
		state:  StateIdle,
	}
}

// OnTransition registers a callback invoked on every state change.
func (o *Orchestrator) OnTransition(fn func(State)) {
	o.mu.Lock()
	o.onTransition = fn
	o.mu.Unlock()
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// FailureReason returns the error that drove the machine into FAILED, nil
// otherwise.
func (o *Orchestrator) FailureReason() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failure
}

// Acknowledge returns a terminal state to idle immediately. The engine calls
// it on the next user edit; otherwise the reset timer does the same after a
// short display delay.
func (o *Orchestrator) Acknowledge() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.Terminal() {
		return
	}
	o.toIdleLocked()
}

// Submit runs one approve-then-swap sequence. The precondition snapshot is
// checked first; on any failing precondition the submission is refused with
// no state change. The call blocks until the sequence reaches a terminal
// state.
//
// Parameters:
// - ctx: the context for managing the submission.
// - req: the swap request.
// - pre: the precondition snapshot at submit time.
//
// Returns:
// - *Result: the submitted transaction hashes on success.
// - error: ErrBusy while a sequence is in flight, a precondition sentinel
//   when refused, or the failure that ended the sequence.
func (o *Orchestrator) Submit(ctx context.Context, req Request, pre guard.Snapshot) (*Result, error) {
	o.mu.Lock()
	if o.state != StateIdle || o.claimed {
		o.mu.Unlock()
		return nil, swaperrors.ErrBusy
	}

	if err := guard.Check(pre); err != nil {
		o.mu.Unlock()
		return nil, err
	}

	// The sequence owns the machine from here until it idles again.
	o.claimed = true
	o.failure = nil
	o.mu.Unlock()

	result, err := o.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// run executes the sequence transitions. It must only be entered from Submit
// with the machine claimed.
func (o *Orchestrator) run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}

	if req.Direction == types.TokenToNative {
		o.transition(StateCheckingAllowance)

		required, err := router.SmallestUnit(req.Pair.InputAmount(req.Direction), req.Token.Decimals)
		if err != nil {
			return nil, o.fail(errors.Wrap(err, "invalid input amount"))
		}

		allowance, err := o.readAllowance(ctx, req.Token.Address)
		if err != nil {
			return nil, o.fail(errors.Wrap(err, "allowance check failed"))
		}

		if allowance.Cmp(required) < 0 {
			approvalTx, err := o.approve(ctx, req.Token.Address, required)
			if err != nil {
				return nil, err
			}
			result.ApprovalTx = approvalTx
		}
	}

	swapTx, err := o.submitSwap(ctx, req)
	if err != nil {
		return nil, err
	}
	result.SwapTx = *swapTx

	o.transition(StateSucceeded)
	o.scheduleReset()
	return result, nil
}

// readAllowance reads the on-chain allowance for (owner, router).
func (o *Orchestrator) readAllowance(ctx context.Context, token common.Address) (*big.Int, error) {
	owner := o.wallet.State().Address
	if owner == nil {
		return nil, errors.New("wallet disconnected during submission")
	}

	data, err := o.route.AllowanceCalldata(*owner)
	if err != nil {
		return nil, err
	}

	raw, err := o.reader.ReadContract(ctx, token, data)
	if err != nil {
		return nil, err
	}

	return o.route.ParseAllowance(raw)
}

// approve submits an approval for exactly the required amount and waits for
// its receipt.
func (o *Orchestrator) approve(ctx context.Context, token common.Address, amount *big.Int) (*common.Hash, error) {
	o.transition(StateApproving)

	data, err := o.route.ApproveCalldata(amount)
	if err != nil {
		return nil, o.fail(errors.Wrap(err, "failed to build approval"))
	}

	hash, err := o.wallet.SignAndSendTransaction(ctx, token, data, big.NewInt(0))
	if err != nil {
		return nil, o.fail(errors.Wrap(err, "approval submission rejected"))
	}

	o.logger.WithFields(logrus.Fields{
		"token":  token.Hex(),
		"txHash": hash.Hex(),
		"amount": amount.String(),
	}).Info("Approval submitted")

	o.transition(StateAwaitingApprovalReceipt)

	status, err := o.wallet.WaitForReceipt(ctx, hash, o.config.ReceiptTimeout)
	if err != nil {
		return nil, o.fail(errors.Wrap(swaperrors.ErrApprovalFailed, err.Error()))
	}
	if status != types.ReceiptSucceeded {
		return nil, o.fail(swaperrors.ErrApprovalFailed)
	}

	return &hash, nil
}

// submitSwap builds the swap with a deadline computed now, submits it, and
// waits for its receipt.
func (o *Orchestrator) submitSwap(ctx context.Context, req Request) (*common.Hash, error) {
	o.transition(StateSubmittingSwap)

	recipient := o.wallet.State().Address
	if recipient == nil {
		return nil, o.fail(errors.New("wallet disconnected during submission"))
	}

	// The deadline is derived from the submission time on every attempt. A
	// deadline carried over from an earlier quote would let the chain accept
	// a stale trade, which is exactly what the deadline exists to prevent.
	call, err := o.route.BuildSwapCall(
		req.Direction,
		req.Token,
		req.Pair.InputAmount(req.Direction),
		req.Pair.OutputAmount(req.Direction),
		req.SlippageBps,
		*recipient,
		o.config.NativeDecimals,
		time.Now(),
	)
	if err != nil {
		return nil, o.fail(errors.Wrap(err, "failed to build swap"))
	}

	hash, err := o.wallet.SignAndSendTransaction(ctx, call.To, call.Data, call.Value)
	if err != nil {
		return nil, o.fail(errors.Wrap(err, "swap submission rejected"))
	}

	o.logger.WithFields(logrus.Fields{
		"direction":   req.Direction.String(),
		"txHash":      hash.Hex(),
		"amountIn":    call.AmountIn.String(),
		"minReceived": call.MinReceived.String(),
	}).Info("Swap submitted")

	o.transition(StateAwaitingSwapReceipt)

	status, err := o.wallet.WaitForReceipt(ctx, hash, o.config.ReceiptTimeout)
	if err != nil {
		return nil, o.fail(errors.Wrap(swaperrors.ErrSwapFailed, err.Error()))
	}
	if status != types.ReceiptSucceeded {
		return nil, o.fail(swaperrors.ErrSwapFailed)
	}

	return &hash, nil
}

// fail moves the machine to FAILED, schedules the idle reset, and returns
// the failure for the caller.
func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	o.failure = err
	o.mu.Unlock()

	o.logger.WithError(err).Warn("Swap sequence failed")
	o.transition(StateFailed)
	o.scheduleReset()
	return err
}

// transition moves the machine to the next state and notifies the observer.
func (o *Orchestrator) transition(next State) {
	o.mu.Lock()
	o.state = next
	fn := o.onTransition
	o.mu.Unlock()

	if fn != nil {
		fn(next)
	}
}

// scheduleReset arms the terminal-to-idle timer.
func (o *Orchestrator) scheduleReset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.resetTimer != nil {
		o.resetTimer.Stop()
	}
	o.resetTimer = time.AfterFunc(resetDelay, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.state.Terminal() {
			o.toIdleLocked()
		}
	})
}

// toIdleLocked clears terminal bookkeeping and re-opens the machine.
func (o *Orchestrator) toIdleLocked() {
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	o.state = StateIdle
	o.claimed = false
	fn := o.onTransition
	if fn != nil {
		go fn(StateIdle)
	}
}

// Close releases the reset timer.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
}
