package errors

import "github.com/pkg/errors"

var (
	ErrBusy               = errors.New("a transaction sequence is already in flight")
	ErrNotConnected       = errors.New("wallet not connected")
	ErrWrongNetwork       = errors.New("wallet is on the wrong network")
	ErrInvalidAmount      = errors.New("amount is empty or not a positive number")
	ErrInsufficientNative = errors.New("insufficient native balance for amount plus gas")
	ErrInsufficientToken  = errors.New("insufficient token balance")
	ErrNoToken            = errors.New("no token selected")
	ErrApprovalFailed     = errors.New("approval failed")
	ErrSwapFailed         = errors.New("swap failed")
	ErrReceiptTimeout     = errors.New("transaction confirmation timed out")
	ErrPriceUnavailable   = errors.New("price unavailable")
)
