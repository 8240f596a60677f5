package types

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WalletState is a read-only snapshot of the connected wallet session.
// The engine never mutates it; connect and network-switch requests go
// through the Wallet interface.
//
// Fields:
// - Address: the connected account address, nil when disconnected.
// - ChainID: the wallet's current chain ID, nil when unknown.
type WalletState struct {
	Address *common.Address
	ChainID *uint64
}

// IsConnected reports whether an account is connected.
func (w WalletState) IsConnected() bool {
	return w.Address != nil
}

// IsCorrectNetwork reports whether the wallet is on the target chain.
func (w WalletState) IsCorrectNetwork(targetChainID uint64) bool {
	return w.ChainID != nil && *w.ChainID == targetChainID
}

// ReceiptStatus is the confirmed on-chain outcome of a submitted transaction.
type ReceiptStatus int

const (
	// ReceiptSucceeded indicates the transaction executed successfully.
	ReceiptSucceeded ReceiptStatus = iota
	// ReceiptFailed indicates the transaction reverted.
	ReceiptFailed
)

// Wallet is the wallet/account collaborator. Implementations own key
// management and signing; the engine only requests operations through
// this interface.
type Wallet interface {
	// State returns the current wallet session snapshot.
	State() WalletState

	// Connect establishes the wallet session.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	//
	// Returns:
	// - error: an error if the connection fails or is rejected.
	Connect(ctx context.Context) error

	// SwitchChain requests the wallet to switch to the target chain.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - chainID: the target chain ID.
	//
	// Returns:
	// - error: an error if the switch fails or is rejected.
	SwitchChain(ctx context.Context, chainID uint64) error

	// SignAndSendTransaction signs and submits a transaction.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - to: the recipient contract address.
	// - data: the call data.
	// - value: the native-asset value to attach.
	//
	// Returns:
	// - common.Hash: the submitted transaction hash.
	// - error: an error if signing or submission fails or is rejected.
	SignAndSendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)

	// WaitForReceipt waits for the confirmed outcome of a transaction,
	// bounded by the given timeout.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - hash: the transaction hash to wait for.
	// - timeout: the maximum time to wait for confirmation.
	//
	// Returns:
	// - ReceiptStatus: the confirmed transaction status.
	// - error: an error if confirmation fails or times out.
	WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (ReceiptStatus, error)
}
