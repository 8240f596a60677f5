package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

// Wallet is a key-backed wallet session. It holds its own RPC connection so
// submissions survive a chain reader reconnect, and it reports the session
// state the engine's preconditions are checked against: a disconnected wallet
// has no address, and the chain ID always reflects the endpoint actually
// answering.
type Wallet struct {
	config *types.EngineConfig
	logger *logrus.Logger

	signerMutex sync.RWMutex
	signer      Signer

	clientMutex sync.RWMutex
	client      *ethclient.Client

	stateMutex sync.RWMutex
	state      types.WalletState
}

// New creates a key-backed wallet. The wallet starts disconnected; Connect
// establishes the session.
//
// Parameters:
// - config: the engine configuration.
// - privateKeyHex: the hex-encoded private key, without 0x prefix.
// - logger: the logger for logging events.
//
// Returns:
// - *Wallet: the wallet instance.
// - error: an error if the private key does not parse.
func New(config *types.EngineConfig, privateKeyHex string, logger *logrus.Logger) (*Wallet, error) {
	privKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	s, err := NewSigner(privKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer")
	}

	return &Wallet{
		config: config,
		logger: logger,
		signer: s,
	}, nil
}

// State returns the current session snapshot.
func (w *Wallet) State() types.WalletState {
	w.stateMutex.RLock()
	defer w.stateMutex.RUnlock()
	return w.state
}

// Connect dials the configured endpoint and establishes the session. The
// session chain ID is read from the endpoint, not assumed from configuration,
// so a misrouted endpoint surfaces as a wrong-network session instead of
// silently signing for the wrong chain.
//
// Parameters:
// - ctx: the context for managing the connection.
//
// Returns:
// - error: an error if dialing or the chain ID read fails.
func (w *Wallet) Connect(ctx context.Context) error {
	client, err := ethclient.Dial(w.config.RpcUrl)
	if err != nil {
		return errors.Wrap(err, "failed to create client")
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return errors.Wrap(err, "failed to get chain ID")
	}

	w.clientMutex.Lock()
	if w.client != nil {
		w.client.Close()
	}
	w.client = client
	w.clientMutex.Unlock()

	address := w.signer.Address()
	id := chainID.Uint64()

	w.stateMutex.Lock()
	w.state = types.WalletState{Address: &address, ChainID: &id}
	w.stateMutex.Unlock()

	w.logger.WithFields(logrus.Fields{
		"address": address.Hex(),
		"chainId": id,
	}).Info("Wallet connected")

	return nil
}

// Disconnect closes the session. The wallet can be reconnected later.
func (w *Wallet) Disconnect() {
	w.clientMutex.Lock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
	w.clientMutex.Unlock()

	w.stateMutex.Lock()
	w.state = types.WalletState{}
	w.stateMutex.Unlock()
}

// SwitchChain asks the session to move to the given chain. A key-backed
// wallet is bound to one endpoint, so only the chain the endpoint already
// serves can be confirmed.
//
// Parameters:
// - ctx: the context for managing the request.
// - chainID: the requested chain ID.
//
// Returns:
// - error: an error if the session is not connected or serves another chain.
func (w *Wallet) SwitchChain(ctx context.Context, chainID uint64) error {
	w.clientMutex.RLock()
	client := w.client
	w.clientMutex.RUnlock()

	if client == nil {
		return errors.New("wallet not connected")
	}

	actual, err := client.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get chain ID")
	}

	if actual.Uint64() != chainID {
		return errors.Errorf("endpoint serves chain %d, cannot switch to %d", actual.Uint64(), chainID)
	}

	id := actual.Uint64()
	w.stateMutex.Lock()
	w.state.ChainID = &id
	w.stateMutex.Unlock()

	return nil
}

// getClient returns the current RPC client under the read lock.
func (w *Wallet) getClient() *ethclient.Client {
	w.clientMutex.RLock()
	defer w.clientMutex.RUnlock()
	return w.client
}
