package engine

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/BaseSwapLabs/swap-engine/balance"
	"github.com/BaseSwapLabs/swap-engine/common/types"
	"github.com/BaseSwapLabs/swap-engine/gas"
	"github.com/BaseSwapLabs/swap-engine/oracle"
	"github.com/BaseSwapLabs/swap-engine/orchestrator"
	"github.com/BaseSwapLabs/swap-engine/router"
)

// Builder assembles an engine from its collaborators. Components not set
// explicitly get their production implementations; tests inject fakes.
type Builder struct {
	config      *types.EngineConfig
	wallet      types.Wallet
	reader      types.ChainReader
	priceSource types.PriceSource
	logger      *logrus.Logger
}

// NewBuilder creates an engine builder for the given configuration.
//
// Parameters:
// - config: the engine configuration.
//
// Returns:
// - *Builder: a new Builder instance.
func NewBuilder(config *types.EngineConfig) *Builder {
	return &Builder{config: config}
}

// WithWallet sets the wallet implementation.
//
// Parameters:
// - wallet: the wallet implementation.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithWallet(wallet types.Wallet) *Builder {
	b.wallet = wallet
	return b
}

// WithChainReader sets the chain reader implementation.
//
// Parameters:
// - reader: the chain reader implementation.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithChainReader(reader types.ChainReader) *Builder {
	b.reader = reader
	return b
}

// WithPriceSource sets the price source implementation.
//
// Parameters:
// - priceSource: the price source implementation.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithPriceSource(priceSource types.PriceSource) *Builder {
	b.priceSource = priceSource
	return b
}

// WithLogger sets the logger.
//
// Parameters:
// - logger: the logger for logging events.
//
// Returns:
// - *Builder: the updated Builder instance.
func (b *Builder) WithLogger(logger *logrus.Logger) *Builder {
	b.logger = logger
	return b
}

// Build wires the configured collaborators into an engine. The wallet and
// chain reader are required; a missing price source gets the default price
// oracle, whose refresh loop the engine then owns.
//
// Returns:
// - *Engine: the assembled engine.
// - error: an error if a required collaborator is missing or the
//   configuration is unusable.
func (b *Builder) Build() (*Engine, error) {
	if b.config == nil {
		return nil, errors.New("config is required")
	}
	if b.wallet == nil {
		return nil, errors.New("wallet is required")
	}
	if b.reader == nil {
		return nil, errors.New("chain reader is required")
	}

	b.config.Normalize()

	logger := b.logger
	if logger == nil {
		logger = logrus.New()
	}

	route, err := router.New(b.config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create router")
	}

	var ownedOracle *oracle.Oracle
	priceSource := b.priceSource
	if priceSource == nil {
		ownedOracle = oracle.New(b.config, logger)
		priceSource = ownedOracle
	}

	e := &Engine{
		config:      b.config,
		logger:      logger,
		wallet:      b.wallet,
		reader:      b.reader,
		priceSource: priceSource,
		ownedOracle: ownedOracle,
		route:       route,
		tracker:     balance.New(b.config, b.reader, logger),
		estimator:   gas.New(b.config, b.reader, route, logger),
		orch:        orchestrator.New(b.config, b.wallet, b.reader, route, logger),
		slippageBps: types.DefaultSlippageBps,
	}

	e.tracker.OnChange(e.handleBalanceChange)
	e.estimator.OnUpdate(e.handleGasUpdate)
	e.orch.OnTransition(e.handleTransition)

	return e, nil
}
