package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// gasLimitBuffer pads the estimated gas limit by 10 percent.
const gasLimitBuffer = 110

// gasPriceData carries the fee fields for transaction assembly.
type gasPriceData struct {
	maxFeePerGas         *big.Int
	maxPriorityFeePerGas *big.Int
	isEIP1559            bool
}

// SignAndSendTransaction assembles, signs and submits a transaction from the
// wallet's key. EIP-1559 fee fields are used when the chain advertises a base
// fee; legacy pricing with a buffer otherwise.
//
// Parameters:
// - ctx: the context for managing the request.
// - to: the recipient contract or account.
// - data: the call data.
// - value: the native value to attach.
//
// Returns:
// - common.Hash: the submitted transaction hash.
// - error: an error if the wallet is not connected or any assembly, signing
//   or submission step fails.
func (w *Wallet) SignAndSendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	client := w.getClient()
	if client == nil {
		return common.Hash{}, errors.New("wallet not connected")
	}

	w.signerMutex.RLock()
	s := w.signer
	w.signerMutex.RUnlock()

	nonce, err := client.PendingNonceAt(ctx, s.Address())
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to get nonce")
	}

	tx, err := w.prepareTransaction(ctx, nonce, to, value, data)
	if err != nil {
		return common.Hash{}, err
	}

	chainID := new(big.Int).SetUint64(w.config.ChainID)
	signedTx, err := s.SignTx(tx, chainID)
	if err != nil {
		w.logger.WithError(err).Error("Failed to sign transaction")
		return common.Hash{}, errors.Wrap(err, "failed to sign transaction")
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		w.logger.WithError(err).Error("Failed to send transaction")
		return common.Hash{}, errors.Wrap(err, "failed to send transaction")
	}

	w.logger.WithFields(logrus.Fields{
		"txHash": signedTx.Hash().Hex(),
		"to":     to.Hex(),
		"nonce":  nonce,
	}).Info("Transaction submitted")

	return signedTx.Hash(), nil
}

// prepareTransaction assembles an unsigned transaction with estimated gas.
func (w *Wallet) prepareTransaction(ctx context.Context, nonce uint64, to common.Address, value *big.Int, data []byte) (*ethtypes.Transaction, error) {
	client := w.getClient()
	if client == nil {
		return nil, errors.New("wallet not connected")
	}

	estimatedGas, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.signer.Address(),
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		w.logger.WithField("chain", w.config.ChainName).WithError(err).Warn("Failed to estimate gas")
		return nil, errors.Wrap(err, "failed to estimate gas")
	}

	gasLimit := estimatedGas * gasLimitBuffer / 100

	priceData, err := w.getGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	if priceData.isEIP1559 {
		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(w.config.ChainID),
			Nonce:     nonce,
			GasFeeCap: priceData.maxFeePerGas,
			GasTipCap: priceData.maxPriorityFeePerGas,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	return ethtypes.NewTransaction(
		nonce,
		to,
		value,
		gasLimit,
		priceData.maxFeePerGas,
		data,
	), nil
}

// getGasPrice resolves the fee fields for the next transaction. Chains with a
// base fee get EIP-1559 pricing with a 30 percent base fee buffer; others get
// a buffered legacy gas price.
func (w *Wallet) getGasPrice(ctx context.Context) (*gasPriceData, error) {
	client := w.getClient()
	if client == nil {
		return nil, errors.New("wallet not connected")
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get header by number")
	}

	if header.BaseFee == nil {
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get gas price")
		}

		gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(150))
		gasPrice = new(big.Int).Div(gasPrice, big.NewInt(100))

		return &gasPriceData{maxFeePerGas: gasPrice}, nil
	}

	suggestedTip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to get suggested gas tip")
		suggestedTip = big.NewInt(1)
	}
	if suggestedTip.Sign() == 0 {
		suggestedTip = big.NewInt(1)
	}

	baseFeeBuf := new(big.Int).Mul(header.BaseFee, big.NewInt(130))
	baseFeeBuf = baseFeeBuf.Div(baseFeeBuf, big.NewInt(100))
	maxFeePerGas := new(big.Int).Add(baseFeeBuf, suggestedTip)

	if maxFeePerGas.Cmp(suggestedTip) <= 0 {
		maxFeePerGas = new(big.Int).Add(suggestedTip, header.BaseFee)
	}

	return &gasPriceData{
		maxFeePerGas:         maxFeePerGas,
		maxPriorityFeePerGas: suggestedTip,
		isEIP1559:            true,
	}, nil
}
