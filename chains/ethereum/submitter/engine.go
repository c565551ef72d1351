// Package submitter drives a single transaction through build, sign,
// broadcast and confirmation for one sender.
package submitter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/skip-mev/deploybench/chains/ethereum/metrics"
	"github.com/skip-mev/deploybench/chains/ethereum/txfactory"
	ethtypes "github.com/skip-mev/deploybench/chains/ethereum/types"
	"github.com/skip-mev/deploybench/chains/ethereum/wallet"
	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// Outcome is the terminal state of one submission attempt. Err is nil
// exactly when Succeeded is true.
type Outcome struct {
	MsgType loadtesttypes.MsgType
	TxHash  common.Hash
	Nonce   uint64
	Receipt *gethtypes.Receipt
	// Latency is measured from broadcast to the receipt being observed.
	Latency   time.Duration
	Succeeded bool
	Err       error
}

// Record converts the outcome into its reportable form.
func (o Outcome) Record(sender common.Address) loadtesttypes.AttemptRecord {
	rec := loadtesttypes.AttemptRecord{
		MsgType:   o.MsgType,
		Sender:    sender.Hex(),
		Nonce:     o.Nonce,
		Succeeded: o.Succeeded,
		Latency:   o.Latency,
		Failure:   loadtesttypes.ClassifyFailure(o.Err),
	}
	if o.TxHash != (common.Hash{}) {
		rec.TxHash = o.TxHash.Hex()
	}
	if o.Receipt != nil {
		if o.Receipt.BlockNumber != nil {
			rec.BlockNumber = o.Receipt.BlockNumber.Uint64()
		}
		rec.GasUsed = o.Receipt.GasUsed
		if o.Receipt.ContractAddress != (common.Address{}) {
			rec.ContractAddress = o.Receipt.ContractAddress.Hex()
		}
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// Engine submits transactions for a single sender. Submit calls on the same
// engine are serialized from nonce lookup through broadcast, so no two
// in-flight transactions observe the same pending nonce.
type Engine struct {
	logger  *zap.Logger
	factory *txfactory.TxFactory
	signer  *wallet.Signer
	conn    *wallet.Connection
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewEngine creates an engine for signer. A nil m records into unregistered metrics.
func NewEngine(logger *zap.Logger, conn *wallet.Connection, signer *wallet.Signer, defaultGasLimit uint64, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Engine{
		logger:  logger.With(zap.String("module", "submitter"), zap.String("sender", signer.FormattedAddress())),
		factory: txfactory.NewTxFactory(logger, conn, signer, defaultGasLimit),
		signer:  signer,
		conn:    conn,
		metrics: m,
	}
}

// Address returns the sender address.
func (e *Engine) Address() common.Address {
	return e.signer.Address()
}

// Submit builds, signs and broadcasts intent, then waits up to timeout for its
// receipt. Only signing failures are returned as an error, and they are also
// set on the Outcome. Every other
// failure, including network errors while building, is reported in the
// Outcome. Nothing is resubmitted: a later Submit re-derives the nonce from
// the node.
func (e *Engine) Submit(ctx context.Context, intent txfactory.Intent, timeout time.Duration) (Outcome, error) {
	if timeout <= 0 {
		timeout = loadtesttypes.DefaultTxTimeout
	}

	outcome, signed, err := e.sendLocked(ctx, intent)
	if err != nil || signed == nil {
		return outcome, err
	}

	start := time.Now()
	receipt, err := e.conn.WaitForReceipt(ctx, outcome.TxHash, timeout)
	outcome.Latency = time.Since(start)
	logger := e.logger.With(
		zap.String("tx_hash", outcome.TxHash.Hex()),
		zap.Uint64("nonce", outcome.Nonce),
		zap.String("msg_type", outcome.MsgType.String()),
	)

	switch {
	case err != nil:
		var netErr *loadtesttypes.NetworkError
		if !errors.As(err, &netErr) {
			err = &loadtesttypes.NetworkError{Op: "eth_getTransactionReceipt", Err: err}
		}
		logger.Error("failed waiting for receipt", zap.Error(err))
		outcome.Err = err
		return outcome, nil
	case receipt == nil:
		e.metrics.TxTimeout.Inc()
		outcome.Err = &loadtesttypes.ConfirmationTimeoutError{TxHash: outcome.TxHash, Timeout: timeout}
		logger.Warn("transaction not confirmed in time", zap.Duration("timeout", timeout))
		return outcome, nil
	}

	e.metrics.TxInclusion.Observe(float64(outcome.Latency.Milliseconds()))
	outcome.Receipt = receipt

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		e.metrics.TxFailure.Inc()
		outcome.Err = &loadtesttypes.OnChainRevertError{TxHash: outcome.TxHash, BlockNumber: blockNumber(receipt)}
		logger.Warn("transaction reverted",
			zap.Uint64("block_number", blockNumber(receipt)),
			zap.Uint64("gas_used", receipt.GasUsed))
		return outcome, nil
	}

	e.metrics.TxSuccess.Inc()
	outcome.Succeeded = true
	logger.Info("transaction confirmed",
		zap.Uint64("block_number", blockNumber(receipt)),
		zap.Uint64("gas_used", receipt.GasUsed),
		zap.Duration("latency", outcome.Latency))
	return outcome, nil
}

// sendLocked runs build, sign and broadcast under the sender lock. A nil
// transaction with a nil error means the attempt ended before confirmation.
func (e *Engine) sendLocked(ctx context.Context, intent txfactory.Intent) (Outcome, *gethtypes.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcome := Outcome{MsgType: ethtypes.MsgTypeFor(intent.To)}

	desc, err := e.factory.Build(ctx, intent)
	if err != nil {
		var signErr *loadtesttypes.SigningError
		if errors.As(err, &signErr) {
			outcome.Err = err
			return outcome, nil, err
		}
		e.logger.Error("failed to build transaction", zap.Error(err))
		outcome.Err = err
		return outcome, nil, nil
	}
	outcome.Nonce = desc.Nonce

	signed, err := e.signer.SignTx(desc.Transaction())
	if err != nil {
		outcome.Err = err
		return outcome, nil, err
	}
	outcome.TxHash = signed.Hash()

	if _, err := e.conn.Broadcast(ctx, signed); err != nil {
		e.metrics.BroadcastFailure.Inc()
		e.logger.Error("failed to broadcast transaction",
			zap.String("tx_hash", outcome.TxHash.Hex()),
			zap.Uint64("nonce", desc.Nonce),
			zap.Error(err))
		outcome.Err = err
		return outcome, nil, nil
	}
	e.metrics.BroadcastSuccess.Inc()
	e.logger.Debug("broadcast transaction",
		zap.String("tx_hash", outcome.TxHash.Hex()),
		zap.Uint64("nonce", desc.Nonce),
		zap.Stringer("gas_price", desc.GasPrice),
		zap.Uint64("gas_limit", desc.GasLimit))
	return outcome, signed, nil
}

func blockNumber(r *gethtypes.Receipt) uint64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}
