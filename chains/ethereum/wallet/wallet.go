package wallet

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

const DefaultPollInterval = 500 * time.Millisecond

var errReceiptPending = errors.New("receipt not yet available")

// Connection is bound to a single JSON-RPC endpoint and exposes the chain
// queries needed to submit a transaction. It is safe for concurrent use as
// long as the underlying Client is.
type Connection struct {
	logger       *zap.Logger
	client       Client
	pollInterval time.Duration
}

// NewConnection wraps client. A non-positive pollInterval selects DefaultPollInterval.
func NewConnection(logger *zap.Logger, client Client, pollInterval time.Duration) *Connection {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Connection{
		logger:       logger.With(zap.String("module", "connection")),
		client:       client,
		pollInterval: pollInterval,
	}
}

// NextNonce returns the pending-inclusive transaction count of addr, so
// transactions already accepted into the node's pool are accounted for.
func (c *Connection) NextNonce(ctx context.Context, addr common.Address) (uint64, error) {
	nonce, err := c.client.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, &loadtesttypes.NetworkError{Op: "eth_getTransactionCount", Err: err}
	}
	return nonce, nil
}

// CurrentGasPrice returns the node's suggested gas price.
func (c *Connection) CurrentGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &loadtesttypes.NetworkError{Op: "eth_gasPrice", Err: err}
	}
	return price, nil
}

// Broadcast submits a signed transaction. A node rejection is a
// *BroadcastError, a transport failure a *NetworkError.
func (c *Connection) Broadcast(ctx context.Context, signedTx *types.Transaction) (common.Hash, error) {
	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		if isTransportError(err) {
			return common.Hash{}, &loadtesttypes.NetworkError{Op: "eth_sendRawTransaction", Err: err}
		}
		return common.Hash{}, &loadtesttypes.BroadcastError{TxHash: signedTx.Hash(), Err: err}
	}
	return signedTx.Hash(), nil
}

// WaitForReceipt polls for the receipt of txHash at a fixed interval until it
// appears or timeout elapses. On timeout it returns a nil receipt and a nil
// error. Any error other than "not found" stops polling as a *NetworkError.
func (c *Connection) WaitForReceipt(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), waitCtx)

	var (
		receipt *types.Receipt
		polls   int
	)
	err := backoff.Retry(func() error {
		polls++
		r, err := c.client.TransactionReceipt(waitCtx, txHash)
		switch {
		case err == nil && r != nil:
			receipt = r
			return nil
		case err == nil, errors.Is(err, ethereum.NotFound):
			return errReceiptPending
		case waitCtx.Err() != nil:
			return backoff.Permanent(waitCtx.Err())
		default:
			return backoff.Permanent(err)
		}
	}, b)

	switch {
	case err == nil:
		c.logger.Debug("receipt found", zap.String("tx_hash", txHash.Hex()), zap.Int("polls", polls))
		return receipt, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case waitCtx.Err() != nil:
		c.logger.Debug("timed out waiting for receipt",
			zap.String("tx_hash", txHash.Hex()),
			zap.Duration("timeout", timeout),
			zap.Int("polls", polls))
		return nil, nil
	default:
		return nil, &loadtesttypes.NetworkError{Op: "eth_getTransactionReceipt", Err: err}
	}
}
