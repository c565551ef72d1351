// Package wallettest provides an in-memory node for exercising the
// submission path without a network.
package wallettest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// FakeClient behaves like a node with a single pending pool. A successfully
// sent transaction bumps the pending nonce of its sender. Receipts become
// visible after PollsUntilReceipt lookups unless NeverMine is set.
type FakeClient struct {
	mu sync.Mutex

	ChainID  *big.Int
	GasPrice *big.Int

	NonceErr    error
	GasPriceErr error
	SendErr     error
	ReceiptErr  error

	// ReceiptStatus is reported on every receipt.
	ReceiptStatus     uint64
	PollsUntilReceipt int
	NeverMine         bool

	// FreezeNonce keeps the pending nonce fixed even after a send.
	FreezeNonce bool

	nonces        map[common.Address]uint64
	sent          []*types.Transaction
	polls         map[common.Hash]int
	nonceCalls    int
	gasPriceCalls int
	receiptCalls  int
}

func NewFakeClient(chainID *big.Int) *FakeClient {
	return &FakeClient{
		ChainID:       chainID,
		GasPrice:      big.NewInt(1_000_000_000),
		ReceiptStatus: types.ReceiptStatusSuccessful,
		nonces:        map[common.Address]uint64{},
		polls:         map[common.Hash]int{},
	}
}

// SetNonce sets the pending nonce of addr.
func (f *FakeClient) SetNonce(addr common.Address, nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonces[addr] = nonce
}

func (f *FakeClient) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceCalls++
	if f.NonceErr != nil {
		return 0, f.NonceErr
	}
	return f.nonces[account], nil
}

func (f *FakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasPriceCalls++
	if f.GasPriceErr != nil {
		return nil, f.GasPriceErr
	}
	return new(big.Int).Set(f.GasPrice), nil
}

func (f *FakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	from, err := types.Sender(types.LatestSignerForChainID(f.ChainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	expected := f.nonces[from]
	switch {
	case tx.Nonce() < expected:
		return errors.New("nonce too low")
	case tx.Nonce() > expected:
		return errors.New("nonce too high")
	}
	f.sent = append(f.sent, tx)
	if !f.FreezeNonce {
		f.nonces[from] = expected + 1
	}
	return nil
}

func (f *FakeClient) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls++
	if f.ReceiptErr != nil {
		return nil, f.ReceiptErr
	}
	if f.NeverMine {
		return nil, ethereum.NotFound
	}
	for i, tx := range f.sent {
		if tx.Hash() != txHash {
			continue
		}
		f.polls[txHash]++
		if f.polls[txHash] <= f.PollsUntilReceipt {
			return nil, ethereum.NotFound
		}
		receipt := &types.Receipt{
			Type:              tx.Type(),
			Status:            f.ReceiptStatus,
			TxHash:            txHash,
			GasUsed:           21_000,
			CumulativeGasUsed: 21_000,
			BlockNumber:       big.NewInt(int64(i + 1)),
		}
		if tx.To() == nil {
			from, _ := types.Sender(types.LatestSignerForChainID(f.ChainID), tx)
			receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
		}
		return receipt, nil
	}
	return nil, ethereum.NotFound
}

// Sent returns the accepted transactions in broadcast order.
func (f *FakeClient) Sent() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

func (f *FakeClient) NonceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonceCalls
}

func (f *FakeClient) GasPriceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gasPriceCalls
}

func (f *FakeClient) ReceiptCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiptCalls
}
