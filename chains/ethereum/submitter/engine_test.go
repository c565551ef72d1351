package submitter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/skip-mev/deploybench/chains/ethereum/contracts"
	"github.com/skip-mev/deploybench/chains/ethereum/metrics"
	"github.com/skip-mev/deploybench/chains/ethereum/txfactory"
	ethtypes "github.com/skip-mev/deploybench/chains/ethereum/types"
	"github.com/skip-mev/deploybench/chains/ethereum/wallet"
	"github.com/skip-mev/deploybench/chains/ethereum/wallet/wallettest"
	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// stopRuntime deploys a contract whose runtime is a single STOP, so any call succeeds.
var stopRuntime = common.FromHex("0x600060005360016000f3")

// revertRuntime deploys a contract that reverts on every call.
var revertRuntime = common.FromHex("0x6460006000fd6000526005601bf3")

type engineFixture struct {
	client  *wallettest.FakeClient
	signer  *wallet.Signer
	metrics *metrics.Metrics
	engine  *Engine
}

func newEngineFixture(t *testing.T, pollInterval time.Duration) engineFixture {
	t.Helper()
	chainID := big.NewInt(1337802)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := wallet.NewSigner(key, chainID)
	client := wallettest.NewFakeClient(chainID)
	logger := zaptest.NewLogger(t)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	conn := wallet.NewConnection(logger, client, pollInterval)
	return engineFixture{
		client:  client,
		signer:  signer,
		metrics: m,
		engine:  NewEngine(logger, conn, signer, 0, m),
	}
}

func getRandomAddr(t *testing.T) common.Address {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey)
}

func TestSubmitDeploySuccess(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	fx.client.PollsUntilReceipt = 1

	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{Payload: txfactory.Bytecode(stopRuntime), GasLimit: 1_000_000}, 5*time.Second)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)
	require.NoError(t, outcome.Err)
	require.Equal(t, ethtypes.ContractCreate, outcome.MsgType)
	require.NotNil(t, outcome.Receipt)
	require.Equal(t, crypto.CreateAddress(fx.signer.Address(), 0), outcome.Receipt.ContractAddress)

	sent := fx.client.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, sent[0].Hash(), outcome.TxHash)
	require.Nil(t, sent[0].To())
	require.Equal(t, uint64(1_000_000), sent[0].Gas())

	require.InDelta(t, 1, testutil.ToFloat64(fx.metrics.BroadcastSuccess), 0)
	require.InDelta(t, 1, testutil.ToFloat64(fx.metrics.TxSuccess), 0)
	require.Zero(t, testutil.ToFloat64(fx.metrics.TxFailure))

	rec := outcome.Record(fx.signer.Address())
	require.True(t, rec.Succeeded)
	require.Equal(t, loadtesttypes.FailureNone, rec.Failure)
	require.Equal(t, outcome.Receipt.ContractAddress.Hex(), rec.ContractAddress)
	require.Equal(t, fx.signer.Address().Hex(), rec.Sender)
	require.Equal(t, uint64(21_000), rec.GasUsed)
}

func TestSubmitRevert(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	fx.client.ReceiptStatus = gethtypes.ReceiptStatusFailed
	to := getRandomAddr(t)

	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{To: &to, Payload: txfactory.Bytecode{0x01}}, 5*time.Second)
	require.NoError(t, err)
	require.False(t, outcome.Succeeded)
	require.Equal(t, ethtypes.ContractCall, outcome.MsgType)
	require.NotNil(t, outcome.Receipt, "reverted receipts are kept")

	var revertErr *loadtesttypes.OnChainRevertError
	require.ErrorAs(t, outcome.Err, &revertErr)
	require.Equal(t, outcome.TxHash, revertErr.TxHash)
	require.Equal(t, uint64(1), revertErr.BlockNumber)
	require.InDelta(t, 1, testutil.ToFloat64(fx.metrics.TxFailure), 0)
	require.Equal(t, loadtesttypes.FailureRevert, outcome.Record(fx.signer.Address()).Failure)
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 50*time.Millisecond)
	fx.client.NeverMine = true

	start := time.Now()
	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{Payload: txfactory.Bytecode(stopRuntime)}, time.Second)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.False(t, outcome.Succeeded)
	require.Nil(t, outcome.Receipt)

	var timeoutErr *loadtesttypes.ConfirmationTimeoutError
	require.ErrorAs(t, outcome.Err, &timeoutErr)
	require.Equal(t, outcome.TxHash, timeoutErr.TxHash)
	require.Equal(t, time.Second, timeoutErr.Timeout)
	require.GreaterOrEqual(t, elapsed, time.Second)
	require.Less(t, elapsed, 3*time.Second)
	require.InDelta(t, 1, testutil.ToFloat64(fx.metrics.TxTimeout), 0)
}

func TestSubmitBroadcastRejected(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	fx.client.SendErr = errors.New("insufficient funds for gas * price + value")

	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{Payload: txfactory.Bytecode(stopRuntime)}, 5*time.Second)
	require.NoError(t, err)
	require.False(t, outcome.Succeeded)

	var bcastErr *loadtesttypes.BroadcastError
	require.ErrorAs(t, outcome.Err, &bcastErr)
	require.Equal(t, outcome.TxHash, bcastErr.TxHash)
	require.ErrorContains(t, outcome.Err, "insufficient funds")
	require.Zero(t, fx.client.ReceiptCalls(), "rejected transactions are never polled")
	require.InDelta(t, 1, testutil.ToFloat64(fx.metrics.BroadcastFailure), 0)
	require.Zero(t, testutil.ToFloat64(fx.metrics.BroadcastSuccess))
}

func TestSubmitBuildNetworkError(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	fx.client.NonceErr = errors.New("connection refused")

	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{Payload: txfactory.Bytecode(stopRuntime)}, 5*time.Second)
	require.NoError(t, err, "network failures are reported in the outcome")
	var netErr *loadtesttypes.NetworkError
	require.ErrorAs(t, outcome.Err, &netErr)
	require.Equal(t, common.Hash{}, outcome.TxHash)
	require.Empty(t, fx.client.Sent())
	require.Equal(t, loadtesttypes.FailureNetwork, outcome.Record(fx.signer.Address()).Failure)
}

func TestSubmitSigningErrorIsRaised(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	to := getRandomAddr(t)

	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{To: &to, Payload: txfactory.TemplateCall{Template: "0xa4136862"}}, 5*time.Second)
	var signErr *loadtesttypes.SigningError
	require.ErrorAs(t, err, &signErr)
	require.Empty(t, fx.client.Sent())

	require.Equal(t, err, outcome.Err)
	require.False(t, outcome.Succeeded)
	rec := outcome.Record(fx.signer.Address())
	require.Equal(t, loadtesttypes.FailureSigning, rec.Failure)
	require.Equal(t, ethtypes.ContractCall, rec.MsgType)
}

func TestSubmitSequentialNonces(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	fx.client.SetNonce(fx.signer.Address(), 5)
	to := getRandomAddr(t)

	for i := range 3 {
		outcome, err := fx.engine.Submit(ctx, txfactory.Intent{To: &to}, 5*time.Second)
		require.NoError(t, err)
		require.True(t, outcome.Succeeded)
		require.Equal(t, uint64(5+i), outcome.Nonce)
	}
}

func TestSubmitFailedBroadcastDoesNotConsumeNonce(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	to := getRandomAddr(t)

	fx.client.SendErr = errors.New("replacement transaction underpriced")
	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{To: &to}, time.Second)
	require.NoError(t, err)
	require.Error(t, outcome.Err)
	require.Zero(t, outcome.Nonce)

	fx.client.SendErr = nil
	outcome, err = fx.engine.Submit(ctx, txfactory.Intent{To: &to}, time.Second)
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)
	require.Zero(t, outcome.Nonce, "the nonce is re-derived from the node")
}

func TestSubmitConcurrentSameSender(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t, 10*time.Millisecond)
	to := getRandomAddr(t)

	const n = 10
	outcomes := make([]Outcome, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := fx.engine.Submit(ctx, txfactory.Intent{To: &to}, 5*time.Second)
			assert.NoError(t, err)
			outcomes[i] = outcome
		}()
	}
	wg.Wait()

	seen := map[uint64]bool{}
	for _, o := range outcomes {
		require.True(t, o.Succeeded, "nonce collision: %v", o.Err)
		require.False(t, seen[o.Nonce])
		seen[o.Nonce] = true
	}
	require.Len(t, fx.client.Sent(), n)
}

func TestSubmitParentCancelled(t *testing.T) {
	fx := newEngineFixture(t, 10*time.Millisecond)
	fx.client.NeverMine = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	outcome, err := fx.engine.Submit(ctx, txfactory.Intent{Payload: txfactory.Bytecode(stopRuntime)}, 10*time.Second)
	require.NoError(t, err)
	require.ErrorIs(t, outcome.Err, context.Canceled)
	require.False(t, outcome.Succeeded)
	var netErr *loadtesttypes.NetworkError
	require.ErrorAs(t, outcome.Err, &netErr)
	require.Equal(t, "eth_getTransactionReceipt", netErr.Op)
	require.Equal(t, loadtesttypes.FailureNetwork, outcome.Record(fx.signer.Address()).Failure)
}

// commitEvery mines a block on sim at the given interval until the test ends.
func commitEvery(t *testing.T, sim *simulated.Backend, interval time.Duration) {
	t.Helper()
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				sim.Commit()
			}
		}
	}()
	t.Cleanup(func() {
		close(done)
		<-stopped
	})
}

func TestSubmitSimulated(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	balance, _ := new(big.Int).SetString("1000000000000000000000", 10)
	sim := simulated.NewBackend(gethtypes.GenesisAlloc{addr: {Balance: balance}})
	t.Cleanup(func() { _ = sim.Close() })
	commitEvery(t, sim, 20*time.Millisecond)

	ctx := context.Background()
	chainID, err := sim.Client().ChainID(ctx)
	require.NoError(t, err)

	greeter, err := contracts.LoadArtifact("../contracts/testdata/greeter.json")
	require.NoError(t, err)

	signer := wallet.NewSigner(key, chainID)
	conn := wallet.NewConnection(zap.NewNop(), sim.Client(), 10*time.Millisecond)
	engine := NewEngine(zap.NewNop(), conn, signer, 0, nil)

	deployed, err := engine.Submit(ctx, txfactory.Intent{Payload: greeter.DeployPayload(), GasLimit: 1_000_000}, 10*time.Second)
	require.NoError(t, err)
	require.True(t, deployed.Succeeded, "deploy: %v", deployed.Err)
	contractAddr := deployed.Receipt.ContractAddress
	require.Equal(t, crypto.CreateAddress(addr, 0), contractAddr)

	call, err := greeter.CallPayload("setGreeting", "Ada Lovelace")
	require.NoError(t, err)
	called, err := engine.Submit(ctx, txfactory.Intent{To: &contractAddr, Payload: call}, 10*time.Second)
	require.NoError(t, err)
	require.True(t, called.Succeeded, "call: %v", called.Err)
	require.Equal(t, uint64(1), called.Nonce)

	reverter, err := engine.Submit(ctx, txfactory.Intent{Payload: txfactory.Bytecode(revertRuntime), GasLimit: 1_000_000}, 10*time.Second)
	require.NoError(t, err)
	require.True(t, reverter.Succeeded, "deploy reverter: %v", reverter.Err)
	reverterAddr := reverter.Receipt.ContractAddress

	reverted, err := engine.Submit(ctx, txfactory.Intent{To: &reverterAddr, Payload: call}, 10*time.Second)
	require.NoError(t, err)
	require.False(t, reverted.Succeeded)
	var revertErr *loadtesttypes.OnChainRevertError
	require.ErrorAs(t, reverted.Err, &revertErr)
	require.Equal(t, gethtypes.ReceiptStatusFailed, reverted.Receipt.Status)
	require.Equal(t, uint64(3), reverted.Nonce)
}
