package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/skip-mev/deploybench/chains/ethereum/contracts"
	"github.com/skip-mev/deploybench/chains/ethereum/endpoint"
	"github.com/skip-mev/deploybench/chains/ethereum/metrics"
	"github.com/skip-mev/deploybench/chains/ethereum/submitter"
	"github.com/skip-mev/deploybench/chains/ethereum/txfactory"
	"github.com/skip-mev/deploybench/chains/ethereum/wallet"
	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// ArgFunc produces the argument of each method call.
type ArgFunc func() string

type Runner struct {
	logger *zap.Logger

	spec     loadtesttypes.RunSpec
	artifact *contracts.Artifact
	engines  []*submitter.Engine
	argFunc  ArgFunc
}

// NewRunner resolves the endpoint from spec, dials it and creates one engine
// per configured private key.
func NewRunner(ctx context.Context, logger *zap.Logger, spec loadtesttypes.RunSpec, m *metrics.Metrics) (*Runner, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	resolver := endpoint.NewResolver(spec.Networks)
	rpcURL, err := resolver.Resolve(spec.Network, spec.RPCURL)
	if err != nil {
		return nil, err
	}

	httpClient := endpoint.NewHTTPClient(logger, endpoint.Options{
		MaxConns:       spec.HTTP.MaxConns,
		Retries:        spec.HTTP.Retries,
		RetryDelay:     spec.HTTP.RetryDelay,
		RequestTimeout: spec.HTTP.RequestTimeout,
	})
	client, err := wallet.Dial(ctx, rpcURL, httpClient)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to node", zap.String("network", spec.Network), zap.String("rpc_url", rpcURL))

	return NewRunnerWithClient(logger, spec, client, m)
}

// NewRunnerWithClient creates a runner on an already connected client.
func NewRunnerWithClient(logger *zap.Logger, spec loadtesttypes.RunSpec, client wallet.Client, m *metrics.Metrics) (*Runner, error) {
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	chainID, err := spec.ParseChainID()
	if err != nil {
		return nil, err
	}

	artifact, err := contracts.LoadArtifact(spec.Artifact)
	if err != nil {
		return nil, err
	}
	if len(artifact.ABI.Constructor.Inputs) > 0 {
		return nil, loadtesttypes.NewConfigurationError("artifact", "constructor of %s takes arguments", artifact.Name)
	}
	if spec.CallsPerContract > 0 {
		// fail fast on a method the artifact cannot encode.
		payload, err := artifact.CallPayload(spec.Method, "")
		if err != nil {
			return nil, err
		}
		if _, err := payload.Payload(); err != nil {
			return nil, loadtesttypes.NewConfigurationError("method", "%q cannot take a single string argument: %w", spec.Method, err)
		}
	}

	conn := wallet.NewConnection(logger, client, spec.PollInterval)
	engines := make([]*submitter.Engine, 0, len(spec.PrivateKeys))
	seen := make(map[common.Address]bool, len(spec.PrivateKeys))
	for i, key := range spec.PrivateKeys {
		signer, err := wallet.NewSignerFromHex(key, chainID)
		if err != nil {
			return nil, loadtesttypes.NewConfigurationError("private_keys", "key at index %d: %w", i, err)
		}
		if seen[signer.Address()] {
			return nil, loadtesttypes.NewConfigurationError("private_keys", "duplicate key for %s", signer.FormattedAddress())
		}
		seen[signer.Address()] = true
		engines = append(engines, submitter.NewEngine(logger, conn, signer, spec.TxOpts.GasLimit, m))
	}

	return &Runner{
		logger:   logger.With(zap.String("module", "runner")),
		spec:     spec,
		artifact: artifact,
		engines:  engines,
		argFunc:  gofakeit.Name,
	}, nil
}

// SetArgFunc replaces the random call argument generator.
func (r *Runner) SetArgFunc(f ArgFunc) {
	r.argFunc = f
}

func (r *Runner) PrintResults(result loadtesttypes.RunResult) {
	metrics.PrintResults(os.Stdout, result)
}

// Run deploys the configured number of contracts and calls the method on
// each of them. Contracts are spread round-robin over the senders. A sender
// works through its contracts strictly in order while different senders
// run concurrently. A failed deployment skips the calls on that contract.
func (r *Runner) Run(ctx context.Context) (loadtesttypes.RunResult, error) {
	startTime := time.Now()

	plan := make([][]int, len(r.engines))
	for i := range r.spec.NumContracts {
		sender := i % len(r.engines)
		plan[sender] = append(plan[sender], i)
	}

	r.logger.Info("starting deploy run",
		zap.Int("num_contracts", r.spec.NumContracts),
		zap.Int("calls_per_contract", r.spec.CallsPerContract),
		zap.Int("num_senders", len(r.engines)))

	var (
		wg        sync.WaitGroup
		records   = make([][]loadtesttypes.AttemptRecord, len(r.engines))
		deployed  = make([]string, r.spec.NumContracts)
		errsMu    sync.Mutex
		senderErr []error
	)
	for s, engine := range r.engines {
		if len(plan[s]) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := r.runSender(ctx, engine, plan[s], deployed)
			records[s] = recs
			if err != nil {
				errsMu.Lock()
				senderErr = append(senderErr, fmt.Errorf("sender %s: %w", engine.Address().Hex(), err))
				errsMu.Unlock()
			}
		}()
	}
	wg.Wait()

	var all []loadtesttypes.AttemptRecord
	for _, recs := range records {
		all = append(all, recs...)
	}
	contractAddrs := make([]string, 0, len(deployed))
	for _, addr := range deployed {
		if addr != "" {
			contractAddrs = append(contractAddrs, addr)
		}
	}

	result := metrics.ProcessResults(all, contractAddrs, startTime, time.Now())
	err := errors.Join(senderErr...)
	if err != nil {
		result.Error = err.Error()
	}
	r.logger.Info("deploy run finished",
		zap.Int("total_transactions", result.Overall.TotalTransactions),
		zap.Int("successful", result.Overall.SuccessfulTransactions),
		zap.Int("failed", result.Overall.FailedTransactions),
		zap.Duration("runtime", result.Overall.Runtime))
	return result, err
}

// runSender deploys and exercises the contracts at indexes for one sender.
// Only a signing failure or context cancellation ends it early.
func (r *Runner) runSender(ctx context.Context, engine *submitter.Engine, indexes []int, deployed []string) ([]loadtesttypes.AttemptRecord, error) {
	logger := r.logger.With(zap.String("sender", engine.Address().Hex()))
	records := make([]loadtesttypes.AttemptRecord, 0, len(indexes)*(1+r.spec.CallsPerContract))

	submit := func(intent txfactory.Intent) (submitter.Outcome, error) {
		if err := ctx.Err(); err != nil {
			return submitter.Outcome{}, err
		}
		outcome, err := engine.Submit(ctx, intent, r.spec.TxTimeout)
		records = append(records, outcome.Record(engine.Address()))
		return outcome, err
	}

	for _, idx := range indexes {
		outcome, err := submit(txfactory.Intent{
			Payload:  r.artifact.DeployPayload(),
			GasLimit: r.spec.TxOpts.DeployGasLimit,
			GasPrice: r.spec.TxOpts.GasPrice,
		})
		if err != nil {
			return records, err
		}
		if !outcome.Succeeded {
			logger.Warn("deployment failed, skipping calls", zap.Int("contract", idx), zap.Error(outcome.Err))
			continue
		}
		contractAddr := outcome.Receipt.ContractAddress
		deployed[idx] = contractAddr.Hex()
		logger.Info("contract deployed", zap.Int("contract", idx), zap.String("address", contractAddr.Hex()))

		for range r.spec.CallsPerContract {
			arg := r.argFunc()
			payload, err := r.artifact.CallPayload(r.spec.Method, arg)
			if err != nil {
				return records, err
			}
			logger.Debug("calling contract",
				zap.String("address", contractAddr.Hex()),
				zap.String("method", r.spec.Method),
				zap.String("arg", arg))
			if _, err := submit(txfactory.Intent{
				To:       &contractAddr,
				Payload:  payload,
				Value:    r.spec.TxOpts.Value,
				GasPrice: r.spec.TxOpts.GasPrice,
			}); err != nil {
				return records, err
			}
		}
	}
	return records, nil
}
