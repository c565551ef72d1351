package chains

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/skip-mev/deploybench/chains/ethereum/metrics"
	ethrunner "github.com/skip-mev/deploybench/chains/ethereum/runner"
	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// ResultsDir is where run results and logs are written.
const ResultsDir = "/tmp/deploybench"

// Runner defines the interface of a deploy run driver
type Runner interface {
	Run(ctx context.Context) (loadtesttypes.RunResult, error)
	PrintResults(result loadtesttypes.RunResult)
}

// Options configure a LoadTest beyond its RunSpec.
type Options struct {
	// MetricsAddr serves prometheus metrics when set.
	MetricsAddr string
	// Registry defaults to prometheus.DefaultRegisterer.
	Registry *prometheus.Registry
}

// LoadTest runs one deploy run and persists its result.
type LoadTest struct {
	runner        Runner
	metricsServer *http.Server
	resultsDir    string
}

// NewLoadTest creates a new deploy run from a run spec
func NewLoadTest(ctx context.Context, logger *zap.Logger, spec loadtesttypes.RunSpec, opts Options) (*LoadTest, error) {
	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}

	runner, err := ethrunner.NewRunner(ctx, logger, spec, metrics.NewMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create ethereum runner: %w", err)
	}

	lt := &LoadTest{runner: runner, resultsDir: ResultsDir}
	if opts.MetricsAddr != "" {
		lt.metricsServer = startPrometheusServer(opts.MetricsAddr, reg, gatherer, logger)
	}
	return lt, nil
}

// Run executes the deploy run and returns the results
func (lt *LoadTest) Run(ctx context.Context, logger *zap.Logger) (loadtesttypes.RunResult, error) {
	if lt.metricsServer != nil {
		defer func() { _ = lt.metricsServer.Shutdown(context.Background()) }()
	}

	logger.Info("starting new deploy run")
	results, err := lt.runner.Run(ctx)
	if err != nil {
		results.Error = err.Error()
	}
	logger.Debug("runner results", zap.Any("overall", results.Overall))

	lt.runner.PrintResults(results)

	logger.Info("deploy run completed, saving results")

	if saveErr := saveResults(lt.resultsDir, results, logger); saveErr != nil {
		return results, fmt.Errorf("failed to save results: %w", saveErr)
	}

	return results, err
}

// SaveResults saves the run results to /tmp/deploybench/results.json
func SaveResults(results loadtesttypes.RunResult, logger *zap.Logger) error {
	return saveResults(ResultsDir, results, logger)
}

func saveResults(dir string, results loadtesttypes.RunResult, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create results directory",
			zap.String("dir", dir),
			zap.Error(err))
		return err
	}

	jsonData, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		logger.Error("failed to marshal results to JSON",
			zap.Error(err))
		return err
	}

	filePath := filepath.Join(dir, "results.json")
	if err := os.WriteFile(filePath, jsonData, 0o644); err != nil {
		logger.Error("failed to write results to file",
			zap.String("path", filePath),
			zap.Error(err))
		return err
	}

	logger.Debug("successfully saved run results",
		zap.String("path", filePath))

	return nil
}
