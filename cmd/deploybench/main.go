package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skip-mev/deploybench/chains"
	"github.com/skip-mev/deploybench/chains/ethereum/endpoint"
	logging "github.com/skip-mev/deploybench/chains/log"
	"github.com/skip-mev/deploybench/chains/types"
	"github.com/skip-mev/deploybench/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deploybench",
		Short:         "Deploy contracts and call them against an EVM JSON-RPC node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newNetworksCmd())
	return root
}

func newRunCmd() *cobra.Command {
	args := config.Config{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a deploy benchmark from a YAML run spec",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVar(&args.ConfigPath, "config", "", "Path to run spec configuration file")
	cmd.Flags().StringVar(&args.EnvFile, "env-file", config.DefaultEnvFile, "Dotenv file holding key material")
	cmd.Flags().StringVar(&args.MetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().IntVar(&args.Contracts, "contracts", -1, "Override num_contracts")
	cmd.Flags().IntVar(&args.Calls, "calls", -1, "Override calls_per_contract")
	return cmd
}

func newNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the built-in network names",
		Run: func(cmd *cobra.Command, _ []string) {
			resolver := endpoint.NewResolver(nil)
			for _, name := range resolver.Networks() {
				url, _ := resolver.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", name, url)
			}
		},
	}
}

func run(ctx context.Context, args config.Config) error {
	envErr := config.LoadDotEnv(args.EnvFile)
	env := config.ParseEnv()

	logger, logErr := logging.DefaultLogger(env.DevLogging)
	defer logging.CloseLogFile()
	if logErr != nil {
		logger.Warn("logging to stdout only", zap.Error(logErr))
	}
	if envErr != nil {
		logger.Warn("failed to load env file", zap.String("path", args.EnvFile), zap.Error(envErr))
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = config.WithEnv(ctx, env)
	ctx = logging.WithLogger(ctx, logger)

	fail := func(err error, message string) error {
		err = errors.Wrap(err, message)
		saveConfigError(err, logger)
		logger.Error("Failure", zap.Error(err))
		return err
	}

	spec, err := config.LoadRunSpec(args.ConfigPath, env, args)
	if err != nil {
		return fail(err, "failed to load config file")
	}
	if err := spec.Validate(); err != nil {
		return fail(err, "failed to validate config file")
	}
	logger.Info("loaded run spec", zap.Stringer("spec", spec))

	test, err := chains.NewLoadTest(ctx, logger, spec, chains.Options{MetricsAddr: args.MetricsAddr})
	if err != nil {
		return fail(err, "failed to create deploy run")
	}

	if _, err = test.Run(ctx, logger); err != nil {
		logger.Error("failed to run deploy run", zap.Error(err))
		return err
	}
	return nil
}

func saveConfigError(err error, logger *zap.Logger) {
	out := types.RunResult{
		Error: err.Error(),
	}

	if errSave := chains.SaveResults(out, logger); errSave != nil {
		logger.Error("failed to save results", zap.Error(errSave))
	}
}
