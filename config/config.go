package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

type Env struct {
	DevLogging bool
	// PrivateKey is used when the run spec lists no keys. Never logged.
	PrivateKey string
}

type Config struct {
	ConfigPath  string
	EnvFile     string
	MetricsAddr string
	// Contracts and Calls override the run spec when non-negative.
	Contracts int
	Calls     int
}

const (
	// EnvDevLogging enabled verbose & console logging
	EnvDevLogging = "DEV_LOGGING"

	// EnvPrivateKey holds a hex encoded sender key
	EnvPrivateKey = "DEPLOYBENCH_PRIVATE_KEY"

	DefaultEnvFile = ".env"
)

type envContextKey struct{}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func ParseEnv() Env {
	return Env{
		DevLogging: boolEnv(EnvDevLogging),
		PrivateKey: strings.TrimSpace(os.Getenv(EnvPrivateKey)),
	}
}

func WithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envContextKey{}, env)
}

func EnvFromContext(ctx context.Context) Env {
	if env, ok := ctx.Value(envContextKey{}).(Env); ok {
		return env
	}

	return Env{}
}

// LoadRunSpec reads the YAML run spec at path and applies env and flag
// overrides. The result is defaulted but not validated.
func LoadRunSpec(path string, env Env, cfg Config) (loadtesttypes.RunSpec, error) {
	var spec loadtesttypes.RunSpec
	if path == "" {
		return spec, loadtesttypes.NewConfigurationError("config", "config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return spec, loadtesttypes.NewConfigurationError("config", "failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return spec, loadtesttypes.NewConfigurationError("config", "failed to parse config file: %w", err)
	}

	if len(spec.PrivateKeys) == 0 && env.PrivateKey != "" {
		spec.PrivateKeys = []string{env.PrivateKey}
	}
	if cfg.Contracts >= 0 {
		spec.NumContracts = cfg.Contracts
	}
	if cfg.Calls >= 0 {
		spec.CallsPerContract = cfg.Calls
	}

	spec.ApplyDefaults()
	return spec, nil
}

func boolEnv(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
