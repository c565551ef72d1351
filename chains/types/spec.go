package types

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	// DefaultGasLimit is used for method calls when the run config sets no limit.
	DefaultGasLimit uint64 = 100_000
	// DefaultDeployGasLimit is used for contract creation when the run config sets no limit.
	DefaultDeployGasLimit uint64 = 1_000_000
	DefaultTxTimeout             = 120 * time.Second
	DefaultPollInterval          = 500 * time.Millisecond

	DefaultMaxConns       = 20
	DefaultRetries        = 1
	DefaultRetryDelay     = 200 * time.Millisecond
	DefaultRequestTimeout = 30 * time.Second
)

// RunSpec is the process configuration of a deploy run. It is loaded once at
// startup and treated as immutable afterwards.
type RunSpec struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`

	// Network is a symbolic network name. When it is registered it wins over RPCURL.
	Network  string            `yaml:"network" json:"network"`
	RPCURL   string            `yaml:"rpc_url" json:"rpc_url"`
	Networks map[string]string `yaml:"networks,omitempty" json:"networks,omitempty"`

	// ChainID is optional. An empty chain id means legacy, unprotected signing.
	ChainID     string   `yaml:"chain_id" json:"chain_id"`
	PrivateKeys []string `yaml:"private_keys" json:"-"`

	NumContracts     int    `yaml:"num_contracts" json:"num_contracts"`
	CallsPerContract int    `yaml:"calls_per_contract" json:"calls_per_contract"`
	Artifact         string `yaml:"artifact" json:"artifact"`
	Method           string `yaml:"method" json:"method"`

	TxTimeout    time.Duration `yaml:"tx_timeout,omitempty" json:"tx_timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`

	TxOpts TxOpts   `yaml:"tx_opts" json:"tx_opts"`
	HTTP   HTTPOpts `yaml:"http" json:"http"`
}

// TxOpts are static transaction values. Zero values are filled from the node
// (gas price) or from defaults (gas limits, value).
type TxOpts struct {
	GasLimit       uint64   `yaml:"gas_limit" json:"gas_limit"`
	DeployGasLimit uint64   `yaml:"deploy_gas_limit" json:"deploy_gas_limit"`
	GasPrice       *big.Int `yaml:"gas_price" json:"gas_price"`
	Value          *big.Int `yaml:"value" json:"value"`
}

// HTTPOpts configure the JSON-RPC transport.
type HTTPOpts struct {
	MaxConns       int           `yaml:"max_conns" json:"max_conns"`
	Retries        int           `yaml:"retries" json:"retries"`
	RetryDelay     time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// ApplyDefaults fills every unset optional field.
func (s *RunSpec) ApplyDefaults() {
	if s.TxTimeout <= 0 {
		s.TxTimeout = DefaultTxTimeout
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.TxOpts.GasLimit == 0 {
		s.TxOpts.GasLimit = DefaultGasLimit
	}
	if s.TxOpts.DeployGasLimit == 0 {
		s.TxOpts.DeployGasLimit = DefaultDeployGasLimit
	}
	if s.HTTP.MaxConns <= 0 {
		s.HTTP.MaxConns = DefaultMaxConns
	}
	if s.HTTP.Retries < 0 {
		s.HTTP.Retries = 0
	} else if s.HTTP.Retries == 0 {
		s.HTTP.Retries = DefaultRetries
	}
	if s.HTTP.RetryDelay <= 0 {
		s.HTTP.RetryDelay = DefaultRetryDelay
	}
	if s.HTTP.RequestTimeout <= 0 {
		s.HTTP.RequestTimeout = DefaultRequestTimeout
	}
}

// ParseChainID returns nil when no chain id is configured. Both decimal and
// 0x-prefixed hex are accepted.
func (s RunSpec) ParseChainID() (*big.Int, error) {
	raw := strings.TrimSpace(s.ChainID)
	if raw == "" {
		return nil, nil
	}
	chainID, ok := new(big.Int).SetString(raw, 0)
	if !ok || chainID.Sign() <= 0 {
		return nil, NewConfigurationError("chain_id", "failed to parse chain id: %q", s.ChainID)
	}
	return chainID, nil
}

// Validate validates the RunSpec and returns a *ConfigurationError if it's invalid
func (s *RunSpec) Validate() error {
	if s.Network == "" && s.RPCURL == "" {
		return NewConfigurationError("network", "either network or rpc_url must be specified")
	}

	if len(s.PrivateKeys) == 0 {
		return NewConfigurationError("private_keys", "at least one private key must be provided")
	}
	for i, k := range s.PrivateKeys {
		if strings.TrimSpace(k) == "" {
			return NewConfigurationError("private_keys", "private key at index %d is empty", i)
		}
	}

	if _, err := s.ParseChainID(); err != nil {
		return err
	}

	if s.NumContracts <= 0 {
		return NewConfigurationError("num_contracts", "must be greater than zero")
	}
	if s.CallsPerContract < 0 {
		return NewConfigurationError("calls_per_contract", "must not be negative")
	}

	if s.Artifact == "" {
		return NewConfigurationError("artifact", "contract artifact path must be specified")
	}
	if s.CallsPerContract > 0 && s.Method == "" {
		return NewConfigurationError("method", "method must be specified when calls_per_contract > 0")
	}

	if s.TxOpts.GasPrice != nil && s.TxOpts.GasPrice.Sign() < 0 {
		return NewConfigurationError("tx_opts.gas_price", "must not be negative")
	}
	if s.TxOpts.Value != nil && s.TxOpts.Value.Sign() < 0 {
		return NewConfigurationError("tx_opts.value", "must not be negative")
	}

	return nil
}

// String never includes key material.
func (s RunSpec) String() string {
	return fmt.Sprintf("RunSpec{name=%q network=%q rpc_url=%q chain_id=%q senders=%d contracts=%d calls=%d}",
		s.Name, s.Network, s.RPCURL, s.ChainID, len(s.PrivateKeys), s.NumContracts, s.CallsPerContract)
}
