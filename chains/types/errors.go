package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FailureKind classifies why an attempt did not succeed.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureConfiguration FailureKind = "configuration"
	FailureNetwork       FailureKind = "network"
	FailureBroadcast     FailureKind = "broadcast"
	FailureSigning       FailureKind = "signing"
	FailureTimeout       FailureKind = "timeout"
	FailureRevert        FailureKind = "revert"
	FailureUnknown       FailureKind = "unknown"
)

// ConfigurationError reports an unresolvable endpoint or missing key material.
// It is fatal and never retried.
type ConfigurationError struct {
	Field string
	Err   error
}

func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NetworkError is a transport level failure talking to the node, after the
// transport's own retry budget was spent.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BroadcastError is returned when the node rejects a signed transaction
// (bad nonce, underpriced, insufficient funds, malformed data).
type BroadcastError struct {
	TxHash common.Hash
	Err    error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast of %s rejected: %v", e.TxHash.Hex(), e.Err)
}

func (e *BroadcastError) Unwrap() error { return e.Err }

// SigningError reports malformed key material or an unsignable descriptor.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing error: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// ConfirmationTimeoutError means no receipt was observed before the deadline.
// The transaction may still be included later.
type ConfirmationTimeoutError struct {
	TxHash  common.Hash
	Timeout time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("no receipt for %s within %s", e.TxHash.Hex(), e.Timeout)
}

// OnChainRevertError means the transaction was mined with a failed status.
type OnChainRevertError struct {
	TxHash      common.Hash
	BlockNumber uint64
}

func (e *OnChainRevertError) Error() string {
	return fmt.Sprintf("transaction %s reverted in block %d", e.TxHash.Hex(), e.BlockNumber)
}

// ClassifyFailure maps an error from the submission path onto a FailureKind.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	var (
		cfgErr     *ConfigurationError
		netErr     *NetworkError
		bcastErr   *BroadcastError
		signErr    *SigningError
		timeoutErr *ConfirmationTimeoutError
		revertErr  *OnChainRevertError
	)
	switch {
	case errors.As(err, &revertErr):
		return FailureRevert
	case errors.As(err, &timeoutErr):
		return FailureTimeout
	case errors.As(err, &bcastErr):
		return FailureBroadcast
	case errors.As(err, &signErr):
		return FailureSigning
	case errors.As(err, &netErr):
		return FailureNetwork
	case errors.As(err, &cfgErr):
		return FailureConfiguration
	default:
		return FailureUnknown
	}
}
