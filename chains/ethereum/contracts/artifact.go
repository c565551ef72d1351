// Package contracts loads compiled contract artifacts and turns them into
// transaction payloads.
package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/skip-mev/deploybench/chains/ethereum/txfactory"
	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// artifactJSON is the subset of a hardhat or truffle artifact that is read.
type artifactJSON struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
	CallTemplate string          `json:"callTemplate"`
}

// Artifact is a compiled contract: creation code, its ABI and an optional
// pre-encoded call data template.
type Artifact struct {
	Name         string
	ABI          abi.ABI
	Bytecode     txfactory.Bytecode
	CallTemplate string
}

// LoadArtifact reads a JSON artifact from path.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, loadtesttypes.NewConfigurationError("artifact", "failed to read %s: %w", path, err)
	}
	return ParseArtifact(raw)
}

// ParseArtifact decodes an artifact. Bytecode is required, the ABI is
// optional when a call template is present.
func ParseArtifact(raw []byte) (*Artifact, error) {
	var a artifactJSON
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, loadtesttypes.NewConfigurationError("artifact", "failed to decode artifact: %w", err)
	}

	if a.Bytecode == "" || a.Bytecode == "0x" {
		return nil, loadtesttypes.NewConfigurationError("artifact", "artifact has no bytecode")
	}
	code, err := txfactory.BytecodeFromHex(a.Bytecode)
	if err != nil {
		return nil, loadtesttypes.NewConfigurationError("artifact", "%w", err)
	}

	artifact := &Artifact{
		Name:         a.ContractName,
		Bytecode:     code,
		CallTemplate: a.CallTemplate,
	}
	if len(bytes.TrimSpace(a.ABI)) > 0 && !bytes.Equal(bytes.TrimSpace(a.ABI), []byte("null")) {
		parsed, err := abi.JSON(bytes.NewReader(a.ABI))
		if err != nil {
			return nil, loadtesttypes.NewConfigurationError("artifact", "failed to parse abi: %w", err)
		}
		artifact.ABI = parsed
	}
	return artifact, nil
}

// DeployPayload returns the creation code. Constructors taking arguments are
// not supported.
func (a *Artifact) DeployPayload() txfactory.PayloadProvider {
	return a.Bytecode
}

// HasMethod reports whether the ABI declares method.
func (a *Artifact) HasMethod(method string) bool {
	_, ok := a.ABI.Methods[method]
	return ok
}

// CallPayload encodes a single string argument call to method. The ABI is
// preferred and the call template is the fallback.
func (a *Artifact) CallPayload(method string, arg string) (txfactory.PayloadProvider, error) {
	switch {
	case a.HasMethod(method):
		return txfactory.ABICall{ABI: a.ABI, Method: method, Args: []any{arg}}, nil
	case a.CallTemplate != "":
		return txfactory.TemplateCall{Template: a.CallTemplate, Arg: []byte(arg)}, nil
	case method == "":
		return nil, loadtesttypes.NewConfigurationError("method", "no method given")
	default:
		return nil, loadtesttypes.NewConfigurationError("method", "%q: %w", method, ErrUnknownMethod)
	}
}

// ErrUnknownMethod is returned when neither the ABI nor a call template can encode a call.
var ErrUnknownMethod = errors.New("method not in abi and artifact has no call template")
