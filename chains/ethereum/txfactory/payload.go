package txfactory

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// TemplateSlot is the single substitution slot of a call data template.
const TemplateSlot = "{arg}"

// PayloadProvider produces the data field of a transaction.
type PayloadProvider interface {
	Payload() ([]byte, error)
}

// Bytecode is raw creation code or pre-encoded call data, sent as is.
type Bytecode []byte

// BytecodeFromHex decodes hex with or without a 0x prefix.
func BytecodeFromHex(s string) (Bytecode, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	bz, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode hex: %w", err)
	}
	return bz, nil
}

func (b Bytecode) Payload() ([]byte, error) {
	return common.CopyBytes(b), nil
}

// ABICall encodes a method call from a parsed ABI.
type ABICall struct {
	ABI    abi.ABI
	Method string
	Args   []any
}

func (c ABICall) Payload() ([]byte, error) {
	data, err := c.ABI.Pack(c.Method, c.Args...)
	if err != nil {
		return nil, &loadtesttypes.SigningError{Err: fmt.Errorf("packing %s: %w", c.Method, err)}
	}
	return data, nil
}

// TemplateCall fills a hex call data template that has exactly one
// TemplateSlot with the hex of Arg, right padded to a 32 byte word.
type TemplateCall struct {
	Template string
	Arg      []byte
}

func (c TemplateCall) Payload() ([]byte, error) {
	tmpl := strings.TrimPrefix(strings.TrimSpace(c.Template), "0x")
	if n := strings.Count(tmpl, TemplateSlot); n != 1 {
		return nil, &loadtesttypes.SigningError{Err: fmt.Errorf("call template must contain exactly one %s slot, found %d", TemplateSlot, n)}
	}

	padded := common.RightPadBytes(c.Arg, (len(c.Arg)+31)/32*32)
	filled := strings.Replace(tmpl, TemplateSlot, hex.EncodeToString(padded), 1)

	data, err := hex.DecodeString(filled)
	if err != nil {
		return nil, &loadtesttypes.SigningError{Err: fmt.Errorf("invalid call template: %w", err)}
	}
	return data, nil
}
