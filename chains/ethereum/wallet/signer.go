package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// Signer handles key management and signing for Ethereum transactions.
// The key is read-only after construction.
type Signer struct {
	privKey *ecdsa.PrivateKey
	chainID *big.Int
	address common.Address
}

// NewSigner creates a new Ethereum signer with the given private key and chain ID.
// A nil chainID selects legacy (pre-EIP155) signing.
func NewSigner(privKey *ecdsa.PrivateKey, chainID *big.Int) *Signer {
	var id *big.Int
	if chainID != nil {
		id = new(big.Int).Set(chainID)
	}
	return &Signer{
		privKey: privKey,
		chainID: id,
		address: crypto.PubkeyToAddress(privKey.PublicKey),
	}
}

// NewSignerFromHex parses a hex encoded private key, with or without 0x prefix.
func NewSignerFromHex(hexKey string, chainID *big.Int) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, &loadtesttypes.SigningError{Err: errors.New("empty private key")}
	}
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		// the parse error never echoes the key.
		return nil, &loadtesttypes.SigningError{Err: fmt.Errorf("invalid private key: %w", err)}
	}
	return NewSigner(pk, chainID), nil
}

// Address returns the checksummed Ethereum address derived from the private key
func (s *Signer) Address() common.Address {
	return s.address
}

// FormattedAddress returns the hex-encoded Ethereum address with 0x prefix
func (s *Signer) FormattedAddress() string {
	return s.address.Hex()
}

// ChainID returns the chain ID used for signing, nil for legacy signing.
func (s *Signer) ChainID() *big.Int {
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// TxSigner returns the go-ethereum signer matching the configured chain ID.
func (s *Signer) TxSigner() types.Signer {
	return txSigner(s.chainID)
}

// SignTx signs an Ethereum transaction with the private key. Signing is
// purely local and only fails on malformed input.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	if tx == nil {
		return nil, &loadtesttypes.SigningError{Err: errors.New("nil transaction")}
	}
	signed, err := types.SignTx(tx, s.TxSigner(), s.privKey)
	if err != nil {
		return nil, &loadtesttypes.SigningError{Err: err}
	}
	return signed, nil
}

// String never includes the key.
func (s *Signer) String() string {
	return fmt.Sprintf("Signer{%s}", s.address.Hex())
}

// Sender recovers the address that signed tx.
func Sender(tx *types.Transaction, chainID *big.Int) (common.Address, error) {
	return types.Sender(txSigner(chainID), tx)
}

func txSigner(chainID *big.Int) types.Signer {
	if chainID == nil {
		return types.HomesteadSigner{}
	}
	return types.NewEIP155Signer(chainID)
}
