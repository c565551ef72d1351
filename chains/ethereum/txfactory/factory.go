package txfactory

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// DefaultGasLimit is the conservative limit used when an intent sets none.
const DefaultGasLimit uint64 = 100_000

// ChainQuerier supplies the on-chain defaults. *wallet.Connection implements it.
type ChainQuerier interface {
	NextNonce(ctx context.Context, addr common.Address) (uint64, error)
	CurrentGasPrice(ctx context.Context) (*big.Int, error)
}

// Identity is the sender side of a transaction. *wallet.Signer implements it.
type Identity interface {
	Address() common.Address
	ChainID() *big.Int
}

// Intent is a partial transaction. Zero values are filled by TxFactory.Build.
// A nil To means contract creation.
type Intent struct {
	To       *common.Address
	Payload  PayloadProvider
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
}

// Descriptor is a fully populated, unsigned transaction.
type Descriptor struct {
	From     common.Address
	To       *common.Address
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64
	// ChainID is nil for legacy, unprotected signing.
	ChainID *big.Int
	Data    []byte
}

// IsContractCreation reports whether the descriptor has no recipient.
func (d Descriptor) IsContractCreation() bool {
	return d.To == nil
}

// Transaction converts the descriptor into an unsigned legacy transaction.
// The chain id is applied by the signer.
func (d Descriptor) Transaction() *types.Transaction {
	if d.To == nil {
		return types.NewContractCreation(d.Nonce, d.Value, d.GasLimit, d.GasPrice, d.Data)
	}
	return types.NewTransaction(d.Nonce, *d.To, d.Value, d.GasLimit, d.GasPrice, d.Data)
}

type TxFactory struct {
	logger          *zap.Logger
	conn            ChainQuerier
	identity        Identity
	defaultGasLimit uint64
}

// NewTxFactory creates a factory for the given sender. A zero defaultGasLimit
// selects DefaultGasLimit.
func NewTxFactory(logger *zap.Logger, conn ChainQuerier, identity Identity, defaultGasLimit uint64) *TxFactory {
	if defaultGasLimit == 0 {
		defaultGasLimit = DefaultGasLimit
	}
	return &TxFactory{
		logger:          logger.With(zap.String("module", "tx_factory")),
		conn:            conn,
		identity:        identity,
		defaultGasLimit: defaultGasLimit,
	}
}

// Build fills in every field the intent leaves out. The nonce is fetched from
// the node on every call and never cached, so sequential builds observe the
// nonce bumped by previous broadcasts.
func (f *TxFactory) Build(ctx context.Context, intent Intent) (Descriptor, error) {
	var data []byte
	if intent.Payload != nil {
		var err error
		if data, err = intent.Payload.Payload(); err != nil {
			return Descriptor{}, err
		}
	}

	d := Descriptor{
		From:    f.identity.Address(),
		ChainID: f.identity.ChainID(),
		Data:    data,
	}

	if intent.GasPrice != nil {
		d.GasPrice = new(big.Int).Set(intent.GasPrice)
	} else {
		price, err := f.conn.CurrentGasPrice(ctx)
		if err != nil {
			return Descriptor{}, err
		}
		d.GasPrice = price
	}

	d.GasLimit = intent.GasLimit
	if d.GasLimit == 0 {
		d.GasLimit = f.defaultGasLimit
	}

	nonce, err := f.conn.NextNonce(ctx, d.From)
	if err != nil {
		return Descriptor{}, err
	}
	d.Nonce = nonce

	d.Value = new(big.Int)
	if intent.Value != nil {
		d.Value.Set(intent.Value)
	}

	if intent.To != nil {
		to := *intent.To
		d.To = &to
	}

	f.logger.Debug("built transaction",
		zap.String("from", d.From.Hex()),
		zap.Bool("contract_creation", d.IsContractCreation()),
		zap.Uint64("nonce", d.Nonce),
		zap.Uint64("gas_limit", d.GasLimit),
		zap.Stringer("gas_price", d.GasPrice),
	)
	return d, nil
}
