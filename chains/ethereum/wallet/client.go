package wallet

import (
	"context"
	"errors"
	"math/big"
	"net"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// Client is the subset of a go-ethereum client used to drive a transaction
// through its lifecycle. *ethclient.Client and the simulated backend client
// both satisfy it.
type Client interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dial connects to a JSON-RPC endpoint using the given pooled HTTP client.
func Dial(ctx context.Context, rawURL string, httpClient *http.Client) (*ethclient.Client, error) {
	opts := []rpc.ClientOption{}
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}
	rpcClient, err := rpc.DialOptions(ctx, rawURL, opts...)
	if err != nil {
		return nil, loadtesttypes.NewConfigurationError("rpc_url", "failed to construct RPC client for %s: %w", rawURL, err)
	}
	return ethclient.NewClient(rpcClient), nil
}

// isTransportError reports whether err happened below the JSON-RPC layer,
// i.e. the node never answered the request.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var (
		netErr  net.Error
		urlErr  *url.Error
		httpErr rpc.HTTPError
	)
	return errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.As(err, &httpErr)
}
