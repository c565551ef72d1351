package endpoint

import (
	"maps"
	"slices"
	"strings"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// Well known network names.
const (
	BSC           = "bsc"
	BSCTestnet    = "bsc_testnet"
	ETH           = "eth"
	Kovan         = "kovan"
	Goerli        = "goerli"
	Rinkeby       = "rinkeby"
	Ropsten       = "ropsten"
	Matic         = "matic"
	MaticTestnet  = "matic_testnet"
	FantomTestnet = "fantom_testnet"
	AvaxTestnet   = "avax_testnet"
	ChzTestnet    = "chz_testnet"
	Kiln          = "kiln"
)

var defaultEndpoints = map[string]string{
	BSC:           "https://bsc-dataseed.binance.org/",
	BSCTestnet:    "https://data-seed-prebsc-1-s1.binance.org:8545/",
	ETH:           "https://mainnet.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
	Kovan:         "https://kovan.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
	Goerli:        "https://goerli.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
	Rinkeby:       "https://rinkeby.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
	Ropsten:       "https://ropsten.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
	Matic:         "https://rpc-mainnet.maticvigil.com/",
	MaticTestnet:  "https://matic-testnet-archive-rpc.bwarelabs.com/",
	FantomTestnet: "https://rpc.testnet.fantom.network/",
	AvaxTestnet:   "https://api.avax-test.network/ext/bc/C/rpc",
	ChzTestnet:    "https://scoville-rpc.chiliz.com",
	Kiln:          "https://rpc.kiln.themerge.dev/",
}

// Resolver maps symbolic network names to JSON-RPC URLs. It never touches the network.
type Resolver struct {
	endpoints map[string]string
}

// NewResolver returns a resolver seeded with the built-in networks. Entries in
// extra are added on top and override built-ins of the same name.
func NewResolver(extra map[string]string) *Resolver {
	endpoints := maps.Clone(defaultEndpoints)
	for name, url := range extra {
		endpoints[normalize(name)] = url
	}
	return &Resolver{endpoints: endpoints}
}

// Resolve returns the registered URL for network if there is one, otherwise
// the explicit url unchanged. An unknown network without an explicit url is a
// *ConfigurationError rather than an empty endpoint that fails later at dial time.
func (r *Resolver) Resolve(network, url string) (string, error) {
	if registered, ok := r.endpoints[normalize(network)]; ok {
		return registered, nil
	}
	if url = strings.TrimSpace(url); url != "" {
		return url, nil
	}
	if network == "" {
		return "", loadtesttypes.NewConfigurationError("rpc_url", "no network name or rpc url provided")
	}
	return "", loadtesttypes.NewConfigurationError("network", "unknown network %q and no rpc url provided", network)
}

// Networks lists the registered network names in sorted order.
func (r *Resolver) Networks() []string {
	return slices.Sorted(maps.Keys(r.endpoints))
}

// Lookup returns the URL registered for network.
func (r *Resolver) Lookup(network string) (string, bool) {
	url, ok := r.endpoints[normalize(network)]
	return url, ok
}

func normalize(network string) string {
	return strings.ToLower(strings.TrimSpace(network))
}
