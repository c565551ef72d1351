package endpoint

import (
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Options configure the pooled HTTP client used for JSON-RPC calls.
type Options struct {
	// MaxConns bounds both the idle pool and the number of concurrent connections per host.
	MaxConns int
	// Retries is the number of extra attempts after a transport failure.
	Retries int
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
	// RequestTimeout is the per-request ceiling.
	RequestTimeout time.Duration
}

// NewHTTPClient builds an http.Client with a bounded connection pool and a
// small retry budget for transport failures.
func NewHTTPClient(logger *zap.Logger, opts Options) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxConnsPerHost:     opts.MaxConns,
		MaxIdleConns:        opts.MaxConns,
		MaxIdleConnsPerHost: opts.MaxConns,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	return &http.Client{
		Transport: NewRetryTransport(logger, tr, opts.Retries, opts.RetryDelay),
		Timeout:   opts.RequestTimeout,
	}
}

// RetryTransport retries a request when the underlying RoundTripper fails to
// produce a response at all. Any HTTP response, whatever its status or JSON-RPC
// payload, is returned as is.
type RetryTransport struct {
	logger  *zap.Logger
	base    http.RoundTripper
	retries uint64
	delay   time.Duration
}

func NewRetryTransport(logger *zap.Logger, base http.RoundTripper, retries int, delay time.Duration) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if retries < 0 {
		retries = 0
	}
	return &RetryTransport{
		logger:  logger.With(zap.String("module", "rpc_transport")),
		base:    base,
		retries: uint64(retries), //nolint:gosec // G115: checked above
		delay:   delay,
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// bodies that cannot be rewound are sent once.
	if t.retries == 0 || (req.Body != nil && req.Body != http.NoBody && req.GetBody == nil) {
		return t.base.RoundTrip(req)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(t.delay), t.retries),
		req.Context(),
	)

	attempt := 0
	var resp *http.Response
	err := backoff.Retry(func() error {
		attempt++
		r := req
		if attempt > 1 {
			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return backoff.Permanent(err)
				}
				r.Body = body
			}
			t.logger.Debug("retrying rpc request", zap.String("url", req.URL.Redacted()), zap.Int("attempt", attempt))
		}

		var err error
		resp, err = t.base.RoundTrip(r)
		return err
	}, b)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
