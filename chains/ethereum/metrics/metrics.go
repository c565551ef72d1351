package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PromNamespace      = "deploybench"
	TxMetricsNamespace = "tx_metrics"
)

type Metrics struct {
	TxSuccess        prometheus.Counter
	TxFailure        prometheus.Counter
	TxTimeout        prometheus.Counter
	TxInclusion      prometheus.Histogram
	BroadcastFailure prometheus.Counter
	BroadcastSuccess prometheus.Counter
}

// NewMetrics creates the submission metrics and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	txSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: PromNamespace,
		Subsystem: TxMetricsNamespace,
		Name:      "tx_success",
		Help:      "Number of txs included with a successful status.",
	})
	txFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: PromNamespace,
		Subsystem: TxMetricsNamespace,
		Name:      "tx_failure",
		Help:      "Number of txs included with a failed (reverted) status.",
	})
	txTimeout := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: PromNamespace,
		Subsystem: TxMetricsNamespace,
		Name:      "tx_timeout",
		Help:      "Number of broadcast txs without a receipt before the confirmation timeout.",
	})
	txInclusion := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: PromNamespace,
		Subsystem: TxMetricsNamespace,
		Name:      "tx_inclusion",
		Help:      "Histogram of milliseconds between broadcast and the receipt being observed.",
		Buckets:   []float64{50, 100, 250, 500, 1000, 1500, 2000, 5000, 10000, 15000, 20000, 30000, 60000, 90000, 120000, 300000},
	})
	broadcastFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: PromNamespace,
		Subsystem: TxMetricsNamespace,
		Name:      "broadcast_failure",
		Help:      "Number of failed tx broadcasts.",
	})
	broadcastSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: PromNamespace,
		Subsystem: TxMetricsNamespace,
		Name:      "broadcast_success",
		Help:      "Number of successful tx broadcasts.",
	})
	if reg != nil {
		reg.MustRegister(txSuccess, txFailure, txTimeout, txInclusion, broadcastFailure, broadcastSuccess)
	}
	return &Metrics{
		TxSuccess:        txSuccess,
		TxFailure:        txFailure,
		TxTimeout:        txTimeout,
		TxInclusion:      txInclusion,
		BroadcastFailure: broadcastFailure,
		BroadcastSuccess: broadcastSuccess,
	}
}
