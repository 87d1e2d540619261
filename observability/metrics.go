package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	instructions *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	transactions *prometheus.CounterVec
	lockWait     prometheus.Histogram
}

type rpcMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics

	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics
)

// Ledger returns the lazily-initialised metrics registry for transaction
// execution.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "tx_total",
				Help:      "Executed instructions segmented by program, instruction and outcome.",
			}, []string{"program", "instruction", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nftmarket",
				Name:      "instruction_duration_seconds",
				Help:      "Latency distribution for instruction execution.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"program", "instruction"}),
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Name:      "transactions_total",
				Help:      "Processed transactions segmented by outcome.",
			}, []string{"outcome"}),
			lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "nftmarket",
				Name:      "account_lock_wait_seconds",
				Help:      "Time spent waiting for conflicting transactions to release account locks.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.instructions,
			ledgerRegistry.latency,
			ledgerRegistry.transactions,
			ledgerRegistry.lockWait,
		)
	})
	return ledgerRegistry
}

// ObserveInstruction records one instruction execution.
func (m *ledgerMetrics) ObserveInstruction(program, instruction string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if program == "" {
		program = "unknown"
	}
	if instruction == "" {
		instruction = "unknown"
	}
	m.instructions.WithLabelValues(program, instruction, outcome(err)).Inc()
	m.latency.WithLabelValues(program, instruction).Observe(duration.Seconds())
}

// ObserveTransaction records the final outcome of a transaction.
func (m *ledgerMetrics) ObserveTransaction(err error) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(outcome(err)).Inc()
}

// ObserveLockWait records how long a transaction waited for its accounts.
func (m *ledgerMetrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RPC returns the lazily-initialised metrics for JSON-RPC traffic.
func RPC() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nftmarket",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of an RPC call. code is the JSON-RPC error code,
// zero on success.
func (m *rpcMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	result := "success"
	if code != 0 {
		result = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(method, result).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}
