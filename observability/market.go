package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"nftmarket/core/events"
	"nftmarket/core/types"
	"nftmarket/native/marketplace"
)

// MarketMetrics turns committed marketplace events into trading counters.
// It implements events.Emitter so it can sit in the processor's fanout.
type MarketMetrics struct {
	actions  *prometheus.CounterVec
	volume   *prometheus.CounterVec
	fees     *prometheus.CounterVec
	open     *prometheus.GaugeVec
	rejected prometheus.Counter
}

var (
	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetrics
)

// Market returns the process-wide marketplace metrics, registering them with
// the default prometheus registry on first use.
func Market() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = newMarketMetrics()
		prometheus.MustRegister(
			marketRegistry.actions,
			marketRegistry.volume,
			marketRegistry.fees,
			marketRegistry.open,
			marketRegistry.rejected,
		)
	})
	return marketRegistry
}

func newMarketMetrics() *MarketMetrics {
	return &MarketMetrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "actions_total",
			Help:      "Committed marketplace actions segmented by marketplace and kind.",
		}, []string{"marketplace", "kind"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "volume_lamports_total",
			Help:      "Lamports paid by buyers.",
		}, []string{"marketplace"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "fees_lamports_total",
			Help:      "Lamports routed to marketplace treasuries.",
		}, []string{"marketplace"}),
		open: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "open_listings",
			Help:      "Listings opened minus listings closed since process start.",
		}, []string{"marketplace"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "malformed_events_total",
			Help:      "Marketplace events whose amounts could not be parsed.",
		}),
	}
}

// Emit implements events.Emitter.
func (m *MarketMetrics) Emit(evt events.Event) {
	payload, ok := evt.(*types.Event)
	if m == nil || !ok || payload == nil {
		return
	}
	market := payload.Attributes["marketplace"]
	switch payload.Type {
	case marketplace.EventTypeInitialized:
		m.open.WithLabelValues(market).Add(0)
	case marketplace.EventTypeListed:
		m.actions.WithLabelValues(market, "listed").Inc()
		m.open.WithLabelValues(market).Inc()
	case marketplace.EventTypeDelisted:
		m.actions.WithLabelValues(market, "delisted").Inc()
		m.open.WithLabelValues(market).Dec()
	case marketplace.EventTypePurchased:
		price, perr := strconv.ParseUint(payload.Attributes["price"], 10, 64)
		fee, ferr := strconv.ParseUint(payload.Attributes["fee"], 10, 64)
		if perr != nil || ferr != nil {
			m.rejected.Inc()
			return
		}
		m.actions.WithLabelValues(market, "purchased").Inc()
		m.open.WithLabelValues(market).Dec()
		m.volume.WithLabelValues(market).Add(float64(price))
		m.fees.WithLabelValues(market).Add(float64(fee))
	}
}
