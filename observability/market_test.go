package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"nftmarket/core/types"
	"nftmarket/native/marketplace"
)

func marketEvent(kind string, attrs map[string]string) *types.Event {
	attrs["marketplace"] = "mkt1house"
	return &types.Event{Type: kind, Attributes: attrs}
}

func TestMarketMetricsTrackTrading(t *testing.T) {
	m := newMarketMetrics()

	m.Emit(marketEvent(marketplace.EventTypeListed, map[string]string{"price": "100"}))
	m.Emit(marketEvent(marketplace.EventTypeListed, map[string]string{"price": "300"}))
	m.Emit(marketEvent(marketplace.EventTypeDelisted, map[string]string{"price": "300"}))
	m.Emit(marketEvent(marketplace.EventTypePurchased, map[string]string{"price": "100", "fee": "2"}))

	require.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("mkt1house", "listed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("mkt1house", "purchased")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.open.WithLabelValues("mkt1house")))
	require.Equal(t, 100.0, testutil.ToFloat64(m.volume.WithLabelValues("mkt1house")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.fees.WithLabelValues("mkt1house")))
}

func TestMarketMetricsCountMalformedPurchases(t *testing.T) {
	m := newMarketMetrics()
	m.Emit(marketEvent(marketplace.EventTypePurchased, map[string]string{"price": "lots", "fee": "1"}))
	m.Emit(&types.Event{Type: "bank.transfer"})
	m.Emit(nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.rejected))
	require.Equal(t, 0.0, testutil.ToFloat64(m.volume.WithLabelValues("mkt1house")))
}
