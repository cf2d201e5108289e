package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records order placement and stock health.
type StoreMetrics struct {
	ordersCreated      *prometheus.CounterVec
	reservationFailure *prometheus.CounterVec
	stockMutations     *prometheus.CounterVec
	lowStockEntries    prometheus.Gauge
	stockDrift         prometheus.Gauge
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	m := &StoreMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_orders_created_total",
			Help: "Orders persisted, by payment method.",
		}, []string{"payment_method"}),
		reservationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_stock_reservation_failures_total",
			Help: "Order placements rejected during stock reservation, by error code.",
		}, []string{"code"}),
		stockMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_stock_mutations_total",
			Help: "Inventory history entries written, by type.",
		}, []string{"type"}),
		lowStockEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "store_low_stock_entries",
			Help: "Inventory entries at or below their low-stock threshold at the last report.",
		}),
		stockDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "store_stock_drift_products",
			Help: "Products whose aggregate stock disagreed with their ledger at the last reconcile.",
		}),
	}
	reg.MustRegister(m.ordersCreated, m.reservationFailure, m.stockMutations, m.lowStockEntries, m.stockDrift)
	return m
}

// IncOrderCreated counts a persisted order.
func (m *StoreMetrics) IncOrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncReservationFailure counts an order rejected while reserving stock.
func (m *StoreMetrics) IncReservationFailure(code string) {
	if m == nil || m.reservationFailure == nil {
		return
	}
	m.reservationFailure.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncStockMutation counts a written history entry.
func (m *StoreMetrics) IncStockMutation(historyType string) {
	if m == nil || m.stockMutations == nil {
		return
	}
	m.stockMutations.WithLabelValues(normalizeLabel(historyType)).Inc()
}

// SetLowStockEntries records the current low-stock entry count.
func (m *StoreMetrics) SetLowStockEntries(n int) {
	if m == nil || m.lowStockEntries == nil {
		return
	}
	m.lowStockEntries.Set(float64(n))
}

// SetStockDrift records how many products were corrected by the last reconcile.
func (m *StoreMetrics) SetStockDrift(n int) {
	if m == nil || m.stockDrift == nil {
		return
	}
	m.stockDrift.Set(float64(n))
}
