// Package metrics holds the engine's Prometheus collectors. Everything
// registers on the default registry and is served by the HTTP layer's
// /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleipnir_orders_accepted_total",
		Help: "Orders durably accepted (WAL append succeeded).",
	})

	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleipnir_orders_rejected_total",
		Help: "Orders rejected by submit validation.",
	})

	WalAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleipnir_wal_append_failures_total",
		Help: "WAL appends that failed; each one rolled back a sequence number.",
	})

	FillsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleipnir_fills_total",
		Help: "Fills emitted by matching.",
	})

	ActiveBooks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sleipnir_books",
		Help: "Order books instantiated this process lifetime.",
	})

	RestoredWalEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sleipnir_restore_wal_entries",
		Help: "WAL entries replayed by the last restore.",
	})

	RestoredSnapshotOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sleipnir_restore_snapshot_orders",
		Help: "Resting orders loaded from the snapshot by the last restore.",
	})
)
