// Package metrics defines the Prometheus instrumentation shared across the
// store, the binding layer, and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MutationsTotal counts successful store mutations by operation and
	// changed scope (collection name or "notifications").
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadwatch",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Successful store mutations by operation and scope.",
	}, []string{"op", "scope"})

	// RejectionsTotal counts rejected mutations by operation and error code.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadwatch",
		Subsystem: "store",
		Name:      "rejections_total",
		Help:      "Rejected store operations by operation and error code.",
	}, []string{"op", "code"})

	// EvictionsTotal counts notifications evicted from the bounded log.
	EvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadwatch",
		Subsystem: "store",
		Name:      "notification_evictions_total",
		Help:      "Notifications dropped from the tail of the bounded log.",
	})

	// Revision tracks the store's current snapshot revision.
	Revision = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadwatch",
		Subsystem: "store",
		Name:      "revision",
		Help:      "Current snapshot revision of the store.",
	})

	// DeliveriesTotal counts view computations delivered to bound consumers.
	DeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadwatch",
		Subsystem: "binding",
		Name:      "deliveries_total",
		Help:      "View recomputations delivered to bound consumers.",
	})

	// SaveFailuresTotal counts failed fire-and-forget persistence calls.
	SaveFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadwatch",
		Subsystem: "persist",
		Name:      "save_failures_total",
		Help:      "Snapshot save attempts that returned an error.",
	})
)
