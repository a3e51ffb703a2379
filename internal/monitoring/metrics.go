// Package monitoring exposes the control loop's own health as Prometheus
// metrics (C12). Gather duration and scale-action counts are recorded by
// the metrics handler and the control loop; InventoryCacheEvents,
// MonitoringQueryErrors and OptedInDatabases are registered but no code
// in this module updates them, so they carry no series.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatherDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoscaler_gather_duration_seconds",
		Help:    "Duration of a full metrics-gather pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	ScaleActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoscaler_scale_actions_total",
		Help: "Scale actions issued to the cloud provider, by dimension and outcome.",
	}, []string{"dimension", "outcome"})

	InventoryCacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoscaler_inventory_cache_events_total",
		Help: "Inventory cache hits and misses.",
	}, []string{"kind", "event"})

	MonitoringQueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoscaler_monitoring_query_errors_total",
		Help: "Monitoring backend queries that returned an error.",
	}, []string{"field"})

	OptedInDatabases = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "autoscaler_opted_in_databases",
		Help: "Number of databases currently opted into autoscaling.",
	}, []string{})
)

// ObserveGather records the wall-clock duration of a gather pass.
func ObserveGather(start time.Time, outcome string) {
	GatherDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
