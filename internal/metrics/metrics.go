// Package metrics defines the Prometheus collectors exposed by the
// quoting engine, mirroring ControllerMetrics in the teacher's
// PricingController.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors bundles every metric the engine emits.
type Collectors struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ErrorsTotal         *prometheus.CounterVec
	CacheHitRate        *prometheus.CounterVec
	CarrierFanoutErrors *prometheus.CounterVec
	SmartShieldFlags    *prometheus.CounterVec
	ActiveConnections   prometheus.Gauge
}

// New registers every collector against the default registry and returns
// the bundle. Call once at process start.
func New() *Collectors {
	return &Collectors{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freightquote_requests_total",
			Help: "Total calculate requests processed, by outcome.",
		}, []string{"outcome"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "freightquote_request_duration_seconds",
			Help:    "calculate request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freightquote_errors_total",
			Help: "Errors surfaced to callers, by error code.",
		}, []string{"code"}),

		CacheHitRate: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freightquote_cache_lookups_total",
			Help: "ResultCache lookups, by hit/miss.",
		}, []string{"result"}),

		CarrierFanoutErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freightquote_carrier_fanout_errors_total",
			Help: "Per-carrier pricing failures dropped from a response.",
		}, []string{"carrier_id"}),

		SmartShieldFlags: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "freightquote_smartshield_flags_total",
			Help: "SmartShield flags raised, by code and severity.",
		}, []string{"code", "severity"}),

		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "freightquote_active_connections",
			Help: "In-flight calculate requests.",
		}),
	}
}
