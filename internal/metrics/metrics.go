// Package metrics holds the Prometheus instrumentation for the core
// subsystems and the ops HTTP surface that exposes it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds all Prometheus collectors for the hotel core.
type Registry struct {
	reg *prometheus.Registry

	// Cache performance
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec
	CacheSets   *prometheus.CounterVec

	// Pricing
	PriceComputations *prometheus.CounterVec
	PriceDuration     *prometheus.HistogramVec
	PendingApprovals  prometheus.Counter

	// Availability
	AvailabilityLookups *prometheus.CounterVec
	BookingEvents       *prometheus.CounterVec

	// Hub
	HubConnections    prometheus.Gauge
	HubEvents         *prometheus.CounterVec
	OfflineQueueDrops prometheus.Counter
	OfflineReplays    prometheus.Counter
	DeniedJoins       *prometheus.CounterVec

	// Demand
	DemandSurges *prometheus.CounterVec

	// Loyalty
	LoyaltyEvents *prometheus.CounterVec
	PointsAccrued prometheus.Counter
	PointsExpired prometheus.Counter

	// Workers
	WorkerRuns     *prometheus.CounterVec
	WorkerDuration *prometheus.HistogramVec
}

// New creates a registry with all collectors registered.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_cache_hits_total",
		Help: "Total cache hits by tier and category",
	}, []string{"tier", "category"})

	r.CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_cache_misses_total",
		Help: "Total cache misses by tier and category",
	}, []string{"tier", "category"})

	r.CacheErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_cache_errors_total",
		Help: "Total cache errors by tier and category",
	}, []string{"tier", "category"})

	r.CacheSets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_cache_sets_total",
		Help: "Total cache writes by tier and category",
	}, []string{"tier", "category"})

	r.PriceComputations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_price_computations_total",
		Help: "Total pricing engine computations by result",
	}, []string{"result"})

	r.PriceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hotelcore_price_duration_seconds",
		Help:    "Pricing engine computation duration",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	}, []string{"cached"})

	r.PendingApprovals = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hotelcore_price_pending_approvals_total",
		Help: "Prices held for approval after exceeding the daily change threshold",
	})

	r.AvailabilityLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_availability_lookups_total",
		Help: "Availability lookups by cache outcome",
	}, []string{"outcome"})

	r.BookingEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_booking_events_total",
		Help: "Booking mutations processed by action",
	}, []string{"action"})

	r.HubConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hotelcore_hub_connections",
		Help: "Currently connected hub sessions",
	})

	r.HubEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_hub_events_total",
		Help: "Events emitted through the hub by type",
	}, []string{"type"})

	r.OfflineQueueDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hotelcore_offline_queue_drops_total",
		Help: "Events dropped from full offline queues",
	})

	r.OfflineReplays = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hotelcore_offline_replays_total",
		Help: "Events replayed from offline queues on reconnect",
	})

	r.DeniedJoins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_hub_denied_joins_total",
		Help: "Room join attempts rejected by authorization",
	}, []string{"room_kind"})

	r.DemandSurges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_demand_surges_total",
		Help: "Demand surge alerts by level",
	}, []string{"level"})

	r.LoyaltyEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_loyalty_events_total",
		Help: "Loyalty engine events by type",
	}, []string{"type"})

	r.PointsAccrued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hotelcore_loyalty_points_accrued_total",
		Help: "Loyalty points accrued",
	})

	r.PointsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hotelcore_loyalty_points_expired_total",
		Help: "Loyalty points expired by the scanner",
	})

	r.WorkerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hotelcore_worker_runs_total",
		Help: "Background worker executions by job and result",
	}, []string{"job", "result"})

	r.WorkerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hotelcore_worker_duration_seconds",
		Help:    "Background worker execution duration",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
	}, []string{"job"})

	r.reg.MustRegister(
		r.CacheHits, r.CacheMisses, r.CacheErrors, r.CacheSets,
		r.PriceComputations, r.PriceDuration, r.PendingApprovals,
		r.AvailabilityLookups, r.BookingEvents,
		r.HubConnections, r.HubEvents, r.OfflineQueueDrops, r.OfflineReplays, r.DeniedJoins,
		r.DemandSurges,
		r.LoyaltyEvents, r.PointsAccrued, r.PointsExpired,
		r.WorkerRuns, r.WorkerDuration,
	)

	return r
}

// Handler returns the HTTP handler exposing the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Snapshot extracts counter totals keyed by metric name. Used by the per-hotel
// performance rollup and the periodic hub snapshot broadcast.
func (r *Registry) Snapshot() (map[string]float64, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				total += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				total += m.GetGauge().GetValue()
			}
		}
		out[mf.GetName()] = total
	}
	return out, nil
}

// HitRate computes the shared-tier hit rate for a category from a snapshot
// gathered by Snapshot. Returns 0 when no lookups were recorded.
func HitRate(hits, misses float64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}
