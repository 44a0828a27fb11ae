// Package metrics exposes Prometheus metrics for the refresh core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set collects the refresh-core metrics on its own registry.
type Set struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	DroppedMatches    prometheus.Counter
	Opportunities     prometheus.Counter
	NearMisses        prometheus.Counter
	RemainingRequests prometheus.Gauge
	RefreshesBySport  *prometheus.CounterVec
	FetchErrorsByKind *prometheus.CounterVec
}

// New creates the metric set.
func New() *Set {
	registry := prometheus.NewRegistry()

	s := &Set{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "provider_requests_total",
			Help:      "Upstream provider requests by result.",
		}, []string{"result"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "cache_hits_total",
			Help:      "Refreshes served from the response cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "cache_misses_total",
			Help:      "Refreshes that had to call the provider.",
		}),
		DroppedMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "dropped_matches_total",
			Help:      "Matches dropped during normalization.",
		}),
		Opportunities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "arbitrage_opportunities_total",
			Help:      "Arbitrage opportunities detected.",
		}),
		NearMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "near_misses_total",
			Help:      "Near-miss value signals detected.",
		}),
		RemainingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moneta",
			Name:      "provider_requests_remaining",
			Help:      "Vendor-reported remaining requests.",
		}),
		RefreshesBySport: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "refreshes_total",
			Help:      "Completed refreshes by sport.",
		}, []string{"sport"}),
		FetchErrorsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moneta",
			Name:      "fetch_errors_total",
			Help:      "Fetch failures by error kind.",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		s.RequestsTotal,
		s.CacheHits,
		s.CacheMisses,
		s.DroppedMatches,
		s.Opportunities,
		s.NearMisses,
		s.RemainingRequests,
		s.RefreshesBySport,
		s.FetchErrorsByKind,
	)
	return s
}

// Registry returns the registry for the /metrics handler.
func (s *Set) Registry() *prometheus.Registry {
	return s.registry
}
