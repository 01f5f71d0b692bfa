package viewcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the cache's Prometheus collectors.
type Metrics struct {
	// ViewRequests counts ResolveView calls by result: hit, miss or wait.
	ViewRequests *prometheus.CounterVec
	// Snapshots counts snapshots applied to views.
	Snapshots prometheus.Counter
	// SubscriptionErrors counts errors reported by view subscriptions.
	SubscriptionErrors prometheus.Counter
	// Views is the number of materialized views.
	Views prometheus.Gauge
	// Resolutions counts range resolutions by operator and status.
	Resolutions *prometheus.CounterVec
}

// NewMetrics registers the cache collectors with reg. A nil reg creates
// unregistered collectors, which is handy in tests and for callers that do
// not export metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ViewRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewcache_view_requests_total",
				Help: "Total number of view resolutions by cache result",
			},
			[]string{"result"},
		),
		Snapshots: factory.NewCounter(prometheus.CounterOpts{
			Name: "viewcache_snapshots_total",
			Help: "Total number of snapshots applied to cached views",
		}),
		SubscriptionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "viewcache_subscription_errors_total",
			Help: "Total number of errors reported by view subscriptions",
		}),
		Views: factory.NewGauge(prometheus.GaugeOpts{
			Name: "viewcache_views",
			Help: "Number of materialized views",
		}),
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewcache_resolutions_total",
				Help: "Total number of range resolutions by operator and status",
			},
			[]string{"operator", "status"},
		),
	}
}
