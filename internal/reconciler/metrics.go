package reconciler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kurihiro0119/github-mirror/internal/domain"
)

var (
	// lastSyncTimestamp is a Gauge that captures the timestamp of the last
	// successful clone or update of a repository
	lastSyncTimestamp *prometheus.GaugeVec
	// syncCount is a Counter vector of reconciliations by outcome
	syncCount *prometheus.CounterVec
	// syncLatency is a Histogram vector of reconciliation durations
	syncLatency *prometheus.HistogramVec
)

// EnableMetrics enables metrics collection for reconciliations.
// Available metrics are...
//   - repo_last_sync_timestamp - (tags: repo)
//     Timestamp of the last successful clone or update per repository.
//   - repo_sync_count - (tags: outcome)
//     Incremented once per reconciliation with its outcome
//     (cloned|updated|unchanged|skipped|failed).
//   - repo_sync_latency_seconds - (tags: outcome)
//     Duration of each reconciliation.
func EnableMetrics(metricsNamespace string, registerer prometheus.Registerer) {
	factory := promauto.With(registerer)

	lastSyncTimestamp = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "repo_last_sync_timestamp",
		Help:      "Timestamp of the last successful repository sync",
	},
		[]string{"repo"},
	)

	syncCount = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "repo_sync_count",
		Help:      "Count of repository reconciliations",
	},
		[]string{"outcome"},
	)

	syncLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "repo_sync_latency_seconds",
		Help:      "Latency of repository reconciliations",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
	},
		[]string{"outcome"},
	)
}

// recordSync records a reconciliation by updating all the relevant metrics
func recordSync(repo string, outcome domain.Outcome, start time.Time) {
	// if metrics not enabled return
	if syncCount == nil {
		return
	}
	if outcome == domain.OutcomeCloned || outcome == domain.OutcomeUpdated {
		lastSyncTimestamp.WithLabelValues(repo).Set(float64(time.Now().Unix()))
	}
	syncCount.WithLabelValues(string(outcome)).Inc()
	syncLatency.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
}
