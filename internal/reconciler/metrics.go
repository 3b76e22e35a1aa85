package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "sync_cycles_total",
		Help: "Reconciliation cycles by kind and outcome (success, error, skipped).",
	}, []string{"kind", "outcome"})

	cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "sync_cycle_duration_seconds",
		Help:    "Duration of finished reconciliation cycles.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), //nolint:mnd
	}, []string{"kind"})

	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "sync_mutations_total",
		Help: "Group membership mutations by action and outcome.",
	}, []string{"action", "outcome"})

	cachedGroups = promauto.NewGauge(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "sync_cached_groups",
		Help: "Groups in the last known membership cache.",
	})

	activeBlocks = promauto.NewGauge(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "sync_active_blocks",
		Help: "Lesson blocks open at the last incremental cycle.",
	})
)

func outcome(ok bool) string {
	if ok {
		return "success"
	}

	return "failure"
}
