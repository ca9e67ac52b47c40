package walkers

import (
	"edge-log-analytics/internal/shared/metrics"
)

var (
	// metricFileWalkedTotal counts opened inputs by container; a .log.gz counts once as
	// file and once as gzip.
	metricFileWalkedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubWalking,
			Name:      "file_walked_total",
		},
		[]string{"container"},
	)

	metricFileSkippedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubWalking,
			Name:      "file_skipped_total",
		},
		[]string{},
	)
)
