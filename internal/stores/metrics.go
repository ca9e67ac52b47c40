package stores

import (
	"edge-log-analytics/internal/shared/metrics"
)

var (
	metricReportWrittenTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubReporting,
			Name:      "report_written_total",
		},
		[]string{"kind", "format"},
	)
)
