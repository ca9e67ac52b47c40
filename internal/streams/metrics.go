package streams

import (
	"edge-log-analytics/internal/shared/metrics"
)

var (
	streamFile               = "file"
	metricFilePublishedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubStream,
			Name:      "file_published_total",
		},
		[]string{"stream_id"},
	)

	metricFileConsumedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubStream,
			Name:      "file_consumed_total",
		},
		[]string{"stream_id", metrics.FieldErrorCode},
	)
)
