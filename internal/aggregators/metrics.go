package aggregators

import (
	"edge-log-analytics/internal/shared/metrics"
)

var (
	// metricEventIngestedTotal counts events accepted by an engine, per event kind.
	// An event counts once however many levels it fans out to.
	metricEventIngestedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubAggregation,
			Name:      "event_ingested_total",
		},
		[]string{"kind", metrics.FieldErrorCode},
	)

	// metricMalformedSizeTotal mirrors the engines' malformed response size counters.
	metricMalformedSizeTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubAggregation,
			Name:      "malformed_response_size_total",
		},
		[]string{},
	)

	// metricWindowCreatedTotal counts windows opened in a level table.
	// Shard engines each count their own windows, so the sum may exceed the merged table.
	metricWindowCreatedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubAggregation,
			Name:      "window_created_total",
		},
		[]string{"level", "kind"},
	)
)
