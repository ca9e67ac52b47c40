package decoders

import (
	"edge-log-analytics/internal/shared/metrics"
)

var (
	// metricRecordDecodedTotal counts decoded records by outcome: decoded, ignored or failed.
	metricRecordDecodedTotal = metrics.NewCounterVec(
		metrics.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: metrics.SubDecoding,
			Name:      "record_decoded_total",
		},
		[]string{"decoder", "outcome"},
	)
)

const (
	outcomeDecoded = "decoded"
	outcomeIgnored = "ignored"
	outcomeFailed  = "failed"
)

func recordStats(decoder string, stats Stats) {
	metricRecordDecodedTotal.WithLabelValues(decoder, outcomeDecoded).Add(float64(stats.Decoded))
	metricRecordDecodedTotal.WithLabelValues(decoder, outcomeIgnored).Add(float64(stats.Ignored))
	metricRecordDecodedTotal.WithLabelValues(decoder, outcomeFailed).Add(float64(stats.Failed))
}
