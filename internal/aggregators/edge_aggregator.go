package aggregators

import (
	"strconv"

	"edge-log-analytics/internal/models"
)

// EdgeSample is an edge event after its size was parsed and its client classified.
// Both are computed once per event, before the fan-out across levels.
type EdgeSample struct {
	TimestampMillis int64
	URI             string
	SizeBytes       uint64
	Class           models.ClientClass
}

// EdgeAggregator accumulates edge traffic volume and its client breakdown for one level.
type EdgeAggregator struct {
	level  int
	window models.WindowDuration
	table  *AggregationTable[models.TrafficBucketStats]
}

func newEdgeAggregator(level int, window models.WindowDuration) *EdgeAggregator {
	return &EdgeAggregator{
		level:  level,
		window: window,
		table:  NewAggregationTable[models.TrafficBucketStats](),
	}
}

func (a *EdgeAggregator) Level() int { return a.level }

func (a *EdgeAggregator) Table() *AggregationTable[models.TrafficBucketStats] { return a.table }

// Ingest adds sample to the bucket of its (window, key).
func (a *EdgeAggregator) Ingest(sample EdgeSample) {
	w := a.window.WindowOf(sample.TimestampMillis)
	stats, _, windowCreated := a.table.bucket(w, DeriveKey(sample.URI, a.level))
	if windowCreated {
		metricWindowCreatedTotal.WithLabelValues(strconv.Itoa(a.level), string(models.KindEdge)).Inc()
	}
	stats.Add(sample.SizeBytes, sample.Class)
}

func (a *EdgeAggregator) merge(other *EdgeAggregator) {
	_ = a.table.merge(other.table, func(dst, src *models.TrafficBucketStats) error {
		dst.Merge(src)
		return nil
	})
}
