package aggregators

import (
	"strconv"

	"edge-log-analytics/internal/models"

	"github.com/caio/go-tdigest/v4"
)

// RequestAggregator accumulates request counts and processing time for one level.
type RequestAggregator struct {
	level       int
	window      models.WindowDuration
	keepDigests bool
	table       *AggregationTable[models.UriBucketStats]
}

func newRequestAggregator(level int, window models.WindowDuration, keepDigests bool) *RequestAggregator {
	return &RequestAggregator{
		level:       level,
		window:      window,
		keepDigests: keepDigests,
		table:       NewAggregationTable[models.UriBucketStats](),
	}
}

func (a *RequestAggregator) Level() int { return a.level }

func (a *RequestAggregator) Table() *AggregationTable[models.UriBucketStats] { return a.table }

// Ingest adds event to the bucket of its (window, key).
func (a *RequestAggregator) Ingest(event models.RequestEvent) error {
	w := a.window.WindowOf(event.Timestamp)
	stats, created, windowCreated := a.table.bucket(w, DeriveKey(event.URI, a.level))
	if windowCreated {
		metricWindowCreatedTotal.WithLabelValues(strconv.Itoa(a.level), string(models.KindRequest)).Inc()
	}
	if created && a.keepDigests {
		digest, err := tdigest.New()
		if err != nil {
			return errInternalDigestFailed(err)
		}
		stats.ProcessingTimes = digest
	}
	if err := stats.Add(event.ProcessingTimeMs); err != nil {
		return errInternalDigestFailed(err)
	}
	return nil
}

func (a *RequestAggregator) merge(other *RequestAggregator) error {
	return a.table.merge(other.table, func(dst, src *models.UriBucketStats) error {
		if err := dst.Merge(src); err != nil {
			return errInternalDigestFailed(err)
		}
		return nil
	})
}
