package aggregators

import (
	"slices"

	"edge-log-analytics/internal/models"
)

// AggregationTable maps window -> URI key -> stats. Windows and keys are created on first
// observation and never removed.
type AggregationTable[S any] struct {
	windows map[models.TimeWindow]map[string]*S
}

func NewAggregationTable[S any]() *AggregationTable[S] {
	return &AggregationTable[S]{windows: make(map[models.TimeWindow]map[string]*S)}
}

// bucket returns the stats for (w, key), creating zero stats when absent.
func (t *AggregationTable[S]) bucket(w models.TimeWindow, key string) (stats *S, created bool, windowCreated bool) {
	keys, ok := t.windows[w]
	if !ok {
		keys = make(map[string]*S)
		t.windows[w] = keys
		windowCreated = true
	}
	stats, ok = keys[key]
	if !ok {
		stats = new(S)
		keys[key] = stats
		created = true
	}
	return stats, created, windowCreated
}

// merge folds other into t. Buckets only present in other are moved over as is.
func (t *AggregationTable[S]) merge(other *AggregationTable[S], fold func(dst, src *S) error) error {
	for w, otherKeys := range other.windows {
		keys, ok := t.windows[w]
		if !ok {
			t.windows[w] = otherKeys
			continue
		}
		for key, src := range otherKeys {
			dst, ok := keys[key]
			if !ok {
				keys[key] = src
				continue
			}
			if err := fold(dst, src); err != nil {
				return err
			}
		}
	}
	return nil
}

// Windows lists the observed windows in ascending order.
func (t *AggregationTable[S]) Windows() []models.TimeWindow {
	windows := make([]models.TimeWindow, 0, len(t.windows))
	for w := range t.windows {
		windows = append(windows, w)
	}
	slices.Sort(windows)
	return windows
}

// Buckets returns the key -> stats mapping of window w, nil when w was never observed.
// Callers must not modify it.
func (t *AggregationTable[S]) Buckets(w models.TimeWindow) map[string]*S {
	return t.windows[w]
}

func (t *AggregationTable[S]) get(w models.TimeWindow, key string) (*S, bool) {
	stats, ok := t.windows[w][key]
	return stats, ok
}

// Len returns the number of observed windows.
func (t *AggregationTable[S]) Len() int {
	return len(t.windows)
}
