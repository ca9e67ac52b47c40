package aggregators

import (
	"fmt"
	"slices"
	"sync/atomic"

	"edge-log-analytics/internal/models"
	"edge-log-analytics/internal/shared/metrics"
)

// Config is everything an Engine is built from.
type Config struct {
	Levels           []int
	Window           models.WindowDuration
	Classifier       ClassifierConfig
	LatencyQuantiles []float64
}

// Counters are the engine's own diagnostics. They are safe to read while ingesting.
type Counters struct {
	RequestEvents  uint64 `json:"requestEvents"`
	EdgeEvents     uint64 `json:"edgeEvents"`
	MalformedSizes uint64 `json:"malformedSizes"`
}

// LevelTable is the frozen table of one aggregation level.
type LevelTable[S any] struct {
	Level int
	Table *AggregationTable[S]
}

// FlushedTables is what an engine hands over at end of input, levels ascending.
type FlushedTables struct {
	Window           models.WindowDuration
	LatencyQuantiles []float64
	Requests         []LevelTable[models.UriBucketStats]
	Edges            []LevelTable[models.TrafficBucketStats]
	Counters         Counters
}

// Engine fans every event out to one request or edge aggregator per level.
//
// Ingest is not safe for concurrent use; run one engine per shard and Merge them.
// Flush is terminal: any later Ingest, Flush or Merge is rejected.
//
//go:generate mockgen -source=engine.go -destination=./mocks/engine_mock.go -package=mocks
type Engine interface {
	Ingest(event models.Event) error
	IngestRequest(event models.RequestEvent) error
	IngestEdge(event models.EdgeTrafficEvent) error
	// Merge folds other into this engine and flushes other. Incompatible engines are
	// rejected before any table is touched; other is left unflushed when it is an engine
	// built by NewEngine. If folding fails half way this engine is left flushed and
	// must be discarded.
	Merge(other Engine) error
	Flush() (*FlushedTables, error)
	Counters() Counters
}

type engine struct {
	levels     []int
	window     models.WindowDuration
	quantiles  []float64
	classifier TrafficClassifier

	requests []*RequestAggregator
	edges    []*EdgeAggregator

	requestEvents  atomic.Uint64
	edgeEvents     atomic.Uint64
	malformedSizes atomic.Uint64

	flushed bool
}

// NewEngine validates cfg and builds an engine with empty tables. No engine is returned
// on a configuration error.
func NewEngine(cfg Config) (Engine, error) {
	if cfg.Window <= 0 {
		return nil, errInvalidWindow(int64(cfg.Window))
	}
	if len(cfg.Levels) == 0 {
		return nil, errInvalidLevel("at least one aggregation level is required")
	}
	levels := slices.Clone(cfg.Levels)
	slices.Sort(levels)
	for i, level := range levels {
		if level < 1 {
			return nil, errInvalidLevel(fmt.Sprintf("aggregation level must be >= 1, got %d", level))
		}
		if i > 0 && levels[i-1] == level {
			return nil, errInvalidLevel(fmt.Sprintf("aggregation level %d is repeated", level))
		}
	}
	for _, q := range cfg.LatencyQuantiles {
		if !(q > 0 && q < 1) {
			return nil, errInvalidQuantile(q)
		}
	}
	classifier, err := NewTrafficClassifier(cfg.Classifier)
	if err != nil {
		return nil, errInvalidMarkers(err)
	}

	e := &engine{
		levels:     levels,
		window:     cfg.Window,
		quantiles:  slices.Clone(cfg.LatencyQuantiles),
		classifier: classifier,
		requests:   make([]*RequestAggregator, 0, len(levels)),
		edges:      make([]*EdgeAggregator, 0, len(levels)),
	}
	for _, level := range levels {
		e.requests = append(e.requests, newRequestAggregator(level, cfg.Window, len(cfg.LatencyQuantiles) > 0))
		e.edges = append(e.edges, newEdgeAggregator(level, cfg.Window))
	}
	return e, nil
}

func (e *engine) Ingest(event models.Event) error {
	switch ev := event.(type) {
	case models.RequestEvent:
		return e.IngestRequest(ev)
	case *models.RequestEvent:
		return e.IngestRequest(*ev)
	case models.EdgeTrafficEvent:
		return e.IngestEdge(ev)
	case *models.EdgeTrafficEvent:
		return e.IngestEdge(*ev)
	default:
		return errUnsupportedEvent(event)
	}
}

func (e *engine) IngestRequest(event models.RequestEvent) error {
	if e.flushed {
		svcErr := errEngineFlushed("ingest")
		metricEventIngestedTotal.WithLabelValues(string(models.KindRequest), svcErr.Code).Inc()
		return svcErr
	}
	for _, agg := range e.requests {
		if err := agg.Ingest(event); err != nil {
			return err
		}
	}
	e.requestEvents.Add(1)
	metricEventIngestedTotal.WithLabelValues(string(models.KindRequest), metrics.ValueNoError).Inc()
	return nil
}

func (e *engine) IngestEdge(event models.EdgeTrafficEvent) error {
	if e.flushed {
		svcErr := errEngineFlushed("ingest")
		metricEventIngestedTotal.WithLabelValues(string(models.KindEdge), svcErr.Code).Inc()
		return svcErr
	}

	size, ok := parseResponseSize(event.ResponseSizeBytes)
	if !ok {
		e.malformedSizes.Add(1)
		metricMalformedSizeTotal.WithLabelValues().Inc()
	}
	sample := EdgeSample{
		TimestampMillis: event.Timestamp,
		URI:             event.URI,
		SizeBytes:       size,
		Class:           e.classifier.Classify(event.UserAgent, event.Referer),
	}
	for _, agg := range e.edges {
		agg.Ingest(sample)
	}
	e.edgeEvents.Add(1)
	metricEventIngestedTotal.WithLabelValues(string(models.KindEdge), metrics.ValueNoError).Inc()
	return nil
}

func (e *engine) Merge(other Engine) error {
	if e.flushed {
		return errEngineFlushed("merge")
	}
	if other == Engine(e) {
		return errIncompatibleEngines("cannot merge an engine into itself")
	}
	if o, ok := other.(*engine); ok {
		if o.window != e.window || !slices.Equal(o.levels, e.levels) {
			return errIncompatibleEngines(fmt.Sprintf("engines differ: levels %v/%dms vs %v/%dms", e.levels, e.window, o.levels, o.window))
		}
	}

	tables, err := other.Flush()
	if err != nil {
		return err
	}
	if err := e.checkMergeable(tables); err != nil {
		return err
	}

	for i, agg := range e.requests {
		src := tables.Requests[i]
		if err := agg.merge(&RequestAggregator{level: src.Level, table: src.Table}); err != nil {
			e.flushed = true
			return err
		}
	}
	for i, agg := range e.edges {
		src := tables.Edges[i]
		agg.merge(&EdgeAggregator{level: src.Level, table: src.Table})
	}

	e.requestEvents.Add(tables.Counters.RequestEvents)
	e.edgeEvents.Add(tables.Counters.EdgeEvents)
	e.malformedSizes.Add(tables.Counters.MalformedSizes)
	return nil
}

// checkMergeable rejects tables whose window or levels differ from e.
func (e *engine) checkMergeable(tables *FlushedTables) error {
	if tables.Window != e.window || len(tables.Requests) != len(e.requests) || len(tables.Edges) != len(e.edges) {
		return errIncompatibleEngines("flushed tables do not match this engine's levels or window")
	}
	for i, agg := range e.requests {
		if tables.Requests[i].Level != agg.level {
			return errIncompatibleEngines(fmt.Sprintf("level %d cannot merge into level %d", tables.Requests[i].Level, agg.level))
		}
	}
	for i, agg := range e.edges {
		if tables.Edges[i].Level != agg.level {
			return errIncompatibleEngines(fmt.Sprintf("level %d cannot merge into level %d", tables.Edges[i].Level, agg.level))
		}
	}
	return nil
}

func (e *engine) Flush() (*FlushedTables, error) {
	if e.flushed {
		return nil, errEngineFlushed("flush")
	}
	e.flushed = true

	out := &FlushedTables{
		Window:           e.window,
		LatencyQuantiles: slices.Clone(e.quantiles),
		Requests:         make([]LevelTable[models.UriBucketStats], 0, len(e.requests)),
		Edges:            make([]LevelTable[models.TrafficBucketStats], 0, len(e.edges)),
		Counters:         e.Counters(),
	}
	for _, agg := range e.requests {
		out.Requests = append(out.Requests, LevelTable[models.UriBucketStats]{Level: agg.level, Table: agg.table})
	}
	for _, agg := range e.edges {
		out.Edges = append(out.Edges, LevelTable[models.TrafficBucketStats]{Level: agg.level, Table: agg.table})
	}
	return out, nil
}

func (e *engine) Counters() Counters {
	return Counters{
		RequestEvents:  e.requestEvents.Load(),
		EdgeEvents:     e.edgeEvents.Load(),
		MalformedSizes: e.malformedSizes.Load(),
	}
}
