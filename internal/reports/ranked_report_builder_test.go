package reports

import (
	"testing"
	"time"

	"edge-log-analytics/internal/aggregators"
	"edge-log-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flushedTables(t *testing.T, quantiles []float64, events ...models.Event) *aggregators.FlushedTables {
	t.Helper()

	engine, err := aggregators.NewEngine(aggregators.Config{
		Levels: []int{1, 2},
		Window: 60_000,
		Classifier: aggregators.ClassifierConfig{
			IOSMarker:     "iOS",
			AndroidMarker: "Android",
			WebMarker:     "livescore.com",
		},
		LatencyQuantiles: quantiles,
	})
	require.NoError(t, err)
	for _, ev := range events {
		require.NoError(t, engine.Ingest(ev))
	}
	tables, err := engine.Flush()
	require.NoError(t, err)
	return tables
}

func TestBuild_RequestRowsRankedByCountThenURI(t *testing.T) {
	t.Parallel()

	tables := flushedTables(t, nil,
		models.RequestEvent{Timestamp: 1, URI: "/b/x", ProcessingTimeMs: 5},
		models.RequestEvent{Timestamp: 2, URI: "/a/x", ProcessingTimeMs: 7},
		models.RequestEvent{Timestamp: 3, URI: "/c/x", ProcessingTimeMs: 1},
		models.RequestEvent{Timestamp: 4, URI: "/c/y", ProcessingTimeMs: 1},
		models.RequestEvent{Timestamp: 60_000, URI: "/late", ProcessingTimeMs: 3},
	)

	reports := NewRankedReportBuilder().Build(tables)
	require.Len(t, reports.Requests, 4, "two windows for each of two levels")

	first := reports.Requests[0]
	assert.Equal(t, 1, first.Level)
	assert.Equal(t, models.TimeWindow(0), first.Window)
	assert.Equal(t, time.Unix(0, 0).UTC(), first.WindowStart)
	assert.Nil(t, first.QuantileLabels)
	assert.Equal(t, []models.RequestReportRow{
		{URI: "/c", Percentage: 50, Count: 2, CumulativeProcessingTimeMs: 2},
		{URI: "/a", Percentage: 25, Count: 1, CumulativeProcessingTimeMs: 7},
		{URI: "/b", Percentage: 25, Count: 1, CumulativeProcessingTimeMs: 5},
	}, first.Rows)

	late := reports.Requests[1]
	assert.Equal(t, models.TimeWindow(1), late.Window)
	assert.Equal(t, time.UnixMilli(60_000).UTC(), late.WindowStart)
	assert.Equal(t, []models.RequestReportRow{{URI: "/late", Percentage: 100, Count: 1, CumulativeProcessingTimeMs: 3}}, late.Rows)

	level2 := reports.Requests[2]
	assert.Equal(t, 2, level2.Level)
	uris := make([]string, 0, len(level2.Rows))
	for _, row := range level2.Rows {
		uris = append(uris, row.URI)
	}
	assert.Equal(t, []string{"/a/x", "/b/x", "/c/x", "/c/y"}, uris)
}

func TestBuild_TrafficRows(t *testing.T) {
	t.Parallel()

	tables := flushedTables(t, nil,
		models.EdgeTrafficEvent{Timestamp: 1, URI: "/img/a", ResponseSizeBytes: "100", UserAgent: "LiveScore/iOS 3.2", Referer: "https://www.livescore.com/x"},
		models.EdgeTrafficEvent{Timestamp: 2, URI: "/img/b", ResponseSizeBytes: "300", UserAgent: "LiveScore/Android"},
		models.EdgeTrafficEvent{Timestamp: 3, URI: "/img/b", ResponseSizeBytes: "100", Referer: "https://www.livescore.com/"},
		models.EdgeTrafficEvent{Timestamp: 4, URI: "/zero", ResponseSizeBytes: "bogus"},
		models.EdgeTrafficEvent{Timestamp: 5, URI: "/js/a", ResponseSizeBytes: "100"},
	)

	reports := NewRankedReportBuilder().Build(tables)
	require.Len(t, reports.Traffic, 2)
	assert.Empty(t, reports.Requests)

	level2 := reports.Traffic[1]
	assert.Equal(t, 2, level2.Level)
	require.Len(t, level2.Rows, 4)

	top := level2.Rows[0]
	assert.Equal(t, "/img/b", top.URI)
	assert.Equal(t, uint64(2), top.Count)
	assert.Equal(t, uint64(400), top.TotalBytes)
	assert.InDelta(t, 40, top.CountRate, 1e-9)
	assert.InDelta(t, 66.666, top.TrafficRate, 1e-2)
	assert.Equal(t, map[models.ClientClass]float64{
		models.ClassIOS: 0, models.ClassAndroid: 75, models.ClassWeb: 25, models.ClassOther: 0,
	}, top.ClassPercentages)

	// equal bytes tie broken by ascending URI
	assert.Equal(t, "/img/a", level2.Rows[1].URI)
	assert.Equal(t, float64(100), level2.Rows[1].ClassPercentages[models.ClassIOS])
	assert.Equal(t, "/js/a", level2.Rows[2].URI)

	zero := level2.Rows[3]
	assert.Equal(t, "/zero", zero.URI)
	assert.Equal(t, uint64(0), zero.TotalBytes)
	assert.Zero(t, zero.TrafficRate)
	for _, class := range models.ClientClasses {
		assert.Zero(t, zero.ClassPercentages[class], "no bytes means 0%% for %s", class)
	}
}

func TestBuild_AllZeroBytesWindow(t *testing.T) {
	t.Parallel()

	tables := flushedTables(t, nil,
		models.EdgeTrafficEvent{Timestamp: 1, URI: "/a", ResponseSizeBytes: "0"},
		models.EdgeTrafficEvent{Timestamp: 2, URI: "/b", ResponseSizeBytes: "-"},
	)

	rows := NewRankedReportBuilder().Build(tables).Traffic[0].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "/a", rows[0].URI)
	for _, row := range rows {
		assert.Zero(t, row.TrafficRate)
		assert.Equal(t, float64(50), row.CountRate)
	}
}

func TestBuild_EmptyTablesProduceNoReports(t *testing.T) {
	t.Parallel()

	reports := NewRankedReportBuilder().Build(flushedTables(t, nil))
	assert.Empty(t, reports.Requests)
	assert.Empty(t, reports.Traffic)
}

func TestBuild_Quantiles(t *testing.T) {
	t.Parallel()

	events := make([]models.Event, 0, 100)
	for i := 1; i <= 100; i++ {
		events = append(events, models.RequestEvent{Timestamp: 1, URI: "/q", ProcessingTimeMs: uint64(i)})
	}
	reports := NewRankedReportBuilder().Build(flushedTables(t, []float64{0.5, 0.99}, events...))

	report := reports.Requests[0]
	assert.Equal(t, []string{"p50", "p99"}, report.QuantileLabels)
	require.Len(t, report.Rows, 1)
	require.Len(t, report.Rows[0].Quantiles, 2)
	assert.InDelta(t, 50, report.Rows[0].Quantiles[0], 3)
	assert.InDelta(t, 99, report.Rows[0].Quantiles[1], 3)
}

func TestQuantileLabels(t *testing.T) {
	t.Parallel()

	assert.Nil(t, QuantileLabels(nil))
	assert.Equal(t,
		[]string{"p50", "p95", "p99", "p99.9", "p5", "p0.1", "p75"},
		QuantileLabels([]float64{0.5, 0.95, 0.99, 0.999, 0.05, 0.001, 0.75}),
	)
}
