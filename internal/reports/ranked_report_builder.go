package reports

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"edge-log-analytics/internal/aggregators"
	"edge-log-analytics/internal/models"
)

// Reports holds every (level, window) report of a run, levels ascending then windows ascending.
type Reports struct {
	Requests []models.RequestWindowReport
	Traffic  []models.TrafficWindowReport
}

// RankedReportBuilder turns frozen aggregation tables into ranked rows.
//
//go:generate mockgen -source=ranked_report_builder.go -destination=./mocks/ranked_report_builder_mock.go -package=mocks
type RankedReportBuilder interface {
	Build(tables *aggregators.FlushedTables) *Reports
}

type rankedReportBuilder struct{}

func NewRankedReportBuilder() RankedReportBuilder {
	return &rankedReportBuilder{}
}

func (b *rankedReportBuilder) Build(tables *aggregators.FlushedTables) *Reports {
	out := &Reports{}
	for _, lt := range tables.Requests {
		out.Requests = append(out.Requests, BuildRequestReports(lt.Level, lt.Table, tables.Window, tables.LatencyQuantiles)...)
	}
	for _, lt := range tables.Edges {
		out.Traffic = append(out.Traffic, BuildTrafficReports(lt.Level, lt.Table, tables.Window)...)
	}
	return out
}

// BuildRequestReports ranks each window of a request table by count descending, ties by URI
// ascending. quantiles adds one estimated processing time column per value.
func BuildRequestReports(level int, table *aggregators.AggregationTable[models.UriBucketStats], window models.WindowDuration, quantiles []float64) []models.RequestWindowReport {
	labels := QuantileLabels(quantiles)
	reports := make([]models.RequestWindowReport, 0, table.Len())
	for _, w := range table.Windows() {
		buckets := table.Buckets(w)

		var totalCount uint64
		for _, stats := range buckets {
			totalCount += stats.Count
		}

		rows := make([]models.RequestReportRow, 0, len(buckets))
		for key, stats := range buckets {
			row := models.RequestReportRow{
				URI:                        key,
				Percentage:                 percentage(stats.Count, totalCount),
				Count:                      stats.Count,
				CumulativeProcessingTimeMs: stats.CumulativeProcessingTimeMs,
			}
			if len(quantiles) > 0 {
				row.Quantiles = make([]float64, len(quantiles))
				for i, q := range quantiles {
					row.Quantiles[i] = stats.Quantile(q)
				}
			}
			rows = append(rows, row)
		}
		slices.SortFunc(rows, func(a, b models.RequestReportRow) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			return strings.Compare(a.URI, b.URI)
		})

		reports = append(reports, models.RequestWindowReport{
			Level:          level,
			Window:         w,
			WindowStart:    window.Start(w),
			QuantileLabels: labels,
			Rows:           rows,
		})
	}
	return reports
}

// BuildTrafficReports ranks each window of an edge table by bytes descending, ties by URI
// ascending.
func BuildTrafficReports(level int, table *aggregators.AggregationTable[models.TrafficBucketStats], window models.WindowDuration) []models.TrafficWindowReport {
	reports := make([]models.TrafficWindowReport, 0, table.Len())
	for _, w := range table.Windows() {
		buckets := table.Buckets(w)

		var totalCount, totalBytes uint64
		for _, stats := range buckets {
			totalCount += stats.Count
			totalBytes += stats.TotalBytes
		}

		rows := make([]models.TrafficReportRow, 0, len(buckets))
		for key, stats := range buckets {
			classes := make(map[models.ClientClass]float64, len(models.ClientClasses))
			for _, class := range models.ClientClasses {
				classes[class] = percentage(stats.BytesByClass[class], stats.TotalBytes)
			}
			rows = append(rows, models.TrafficReportRow{
				URI:              key,
				CountRate:        percentage(stats.Count, totalCount),
				TrafficRate:      percentage(stats.TotalBytes, totalBytes),
				Count:            stats.Count,
				TotalBytes:       stats.TotalBytes,
				ClassPercentages: classes,
			})
		}
		slices.SortFunc(rows, func(a, b models.TrafficReportRow) int {
			if c := cmp.Compare(b.TotalBytes, a.TotalBytes); c != 0 {
				return c
			}
			return strings.Compare(a.URI, b.URI)
		})

		reports = append(reports, models.TrafficWindowReport{
			Level:       level,
			Window:      w,
			WindowStart: window.Start(w),
			Rows:        rows,
		})
	}
	return reports
}

// QuantileLabels names quantiles as percentiles: 0.5 -> p50, 0.95 -> p95, 0.999 -> p99.9.
func QuantileLabels(quantiles []float64) []string {
	if len(quantiles) == 0 {
		return nil
	}
	labels := make([]string, 0, len(quantiles))
	for _, q := range quantiles {
		digits := strings.TrimPrefix(strconv.FormatFloat(q, 'f', -1, 64), "0.")
		for len(digits) < 2 {
			digits += "0"
		}
		label := "p" + strings.TrimLeft(digits[:2], "0")
		if label == "p" {
			label = "p0"
		}
		if len(digits) > 2 {
			label += "." + digits[2:]
		}
		labels = append(labels, label)
	}
	return labels
}

// percentage is part/total*100, or 0 when total is 0.
func percentage(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
