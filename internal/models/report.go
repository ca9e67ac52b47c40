package models

import "time"

// RequestReportRow is one ranked line of a request report.
type RequestReportRow struct {
	URI                        string    `json:"uri"`
	Percentage                 float64   `json:"percentage"`
	Count                      uint64    `json:"count"`
	CumulativeProcessingTimeMs uint64    `json:"cumulativeProcessingTimeMs"`
	Quantiles                  []float64 `json:"quantiles,omitempty"`
}

// TrafficReportRow is one ranked line of an edge traffic report.
type TrafficReportRow struct {
	URI              string                  `json:"uri"`
	CountRate        float64                 `json:"countRate"`
	TrafficRate      float64                 `json:"trafficRate"`
	Count            uint64                  `json:"count"`
	TotalBytes       uint64                  `json:"totalBytes"`
	ClassPercentages map[ClientClass]float64 `json:"classPercentages"`
}

// WindowReport is the ranked output for one (level, window) pair.
type WindowReport[R any] struct {
	Level       int        `json:"level"`
	Window      TimeWindow `json:"window"`
	WindowStart time.Time  `json:"windowStart"`
	// QuantileLabels names the Quantiles columns of request rows (e.g. "p95").
	QuantileLabels []string `json:"quantileLabels,omitempty"`
	Rows           []R      `json:"rows"`
}

type (
	RequestWindowReport = WindowReport[RequestReportRow]
	TrafficWindowReport = WindowReport[TrafficReportRow]
)
