package stores

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"edge-log-analytics/internal/models"
	"edge-log-analytics/internal/shared/filestorages"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var ErrUnsupportedFormat = errors.New("unsupported report format")

var (
	requestHeader = []string{"uri", "percentage", "count", "totalTime"}
	trafficHeader = []string{"uri", "countRate", "trafficRate", "count", "totalBytes"}
)

// ReportStore writes one file per (level, window) report:
// <YYYY-MM-DD-HH-mm>/L<level>.<format> for requests and
// <YYYY-MM-DD-HH-mm>/edge-L<level>.<format> for edge traffic. Windows that are not whole
// minutes get seconds (and milliseconds when needed) appended to the directory name.
// Existing files are replaced.
//
//go:generate mockgen -source=report_store.go -destination=./mocks/report_store_mock.go -package=mocks
type ReportStore interface {
	PutRequestReport(ctx context.Context, report *models.RequestWindowReport) (string, error)
	PutTrafficReport(ctx context.Context, report *models.TrafficWindowReport) (string, error)
}

type reportStore struct {
	fileStorage filestorages.FileStorage
	format      string
	window      models.WindowDuration
}

func NewReportStore(fileStorage filestorages.FileStorage, format string, window models.WindowDuration) (ReportStore, error) {
	switch format {
	case FormatCSV, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: %dms", models.ErrInvalidWindowDuration, window)
	}
	return &reportStore{fileStorage: fileStorage, format: format, window: window}, nil
}

func (s *reportStore) PutRequestReport(ctx context.Context, report *models.RequestWindowReport) (string, error) {
	var data []byte
	var err error
	if s.format == FormatJSON {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = requestCSV(report)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render request report: %w", err)
	}
	return s.put(ctx, models.KindRequest, s.getKey(report.WindowStart, "L", report.Level), data)
}

func (s *reportStore) PutTrafficReport(ctx context.Context, report *models.TrafficWindowReport) (string, error) {
	var data []byte
	var err error
	if s.format == FormatJSON {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = trafficCSV(report)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render traffic report: %w", err)
	}
	return s.put(ctx, models.KindEdge, s.getKey(report.WindowStart, "edge-L", report.Level), data)
}

func (s *reportStore) put(ctx context.Context, kind models.EventKind, key string, data []byte) (string, error) {
	result, err := s.fileStorage.Put(ctx, key, bytes.NewReader(data), filestorages.PutOptions{AllowOverwrite: true})
	if err != nil {
		return "", fmt.Errorf("failed to put report %s: %w", key, err)
	}
	metricReportWrittenTotal.WithLabelValues(string(kind), s.format).Inc()
	return result.FileKey, nil
}

func (s *reportStore) getKey(windowStart time.Time, prefix string, level int) string {
	return fmt.Sprintf("%s/%s%d.%s", s.window.FormatStart(windowStart), prefix, level, s.format)
}

func requestCSV(report *models.RequestWindowReport) ([]byte, error) {
	records := make([][]string, 0, len(report.Rows)+1)
	header := append(slices.Clone(requestHeader), report.QuantileLabels...)
	records = append(records, header)
	for _, row := range report.Rows {
		record := []string{
			row.URI,
			formatPercentage(row.Percentage),
			strconv.FormatUint(row.Count, 10),
			strconv.FormatUint(row.CumulativeProcessingTimeMs, 10),
		}
		for _, q := range row.Quantiles {
			record = append(record, strconv.FormatFloat(q, 'f', 2, 64))
		}
		records = append(records, record)
	}
	return writeCSV(records)
}

func trafficCSV(report *models.TrafficWindowReport) ([]byte, error) {
	records := make([][]string, 0, len(report.Rows)+1)
	header := slices.Clone(trafficHeader)
	for _, class := range models.ClientClasses {
		header = append(header, class.String())
	}
	records = append(records, header)
	for _, row := range report.Rows {
		record := []string{
			row.URI,
			formatPercentage(row.CountRate),
			formatPercentage(row.TrafficRate),
			strconv.FormatUint(row.Count, 10),
			strconv.FormatUint(row.TotalBytes, 10),
		}
		for _, class := range models.ClientClasses {
			record = append(record, formatPercentage(row.ClassPercentages[class]))
		}
		records = append(records, record)
	}
	return writeCSV(records)
}

// writeCSV renders records the way spreadsheet tools expect them, CRLF terminated.
func writeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatPercentage(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
