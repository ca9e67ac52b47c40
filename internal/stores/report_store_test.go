package stores

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"edge-log-analytics/internal/models"
	"edge-log-analytics/internal/shared/filestorages"
	"edge-log-analytics/internal/shared/filestorages/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var windowStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

const day = models.WindowDuration(86_400_000)

func expectPut(t *testing.T, m *mocks.MockFileStorage, key string, want string) {
	t.Helper()

	m.EXPECT().
		Put(gomock.Any(), key, gomock.Any(), filestorages.PutOptions{AllowOverwrite: true}).
		DoAndReturn(func(ctx context.Context, key string, r io.Reader, opts filestorages.PutOptions) (*filestorages.PutResult, error) {
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, want, string(data))
			return &filestorages.PutResult{FileKey: key}, nil
		})
}

func TestNewReportStore_Format(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockFileStorage := mocks.NewMockFileStorage(ctrl)

	for _, format := range []string{FormatCSV, FormatJSON} {
		store, err := NewReportStore(mockFileStorage, format, day)
		require.NoError(t, err)
		assert.NotNil(t, store)
	}

	_, err := NewReportStore(mockFileStorage, "xml", day)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewReportStore(mockFileStorage, FormatCSV, 0)
	assert.ErrorIs(t, err, models.ErrInvalidWindowDuration)
}

func TestReportStore_SubMinuteWindowsGetDistinctKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		window   models.WindowDuration
		starts   []time.Time
		expected []string
	}{
		{
			name:     "seconds",
			window:   30_000,
			starts:   []time.Time{windowStart, windowStart.Add(30 * time.Second)},
			expected: []string{"2024-03-01-00-00-00/L1.csv", "2024-03-01-00-00-30/L1.csv"},
		},
		{
			name:     "milliseconds",
			window:   250,
			starts:   []time.Time{windowStart, windowStart.Add(250 * time.Millisecond)},
			expected: []string{"2024-03-01-00-00-00.000/L1.csv", "2024-03-01-00-00-00.250/L1.csv"},
		},
		{
			name:     "whole minutes",
			window:   900_000,
			starts:   []time.Time{windowStart, windowStart.Add(15 * time.Minute)},
			expected: []string{"2024-03-01-00-00/L1.csv", "2024-03-01-00-15/L1.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fileStorage, err := filestorages.NewFileStorage(t.TempDir())
			require.NoError(t, err)
			store, err := NewReportStore(fileStorage, FormatCSV, tt.window)
			require.NoError(t, err)

			var keys []string
			for _, start := range tt.starts {
				key, err := store.PutRequestReport(context.Background(), &models.RequestWindowReport{Level: 1, WindowStart: start})
				require.NoError(t, err)
				keys = append(keys, key)
			}
			assert.Equal(t, tt.expected, keys)
		})
	}
}

func TestReportStore_PutRequestReport_CSV(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockFileStorage := mocks.NewMockFileStorage(ctrl)
	store, err := NewReportStore(mockFileStorage, FormatCSV, day)
	require.NoError(t, err)

	report := &models.RequestWindowReport{
		Level:       2,
		WindowStart: windowStart,
		Rows: []models.RequestReportRow{
			{URI: "/api/matches", Percentage: 66.666666, Count: 2, CumulativeProcessingTimeMs: 40},
			{URI: "/api/a,b", Percentage: 33.333333, Count: 1, CumulativeProcessingTimeMs: 7},
		},
	}

	expectPut(t, mockFileStorage, "2024-03-01-00-00/L2.csv",
		"uri,percentage,count,totalTime\r\n"+
			"/api/matches,66.67%,2,40\r\n"+
			"\"/api/a,b\",33.33%,1,7\r\n")

	key, err := store.PutRequestReport(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01-00-00/L2.csv", key)
}

func TestReportStore_PutRequestReport_Quantiles(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockFileStorage := mocks.NewMockFileStorage(ctrl)
	store, err := NewReportStore(mockFileStorage, FormatCSV, day)
	require.NoError(t, err)

	report := &models.RequestWindowReport{
		Level:          1,
		WindowStart:    time.Date(2024, 3, 1, 13, 45, 0, 0, time.UTC),
		QuantileLabels: []string{"p50", "p99"},
		Rows:           []models.RequestReportRow{{URI: "/a", Percentage: 100, Count: 3, CumulativeProcessingTimeMs: 9, Quantiles: []float64{3, 4.126}}},
	}

	expectPut(t, mockFileStorage, "2024-03-01-13-45/L1.csv",
		"uri,percentage,count,totalTime,p50,p99\r\n/a,100.00%,3,9,3.00,4.13\r\n")

	_, err = store.PutRequestReport(context.Background(), report)
	require.NoError(t, err)
}

func TestReportStore_PutTrafficReport_CSV(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockFileStorage := mocks.NewMockFileStorage(ctrl)
	store, err := NewReportStore(mockFileStorage, FormatCSV, day)
	require.NoError(t, err)

	report := &models.TrafficWindowReport{
		Level:       3,
		WindowStart: windowStart,
		Rows: []models.TrafficReportRow{{
			URI: "/img", CountRate: 50, TrafficRate: 80, Count: 1, TotalBytes: 400,
			ClassPercentages: map[models.ClientClass]float64{models.ClassIOS: 75, models.ClassWeb: 25},
		}},
	}

	expectPut(t, mockFileStorage, "2024-03-01-00-00/edge-L3.csv",
		"uri,countRate,trafficRate,count,totalBytes,iOS,Android,Web,Other\r\n"+
			"/img,50.00%,80.00%,1,400,75.00%,0.00%,25.00%,0.00%\r\n")

	key, err := store.PutTrafficReport(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01-00-00/edge-L3.csv", key)
}

func TestReportStore_PutTrafficReport_JSON(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockFileStorage := mocks.NewMockFileStorage(ctrl)
	store, err := NewReportStore(mockFileStorage, FormatJSON, day)
	require.NoError(t, err)

	report := &models.TrafficWindowReport{
		Level:       1,
		Window:      19783,
		WindowStart: windowStart,
		Rows: []models.TrafficReportRow{{
			URI: "/img", CountRate: 100, TrafficRate: 100, Count: 1, TotalBytes: 10,
			ClassPercentages: map[models.ClientClass]float64{models.ClassAndroid: 100},
		}},
	}

	mockFileStorage.EXPECT().
		Put(gomock.Any(), "2024-03-01-00-00/edge-L1.json", gomock.Any(), filestorages.PutOptions{AllowOverwrite: true}).
		DoAndReturn(func(ctx context.Context, key string, r io.Reader, opts filestorages.PutOptions) (*filestorages.PutResult, error) {
			var decoded map[string]any
			require.NoError(t, json.NewDecoder(r).Decode(&decoded))
			assert.Equal(t, float64(1), decoded["level"])
			assert.Equal(t, "2024-03-01T00:00:00Z", decoded["windowStart"])
			row := decoded["rows"].([]any)[0].(map[string]any)
			assert.Equal(t, map[string]any{"Android": float64(100)}, row["classPercentages"])
			return &filestorages.PutResult{FileKey: key}, nil
		})

	_, err = store.PutTrafficReport(context.Background(), report)
	require.NoError(t, err)
}

func TestReportStore_PutError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockFileStorage := mocks.NewMockFileStorage(ctrl)
	store, err := NewReportStore(mockFileStorage, FormatCSV, day)
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	mockFileStorage.EXPECT().
		Put(gomock.Any(), "2024-03-01-00-00/L1.csv", gomock.Any(), gomock.Any()).
		Return(nil, diskFull)

	_, err = store.PutRequestReport(context.Background(), &models.RequestWindowReport{Level: 1, WindowStart: windowStart})
	assert.ErrorIs(t, err, diskFull)
	assert.Contains(t, err.Error(), "2024-03-01-00-00/L1.csv")
}

func TestReportStore_WritesThroughFileStorage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fileStorage, err := filestorages.NewFileStorage(root)
	require.NoError(t, err)
	store, err := NewReportStore(fileStorage, FormatCSV, day)
	require.NoError(t, err)

	key, err := store.PutRequestReport(context.Background(), &models.RequestWindowReport{Level: 7, WindowStart: windowStart})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "uri,percentage,count,totalTime\r\n", string(data))
}
