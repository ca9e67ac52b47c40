package models

import (
	"github.com/caio/go-tdigest/v4"
)

// UriBucketStats accumulates request events for one (level, window, URI key).
type UriBucketStats struct {
	Count                      uint64 `json:"count"`
	CumulativeProcessingTimeMs uint64 `json:"cumulativeProcessingTimeMs"`

	// ProcessingTimes is only kept when latency quantiles are enabled.
	ProcessingTimes *tdigest.TDigest `json:"-"`
}

// Add accounts one request that took processingTimeMs.
func (s *UriBucketStats) Add(processingTimeMs uint64) error {
	s.Count++
	s.CumulativeProcessingTimeMs += processingTimeMs
	if s.ProcessingTimes != nil {
		return s.ProcessingTimes.Add(float64(processingTimeMs))
	}
	return nil
}

// Merge folds other into s.
func (s *UriBucketStats) Merge(other *UriBucketStats) error {
	s.Count += other.Count
	s.CumulativeProcessingTimeMs += other.CumulativeProcessingTimeMs
	if s.ProcessingTimes != nil && other.ProcessingTimes != nil {
		return s.ProcessingTimes.Merge(other.ProcessingTimes)
	}
	return nil
}

// Quantile returns the estimated processing time at q, or 0 when no digest is kept.
func (s *UriBucketStats) Quantile(q float64) float64 {
	if s.ProcessingTimes == nil || s.Count == 0 {
		return 0
	}
	return s.ProcessingTimes.Quantile(q)
}

// TrafficBucketStats accumulates edge traffic for one (level, window, URI key).
// BytesByClass always sums to TotalBytes.
type TrafficBucketStats struct {
	Count        uint64     `json:"count"`
	TotalBytes   uint64     `json:"totalBytes"`
	BytesByClass ClassBytes `json:"bytesByClass"`
}

// Add accounts one response of size bytes served to class.
func (s *TrafficBucketStats) Add(size uint64, class ClientClass) {
	s.Count++
	s.TotalBytes += size
	s.BytesByClass[class] += size
}

// Merge folds other into s.
func (s *TrafficBucketStats) Merge(other *TrafficBucketStats) {
	s.Count += other.Count
	s.TotalBytes += other.TotalBytes
	for i := range s.BytesByClass {
		s.BytesByClass[i] += other.BytesByClass[i]
	}
}
