package models

import "time"

// RunPhase is the lifecycle stage of a single analyzer run.
type RunPhase string

const (
	PhaseStarting    RunPhase = "starting"
	PhaseDiscovering RunPhase = "discovering"
	PhaseAggregating RunPhase = "aggregating"
	PhaseReporting   RunPhase = "reporting"
	PhaseCompleted   RunPhase = "completed"
	PhaseFailed      RunPhase = "failed"
)

// RunStatus is a point-in-time snapshot of run progress.
type RunStatus struct {
	RunID           string    `json:"runId"`
	Phase           RunPhase  `json:"phase"`
	StartedAt       time.Time `json:"startedAt"`
	FilesDiscovered int       `json:"filesDiscovered"`
	FilesWalked     int       `json:"filesWalked"`
	FilesFailed     int       `json:"filesFailed"`
	RequestEvents   uint64    `json:"requestEvents"`
	EdgeEvents      uint64    `json:"edgeEvents"`
	DecodeFailures  int       `json:"decodeFailures"`
	MalformedSizes  uint64    `json:"malformedSizes"`
	ReportsWritten  int       `json:"reportsWritten"`
	Error           string    `json:"error,omitempty"`
}

// Done reports whether the run reached a terminal phase.
func (s RunStatus) Done() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}
