package app

import (
	"sync"
	"time"

	"edge-log-analytics/internal/aggregators"
	"edge-log-analytics/internal/models"
)

// runTracker collects run progress for the status server and the end-of-run summary.
// Every method is safe for concurrent use.
type runTracker struct {
	mu      sync.Mutex
	status  models.RunStatus
	engines []aggregators.Engine
}

func newRunTracker(runID string, startedAt time.Time) *runTracker {
	return &runTracker{
		status: models.RunStatus{
			RunID:     runID,
			Phase:     models.PhaseStarting,
			StartedAt: startedAt,
		},
	}
}

// Status implements internalhttp.StatusProvider.
func (t *runTracker) Status() (models.RunStatus, bool) {
	return t.snapshot(), true
}

func (t *runTracker) snapshot() models.RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.status
	if t.engines != nil {
		counters := sumCounters(t.engines)
		status.RequestEvents = counters.RequestEvents
		status.EdgeEvents = counters.EdgeEvents
		status.MalformedSizes = counters.MalformedSizes
	}
	return status
}

func sumCounters(engines []aggregators.Engine) aggregators.Counters {
	var counters aggregators.Counters
	for _, engine := range engines {
		c := engine.Counters()
		counters.RequestEvents += c.RequestEvents
		counters.EdgeEvents += c.EdgeEvents
		counters.MalformedSizes += c.MalformedSizes
	}
	return counters
}

func (t *runTracker) setPhase(phase models.RunPhase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = phase
}

// watch makes live engine counters part of every snapshot.
func (t *runTracker) watch(engines []aggregators.Engine) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engines = engines
}

// freeze replaces live counters with final ones. Engines are no longer read once shards start merging.
func (t *runTracker) freeze(counters aggregators.Counters) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engines = nil
	t.status.RequestEvents = counters.RequestEvents
	t.status.EdgeEvents = counters.EdgeEvents
	t.status.MalformedSizes = counters.MalformedSizes
}

func (t *runTracker) filesDiscovered(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.FilesDiscovered = n
}

func (t *runTracker) fileWalked() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.FilesWalked++
}

func (t *runTracker) fileFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.FilesFailed++
}

func (t *runTracker) decodeFailures(n int) {
	if n == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.DecodeFailures += n
}

func (t *runTracker) reportWritten() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.ReportsWritten++
}

func (t *runTracker) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = models.PhaseFailed
	t.status.Error = err.Error()
}
