package pipeline

import (
	"fmt"
	"log"
	"sync"
	"time"

	"go-mask-pipeline/internal/model"
	"go-mask-pipeline/internal/store"
)

// RunTracker accumulates run-level counters and mirrors them into the
// run ledger. All mutation happens under a mutex; the ledger writes are
// best effort and never block the masking loop beyond the lock.
type RunTracker struct {
	RunID string

	mu            sync.Mutex
	startTime     time.Time
	total         int64
	processed     int64
	errorDocs     int64
	batches       int
	failedBatches int
	unknownKind   int64
	dateParse     int64
}

// NewRunTracker starts tracking one run.
func NewRunTracker(runID string) *RunTracker {
	return &RunTracker{RunID: runID, startTime: time.Now()}
}

// SetTotal records the document estimate obtained in the counting state.
func (t *RunTracker) SetTotal(total int64) {
	t.mu.Lock()
	t.total = total
	t.mu.Unlock()
}

// Status persists a state transition to the ledger.
func (t *RunTracker) Status(status string) {
	if err := store.UpdateRunStatus(t.RunID, status); err != nil {
		log.Printf("❌ failed to update run status: %v", err)
	}
	store.SaveRunLog(t.RunID, "orchestrator", "info", "state transition", map[string]interface{}{
		"status": status,
	})
}

// RecordBatch folds one batch's metrics into the run counters and the
// metrics sink, printing a progress line every batch.
func (t *RunTracker) RecordBatch(m model.BatchMetrics) {
	t.mu.Lock()
	t.processed += int64(m.Size)
	t.errorDocs += int64(m.ErrorCount)
	t.batches++
	processed, total := t.processed, t.total
	t.mu.Unlock()

	if err := store.SaveBatchMetrics(t.RunID, m); err != nil {
		log.Printf("❌ failed to save batch metrics: %v", err)
	}

	fmt.Printf("📦 Batch %d: %d docs in %dms (%.0f docs/s, %d errors) — %d/%d processed\n",
		m.BatchNumber, m.Size, m.ElapsedMs, m.Throughput, m.ErrorCount, processed, total)
}

// BatchFailed counts a batch whose write budget was exhausted.
func (t *RunTracker) BatchFailed() {
	t.mu.Lock()
	t.failedBatches++
	t.mu.Unlock()
}

// RecordWarnings stores the engine's per-value degradation tallies for
// the run summary and logs them to the ledger when any occurred.
func (t *RunTracker) RecordWarnings(unknownKind, dateParseFailures int64) {
	t.mu.Lock()
	t.unknownKind = unknownKind
	t.dateParse = dateParseFailures
	t.mu.Unlock()

	if unknownKind == 0 && dateParseFailures == 0 {
		return
	}
	store.SaveRunLog(t.RunID, "rules", "warn", "degraded value maskings", map[string]interface{}{
		"unknownKind":       unknownKind,
		"dateParseFailures": dateParseFailures,
	})
}

// Error persists one recovered error to the ledger.
func (t *RunTracker) Error(stage string, err error) {
	if err == nil {
		return
	}
	if e := store.SaveRunError(t.RunID, fmt.Errorf("[%s] %w", stage, err)); e != nil {
		log.Printf("❌ failed to save run error: %v", e)
	}
}

// Result snapshots the counters into the run summary.
func (t *RunTracker) Result(state State) model.RunResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.startTime)
	res := model.RunResult{
		RunID:               t.RunID,
		State:               string(state),
		DocumentsProcessed:  t.processed,
		DocumentsWithErrors: t.errorDocs,
		BatchesProcessed:    t.batches,
		BatchesFailed:       t.failedBatches,
		UnknownKindWarnings: t.unknownKind,
		DateParseWarnings:   t.dateParse,
		Elapsed:             elapsed,
	}
	if elapsed > 0 {
		res.Throughput = float64(t.processed) / elapsed.Seconds()
	}
	return res
}
