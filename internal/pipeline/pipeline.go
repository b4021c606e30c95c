package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-mask-pipeline/internal/checkpoint"
	"go-mask-pipeline/internal/db"
	"go-mask-pipeline/internal/mask"
	"go-mask-pipeline/internal/model"
	"go-mask-pipeline/internal/monitor"
)

// State is the orchestrator lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateCounting  State = "counting"
	StateStreaming State = "streaming"
	StateDraining  State = "draining"
	StateCompleted State = "completed"
	// StateStopped is a flushed, resumable stop after cancellation.
	StateStopped State = "stopped"
	// StateFailed is terminal: database unreachable after the retry budget.
	StateFailed State = "failed"
)

// Orchestrator drives one masking run over one collection: pull a cursor,
// group documents into adaptively sized batches, mask, write, checkpoint,
// retune. One instance owns one checkpoint identity; instances share no
// mutable state, so collections can be processed concurrently by
// independent orchestrators.
type Orchestrator struct {
	spec    model.MaskJobSpec
	source  db.Collection
	dest    db.Collection // nil unless copy mode
	masker  *mask.DocumentMasker
	ckpt    *checkpoint.Store
	monitor *monitor.Monitor
	tracker *RunTracker
	sizer   *batchSizer
	retry   retrySettings
	state   State
}

// NewOrchestrator wires a run. dest may be nil for in-place and dry runs.
func NewOrchestrator(
	spec model.MaskJobSpec,
	source db.Collection,
	dest db.Collection,
	masker *mask.DocumentMasker,
	ckpt *checkpoint.Store,
	mon *monitor.Monitor,
	tracker *RunTracker,
) *Orchestrator {
	return &Orchestrator{
		spec:    spec,
		source:  source,
		dest:    dest,
		masker:  masker,
		ckpt:    ckpt,
		monitor: mon,
		tracker: tracker,
		sizer:   newBatchSizer(spec.Batch, spec.Adaptive),
		retry:   resolveRetry(spec.Retry),
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) setState(s State) {
	o.state = s
	o.tracker.Status(string(s))
}

// Run executes the pipeline to completion, cancellation, or failure.
// Cancellation is cooperative and checked at batch boundaries only.
func (o *Orchestrator) Run(ctx context.Context) (model.RunResult, error) {
	fmt.Printf("🚀 Starting masking run %s: %s.%s (%s mode, dryRun=%v)\n",
		o.tracker.RunID, o.spec.SourceDB, o.spec.SourceCollection, o.spec.Mode, o.spec.DryRun)

	// Idle → Counting: resolve the query, narrowed by any resume cursor.
	o.setState(StateCounting)
	rec := o.ckpt.Load()
	if rec.Completed {
		fmt.Printf("✅ Checkpoint for %s is already completed; reset it to re-run\n", rec.ComponentID)
		o.setState(StateCompleted)
		return o.tracker.Result(StateCompleted), nil
	}
	query := db.Query(o.spec.Query)
	if rec.LastProcessedKey != nil {
		fmt.Printf("⏯️ Resuming after key %v (%d documents already processed)\n",
			rec.LastProcessedKey, rec.DocumentsProcessed)
		query = db.ResumeAfter(query, rec.LastProcessedKey)
	}

	var total int64
	if err := withRetry(ctx, "count documents", o.retry, func() error {
		var err error
		total, err = o.source.Count(ctx, query)
		return err
	}); err != nil {
		return o.fail(fmt.Errorf("counting failed: %w", err))
	}
	o.tracker.SetTotal(total)
	fmt.Printf("🔢 %d documents to process\n", total)

	// Counting → Streaming: open the cursor and start pulling batches.
	var cursor db.Cursor
	if err := withRetry(ctx, "open cursor", o.retry, func() error {
		var err error
		cursor, err = o.source.Find(ctx, query, int32(o.sizer.Size()))
		return err
	}); err != nil {
		return o.fail(fmt.Errorf("opening cursor failed: %w", err))
	}
	defer cursor.Close(context.Background())

	// Dry runs verify masking only; they never touch the durable
	// checkpoint, so a later real run still processes everything.
	if !o.spec.DryRun {
		o.ckpt.StartAutoFlush()
		defer o.ckpt.Close()
	}
	o.monitor.Start()
	defer o.monitor.Stop()
	o.setState(StateStreaming)

	processed := rec.DocumentsProcessed
	size := o.sizer.Size()
	batch := make([]model.Document, 0, size)
	batchNo := 0
	stopped := false

	for cursor.Next(ctx) {
		batch = append(batch, cursor.Document())
		if len(batch) < size {
			continue
		}

		batchNo++
		processed = o.processBatch(ctx, batchNo, batch, processed)

		// Cancellation is checked between batches, never mid-batch.
		if ctx.Err() != nil {
			stopped = true
			break
		}
		size = o.sizer.Next(o.monitor.Sample())
		batch = make([]model.Document, 0, size)
	}

	if !stopped && ctx.Err() != nil {
		stopped = true
	}
	if stopped {
		// Flushed, non-completed stop state; the checkpoint stays resumable.
		if !o.spec.DryRun {
			o.ckpt.Update(processed, nil, true)
		}
		o.setState(StateStopped)
		fmt.Printf("⏹️ Run %s stopped after %d documents (resumable)\n", o.tracker.RunID, processed)
		return o.result(StateStopped), nil
	}
	if err := cursor.Err(); err != nil {
		return o.fail(fmt.Errorf("cursor failed: %w", err))
	}

	// Streaming → Draining: the final partial batch goes the same way.
	o.setState(StateDraining)
	if len(batch) > 0 {
		batchNo++
		processed = o.processBatch(ctx, batchNo, batch, processed)
	}

	// Draining → Completed.
	if !o.spec.DryRun {
		o.ckpt.MarkCompleted()
	}
	o.setState(StateCompleted)
	result := o.result(StateCompleted)
	fmt.Printf("🏁 Run %s completed: %d documents, %d errors, %.0f docs/s\n",
		o.tracker.RunID, result.DocumentsProcessed, result.DocumentsWithErrors, result.Throughput)
	return result, nil
}

// processBatch masks and writes one batch and advances the checkpoint.
// It returns the new cumulative processed count. A failed document or a
// write budget exhaustion never stops the run.
func (o *Orchestrator) processBatch(ctx context.Context, batchNo int, batch []model.Document, processed int64) int64 {
	start := time.Now()

	masked := make([]model.Document, 0, len(batch))
	errCount := 0
	for _, doc := range batch {
		m, err := o.maskDocument(doc)
		if err != nil {
			errCount++
			o.tracker.Error("mask", err)
			log.Printf("❌ skipping document %v: %v", doc.Key(), err)
			continue
		}
		masked = append(masked, m)
	}

	if !o.spec.DryRun && len(masked) > 0 {
		if err := o.writeBatch(ctx, masked); err != nil {
			errCount = len(batch)
			o.tracker.Error("write", err)
			o.tracker.BatchFailed()
			log.Printf("❌ batch %d write budget exhausted, continuing with next batch: %v", batchNo, err)
		}
	}

	processed += int64(len(batch))
	if !o.spec.DryRun {
		o.ckpt.Update(processed, batch[len(batch)-1].Key(), false)
	}

	rs := o.monitor.Sample()
	elapsed := time.Since(start)
	metrics := model.BatchMetrics{
		BatchNumber:   batchNo,
		Size:          len(batch),
		ElapsedMs:     elapsed.Milliseconds(),
		ErrorCount:    errCount,
		CPUPercent:    rs.CPUPercent,
		MemoryPercent: rs.MemoryPercent,
	}
	if elapsed > 0 {
		metrics.Throughput = float64(len(batch)) / elapsed.Seconds()
	}
	o.tracker.RecordBatch(metrics)
	return processed
}

// maskDocument confines a traversal panic to the offending document.
func (o *Orchestrator) maskDocument(doc model.Document) (masked model.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("masking document %v panicked: %v", doc.Key(), r)
		}
	}()
	return o.masker.Mask(doc), nil
}

// writeBatch dispatches one unordered bulk write with the retry budget.
func (o *Orchestrator) writeBatch(ctx context.Context, masked []model.Document) error {
	return withRetry(ctx, "batch write", o.retry, func() error {
		var err error
		if o.spec.Mode == model.ModeCopy {
			_, err = o.dest.InsertMany(ctx, masked)
		} else {
			_, err = o.source.BulkReplace(ctx, masked)
		}
		return err
	})
}

func (o *Orchestrator) fail(err error) (model.RunResult, error) {
	if !o.spec.DryRun {
		o.ckpt.SetError(err.Error())
	}
	o.setState(StateFailed)
	o.tracker.Error("orchestrator", err)
	return o.result(StateFailed), err
}

// result folds the engine's per-value degradation tallies into the run
// summary before the tracker builds it.
func (o *Orchestrator) result(state State) model.RunResult {
	w := o.masker.Warnings()
	o.tracker.RecordWarnings(w.UnknownKind, w.DateParseFailures)
	return o.tracker.Result(state)
}
