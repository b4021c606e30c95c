package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mask-pipeline/internal/model"
)

func TestNilLedgerIsNoOp(t *testing.T) {
	db = nil

	assert.NoError(t, SaveRun("r", model.MaskJobSpec{}))
	assert.NoError(t, UpdateRunStatus("r", "streaming"))
	assert.NoError(t, SaveRunError("r", fmt.Errorf("boom")))
	assert.NoError(t, SaveBatchMetrics("r", model.BatchMetrics{}))
	assert.NoError(t, SaveRunLog("r", "orchestrator", "info", "msg", nil))
}

func TestLedgerRoundTrip(t *testing.T) {
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "ledger.db")))
	defer func() { db = nil }()

	spec := model.MaskJobSpec{SourceDB: "clinic", SourceCollection: "patients"}
	require.NoError(t, SaveRun("run-1", spec))
	require.NoError(t, UpdateRunStatus("run-1", "streaming"))
	require.NoError(t, SaveRunError("run-1", fmt.Errorf("[write] injected failure")))
	require.NoError(t, SaveRunLog("run-1", "orchestrator", "info", "state transition",
		map[string]interface{}{"status": "streaming"}))

	for i := 1; i <= 3; i++ {
		require.NoError(t, SaveBatchMetrics("run-1", model.BatchMetrics{
			BatchNumber: i, Size: 50, ElapsedMs: 100, Throughput: 500,
			CPUPercent: 40, MemoryPercent: 60,
		}))
	}

	run, err := GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "streaming", run["status"])

	runs, err := ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	errs, err := GetRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0]["error"], "injected failure")

	metrics, err := GetRunMetrics("run-1")
	require.NoError(t, err)
	assert.Len(t, metrics, 3)

	logs, err := GetRunLogs("run-1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	progress, err := GetRunProgress("run-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, progress["batchesProcessed"])
	assert.EqualValues(t, 150, progress["documentsProcessed"])
}
