package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-mask-pipeline/internal/checkpoint"
	"go-mask-pipeline/internal/model"
	"go-mask-pipeline/internal/pipeline"
	"go-mask-pipeline/internal/store"
)

// CreateRun creates a new masking run
// @Summary Create a new masking run
// @Description Create and start a masking run with the provided job specification
// @Tags runs
// @Accept json
// @Produce json
// @Param run body model.MaskJobSpec true "Masking job specification"
// @Success 200 {object} map[string]interface{} "Run created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func CreateRun(w http.ResponseWriter, r *http.Request) {
	var spec model.MaskJobSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	// 1. Validate payload
	if spec.SourceDB == "" || spec.SourceCollection == "" {
		http.Error(w, "sourceDb and sourceCollection are required", http.StatusBadRequest)
		return
	}
	if spec.RulesFile == "" {
		http.Error(w, "rulesFile is required", http.StatusBadRequest)
		return
	}

	// 2. Generate run ID
	runID := uuid.New().String()

	// 3. Save run to ledger
	if err := store.SaveRun(runID, spec); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	// 4. Start pipeline asynchronously
	go func() {
		if _, err := pipeline.Launch(context.Background(), runID, spec); err != nil {
			store.SaveRunError(runID, err)
			store.UpdateRunStatus(runID, string(pipeline.StateFailed))
		}
	}()

	// 5. Return response
	resp := map[string]interface{}{
		"message":   "Masking run created successfully!",
		"runID":     runID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListRuns retrieves all masking runs
// @Summary List all runs
// @Description Get a list of all masking runs with their current status
// @Tags runs
// @Accept json
// @Produce json
// @Success 200 {array} map[string]interface{} "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetRun retrieves a specific masking run
// @Summary Get run
// @Description Retrieve spec and status of a specific masking run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunErrors retrieves the recovered errors of a run
// @Summary Get run errors
// @Description Retrieve the recovered per-value, per-document, and per-batch errors of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} map[string]interface{} "Run errors"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/errors [get]
func GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/errors")
	if !ok {
		return
	}

	errors, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to fetch run errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(errors)
}

// GetRunMetrics retrieves the per-batch metrics of a run
// @Summary Get run metrics
// @Description Retrieve per-batch size, throughput, and resource samples of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.BatchMetrics "Batch metrics"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/metrics [get]
func GetRunMetrics(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/metrics")
	if !ok {
		return
	}

	metrics, err := store.GetRunMetrics(runID)
	if err != nil {
		http.Error(w, "Failed to fetch run metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}

// GetRunLogs retrieves the structured log entries of a run
// @Summary Get run logs
// @Description Retrieve the structured log entries of a run in time order
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} map[string]interface{} "Run logs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/logs [get]
func GetRunLogs(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/logs")
	if !ok {
		return
	}

	logs, err := store.GetRunLogs(runID)
	if err != nil {
		http.Error(w, "Failed to fetch run logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

// GetRunProgress retrieves aggregated progress of a run
// @Summary Get run progress
// @Description Retrieve documents processed, errors, and average throughput of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run progress"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/progress [get]
func GetRunProgress(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/progress")
	if !ok {
		return
	}

	progress, err := store.GetRunProgress(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(progress)
}

// ResetCheckpoint discards the checkpoint of a collection pair
// @Summary Reset a checkpoint
// @Description Discard the durable checkpoint for a (sourceDb, sourceCollection) pair before a re-run. Never call mid-run.
// @Tags checkpoints
// @Accept json
// @Produce json
// @Param checkpoint body object true "Checkpoint identity {checkpointDir, sourceDb, sourceCollection}"
// @Success 200 {object} map[string]interface{} "Checkpoint reset"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /checkpoints/reset [post]
func ResetCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CheckpointDir    string `json:"checkpointDir"`
		SourceDB         string `json:"sourceDb"`
		SourceCollection string `json:"sourceCollection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.SourceDB == "" || req.SourceCollection == "" {
		http.Error(w, "sourceDb and sourceCollection are required", http.StatusBadRequest)
		return
	}
	if req.CheckpointDir == "" {
		req.CheckpointDir = "checkpoints"
	}

	key := checkpoint.Key(req.SourceDB, req.SourceCollection)
	ckpt, err := checkpoint.New(req.CheckpointDir, key)
	if err != nil {
		http.Error(w, "Failed to open checkpoint", http.StatusInternalServerError)
		return
	}
	if err := ckpt.Reset(); err != nil {
		http.Error(w, "Failed to reset checkpoint", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "Checkpoint reset",
		"checkpoint": key,
	})
}

// runIDFromPath extracts the run ID from /api/v1/runs/{id}{suffix}.
func runIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	const prefix = "/api/v1/runs/"
	path := r.URL.Path

	if !strings.HasPrefix(path, prefix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}
	runID := strings.TrimPrefix(path, prefix)
	if suffix != "" {
		runID = strings.TrimSuffix(runID, suffix)
	}
	runID = strings.Trim(runID, "/")
	if runID == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return runID, true
}
