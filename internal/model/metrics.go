package model

import "time"

// ResourceState is a point-in-time CPU/memory snapshot. Consumed
// immediately by the batch-size controller, never retained.
type ResourceState struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Neutral reports whether the snapshot carries no signal (monitor
// unavailable or not yet sampled).
func (r ResourceState) Neutral() bool {
	return r.CPUPercent == 0 && r.MemoryPercent == 0
}

// BatchMetrics describes one processed batch. Ephemeral: persisted only
// to the run's metrics sink.
type BatchMetrics struct {
	BatchNumber   int     `json:"batch_number"`
	Size          int     `json:"size"`
	ElapsedMs     int64   `json:"elapsed_ms"`
	Throughput    float64 `json:"throughput"` // docs per second
	ErrorCount    int     `json:"error_count"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// RunResult is the structured summary the orchestrator returns to its
// caller. The orchestrator never prints or formats output itself.
type RunResult struct {
	RunID               string        `json:"run_id"`
	State               string        `json:"state"`
	DocumentsProcessed  int64         `json:"documents_processed"`
	DocumentsWithErrors int64         `json:"documents_with_errors"`
	BatchesProcessed    int           `json:"batches_processed"`
	BatchesFailed       int           `json:"batches_failed"`
	UnknownKindWarnings int64         `json:"unknown_kind_warnings"`
	DateParseWarnings   int64         `json:"date_parse_warnings"`
	Elapsed             time.Duration `json:"elapsed"`
	Throughput          float64       `json:"throughput"` // docs per second
}
