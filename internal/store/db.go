// Package store is the run-tracking ledger: run specs and status, recovered
// errors, per-batch metrics, and run logs, in a local sqlite database. All
// writes are best effort; the masking pipeline works without the ledger
// (db left uninitialized), which keeps unit tests free of sqlite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-mask-pipeline/internal/model"
)

var db *sql.DB

// InitDB opens (creating if needed) the ledger database.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			spec TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS batch_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			batch_number INTEGER,
			size INTEGER,
			elapsed_ms INTEGER,
			throughput REAL,
			error_count INTEGER,
			cpu_percent REAL,
			memory_percent REAL,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			level TEXT,
			message TEXT,
			context TEXT,
			created_at DATETIME
		);`,
	}
	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a new masking run.
func SaveRun(runID string, spec model.MaskJobSpec) error {
	if db == nil {
		return nil
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, specJSON, "pending", now, now)
	return err
}

// UpdateRunStatus updates run status.
func UpdateRunStatus(runID string, status string) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records a recovered error for a run.
func SaveRunError(runID string, err error) error {
	if db == nil || err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// SaveBatchMetrics appends one batch to the run's metrics sink.
func SaveBatchMetrics(runID string, m model.BatchMetrics) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO batch_metrics
		(run_id, batch_number, size, elapsed_ms, throughput, error_count, cpu_percent, memory_percent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, m.BatchNumber, m.Size, m.ElapsedMs, m.Throughput, m.ErrorCount, m.CPUPercent, m.MemoryPercent, now)
	return err
}

// SaveRunLog records a structured log entry for a run.
func SaveRunLog(runID, stage, level, message string, context map[string]interface{}) error {
	if db == nil {
		return nil
	}
	ctxJSON, err := json.Marshal(context)
	if err != nil {
		ctxJSON = []byte("{}")
	}
	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO run_logs (run_id, stage, level, message, context, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, level, message, ctxJSON, now)
	return err
}

// ListRuns returns all runs with basic info.
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches full run spec and status.
func GetRun(runID string) (map[string]interface{}, error) {
	var specJSON string
	var status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var spec model.MaskJobSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"spec":      spec,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetRunErrors returns the recovered errors of a run, newest first.
func GetRunErrors(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at DESC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errors []map[string]interface{}
	for rows.Next() {
		var msg string
		var createdAt time.Time
		if err := rows.Scan(&msg, &createdAt); err != nil {
			return nil, err
		}
		errors = append(errors, map[string]interface{}{
			"error":     msg,
			"createdAt": createdAt,
		})
	}
	return errors, rows.Err()
}

// GetRunMetrics returns the per-batch metrics of a run in batch order.
func GetRunMetrics(runID string) ([]model.BatchMetrics, error) {
	rows, err := db.Query(`SELECT batch_number, size, elapsed_ms, throughput, error_count, cpu_percent, memory_percent
		FROM batch_metrics WHERE run_id = ? ORDER BY batch_number`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []model.BatchMetrics
	for rows.Next() {
		var m model.BatchMetrics
		if err := rows.Scan(&m.BatchNumber, &m.Size, &m.ElapsedMs, &m.Throughput, &m.ErrorCount, &m.CPUPercent, &m.MemoryPercent); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// GetRunLogs returns the structured log entries of a run in time order.
func GetRunLogs(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, level, message, context, created_at FROM run_logs WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []map[string]interface{}
	for rows.Next() {
		var stage, level, message, ctxJSON string
		var createdAt time.Time
		if err := rows.Scan(&stage, &level, &message, &ctxJSON, &createdAt); err != nil {
			return nil, err
		}
		var context map[string]interface{}
		json.Unmarshal([]byte(ctxJSON), &context)
		logs = append(logs, map[string]interface{}{
			"stage":     stage,
			"level":     level,
			"message":   message,
			"context":   context,
			"createdAt": createdAt,
		})
	}
	return logs, rows.Err()
}

// GetRunProgress derives progress counters from the metrics sink.
func GetRunProgress(runID string) (map[string]interface{}, error) {
	var status string
	if err := db.QueryRow(`SELECT status FROM runs WHERE id = ?`, runID).Scan(&status); err != nil {
		return nil, err
	}

	var batches int
	var processed, errors sql.NullInt64
	var throughput sql.NullFloat64
	err := db.QueryRow(`SELECT COUNT(*), SUM(size), SUM(error_count), AVG(throughput)
		FROM batch_metrics WHERE run_id = ?`, runID).
		Scan(&batches, &processed, &errors, &throughput)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate batch metrics: %w", err)
	}

	return map[string]interface{}{
		"runId":              runID,
		"status":             status,
		"batchesProcessed":   batches,
		"documentsProcessed": processed.Int64,
		"documentErrors":     errors.Int64,
		"avgThroughput":      throughput.Float64,
	}, nil
}
