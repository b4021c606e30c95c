package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReportManager organizes per-run report files under a base directory.
type ReportManager struct {
	BaseDir string
}

// NewReportManager creates a report manager rooted at baseDir.
func NewReportManager(baseDir string) *ReportManager {
	return &ReportManager{BaseDir: baseDir}
}

// CreateRunDir creates (if needed) the directory for one run's reports.
func (rm *ReportManager) CreateRunDir(runID string) (string, error) {
	dir := filepath.Join(rm.BaseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	return dir, nil
}

// ReportPath returns the full path for a named report file of a run.
func (rm *ReportManager) ReportPath(runID, fileName string) (string, error) {
	dir, err := rm.CreateRunDir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(fileName)), nil
}

// WriteJSON marshals v indented and writes it as a run report, returning
// the file path.
func (rm *ReportManager) WriteJSON(runID, fileName string, v interface{}) (string, error) {
	path, err := rm.ReportPath(runID, fileName)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
