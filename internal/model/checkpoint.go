package model

import "time"

// CheckpointRecord is the durable progress record for one
// (source database, collection) pair. Exactly one orchestrator
// writes it per run.
type CheckpointRecord struct {
	ComponentID        string      `json:"component_id"`
	DocumentsProcessed int64       `json:"documents_processed"`
	LastProcessedKey   interface{} `json:"last_processed_id"`
	LastUpdated        time.Time   `json:"last_updated"`
	Completed          bool        `json:"completed"`
	Error              string      `json:"error,omitempty"`
}
