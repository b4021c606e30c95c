// Package db defines the narrow database capability the masking core
// requires: count documents, stream them in key order, and bulk-write
// replacements. The mongo adapter is the production implementation; the
// in-memory collection backs tests and dry experiments.
package db

import (
	"context"

	"go-mask-pipeline/internal/model"
)

// Query is a filter document in the database's native query shape.
type Query map[string]interface{}

// ResumeAfter narrows a query to documents whose primary key sorts after
// the given cursor-resume token.
func ResumeAfter(q Query, lastKey interface{}) Query {
	out := make(Query, len(q)+1)
	for k, v := range q {
		out[k] = v
	}
	out[model.KeyField] = map[string]interface{}{"$gt": lastKey}
	return out
}

// Cursor streams documents in primary-key order.
type Cursor interface {
	// Next advances the cursor. It returns false at exhaustion or error.
	Next(ctx context.Context) bool
	// Document returns the current document. Valid after Next returns true.
	Document() model.Document
	// Err returns the terminal error, if any, once Next returned false.
	Err() error
	// Close releases the cursor.
	Close(ctx context.Context) error
}

// BulkResult summarizes one bulk write.
type BulkResult struct {
	Matched  int64
	Modified int64
	Upserted int64
	Inserted int64
}

// Collection is the database collaborator interface. Every document is
// uniquely identified by a stable primary key usable as a resume token.
type Collection interface {
	// Count estimates how many documents match the query.
	Count(ctx context.Context, q Query) (int64, error)
	// Find opens a key-ordered cursor over matching documents.
	Find(ctx context.Context, q Query, batchSize int32) (Cursor, error)
	// FindByKey fetches one document by primary key, nil when absent.
	FindByKey(ctx context.Context, key interface{}) (model.Document, error)
	// BulkReplace replaces documents by primary key as one unordered bulk
	// operation, upserting, so a bad document never blocks the batch.
	BulkReplace(ctx context.Context, docs []model.Document) (BulkResult, error)
	// InsertMany inserts documents as one unordered bulk operation.
	InsertMany(ctx context.Context, docs []model.Document) (BulkResult, error)
}
