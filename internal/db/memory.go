package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go-mask-pipeline/internal/model"
)

// MemoryCollection is an in-memory Collection used by tests. It supports
// the query shapes the orchestrator produces: empty filters and the
// {_id: {$gt: key}} resume filter, plus exact field equality.
type MemoryCollection struct {
	mu   sync.Mutex
	docs map[string]model.Document // keyed by formatted primary key

	// FailBulkWrites makes the next N bulk writes fail, for retry tests.
	FailBulkWrites int
	// BulkCalls counts bulk write attempts.
	BulkCalls int
}

// NewMemoryCollection seeds a collection with the given documents.
func NewMemoryCollection(docs ...model.Document) *MemoryCollection {
	c := &MemoryCollection{docs: make(map[string]model.Document)}
	for _, doc := range docs {
		c.docs[keyString(doc.Key())] = doc
	}
	return c
}

// Documents returns a key-ordered snapshot.
func (c *MemoryCollection) Documents() []model.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(nil)
}

func (c *MemoryCollection) Count(ctx context.Context, q Query) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.snapshotLocked(q))), nil
}

func (c *MemoryCollection) Find(ctx context.Context, q Query, batchSize int32) (Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &memoryCursor{docs: c.snapshotLocked(q), pos: -1}, nil
}

func (c *MemoryCollection) FindByKey(ctx context.Context, key interface{}) (model.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[keyString(key)]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

func (c *MemoryCollection) BulkReplace(ctx context.Context, docs []model.Document) (BulkResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BulkCalls++
	if c.FailBulkWrites > 0 {
		c.FailBulkWrites--
		return BulkResult{}, fmt.Errorf("injected bulk write failure")
	}
	var res BulkResult
	for _, doc := range docs {
		k := keyString(doc.Key())
		if _, ok := c.docs[k]; ok {
			res.Matched++
			res.Modified++
		} else {
			res.Upserted++
		}
		c.docs[k] = doc
	}
	return res, nil
}

func (c *MemoryCollection) InsertMany(ctx context.Context, docs []model.Document) (BulkResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BulkCalls++
	if c.FailBulkWrites > 0 {
		c.FailBulkWrites--
		return BulkResult{}, fmt.Errorf("injected bulk write failure")
	}
	var res BulkResult
	for _, doc := range docs {
		c.docs[keyString(doc.Key())] = doc
		res.Inserted++
	}
	return res, nil
}

// snapshotLocked filters and key-orders the stored documents.
func (c *MemoryCollection) snapshotLocked(q Query) []model.Document {
	out := make([]model.Document, 0, len(c.docs))
	for _, doc := range c.docs {
		if matchQuery(doc, q) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return keyString(out[i].Key()) < keyString(out[j].Key())
	})
	return out
}

func matchQuery(doc model.Document, q Query) bool {
	for field, cond := range q {
		if gt, ok := gtCondition(cond); ok {
			if !(keyString(doc[field]) > keyString(gt)) {
				return false
			}
			continue
		}
		if keyString(doc[field]) != keyString(cond) {
			return false
		}
	}
	return true
}

func gtCondition(cond interface{}) (interface{}, bool) {
	m, ok := cond.(map[string]interface{})
	if !ok {
		return nil, false
	}
	gt, ok := m["$gt"]
	return gt, ok
}

// keyString gives keys a total order regardless of underlying type. Test
// fixtures use zero-padded string keys so lexical order matches intent.
func keyString(key interface{}) string {
	return fmt.Sprintf("%v", key)
}

type memoryCursor struct {
	docs []model.Document
	pos  int
}

func (m *memoryCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	m.pos++
	return m.pos < len(m.docs)
}

func (m *memoryCursor) Document() model.Document { return m.docs[m.pos] }

func (m *memoryCursor) Err() error { return nil }

func (m *memoryCursor) Close(ctx context.Context) error { return nil }
