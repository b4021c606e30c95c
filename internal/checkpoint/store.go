package checkpoint

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-mask-pipeline/internal/model"
)

// Key derives the checkpoint identity for a (source database, collection)
// pair. Concurrent runs against the same collection must override it.
func Key(sourceDB, collection string) string {
	return sourceDB + "__" + collection
}

// Store is the durable, periodically flushed progress record for one run.
// In-memory state mutates synchronously under a mutex; durable flushes
// happen on force, or when the configured document-count or wall-clock
// interval has elapsed, whichever a background tick observes first.
type Store struct {
	mu     sync.Mutex
	path   string
	record model.CheckpointRecord

	flushEveryDocs int64
	flushInterval  time.Duration
	lastFlushDocs  int64
	lastFlushTime  time.Time

	stop    chan struct{}
	done    chan struct{}
	started bool
}

// Option configures a Store.
type Option func(*Store)

// WithFlushEveryDocs sets the document-count flush interval.
func WithFlushEveryDocs(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.flushEveryDocs = n
		}
	}
}

// WithFlushInterval sets the wall-clock flush interval.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// New creates a checkpoint store for the given identity under dir.
func New(dir, key string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	s := &Store{
		path:           filepath.Join(dir, key+".checkpoint.json"),
		record:         model.CheckpointRecord{ComponentID: key},
		flushEveryDocs: 10000,
		flushInterval:  30 * time.Second,
		lastFlushTime:  time.Now(),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the durable file backing this store.
func (s *Store) Path() string { return s.path }

// Load reads the durable record into memory and returns it. A read
// failure is treated as "no checkpoint": the run starts from the
// beginning, which is safe because re-masking a batch is structurally
// idempotent.
func (s *Store) Load() model.CheckpointRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ checkpoint read failed (%v), starting from the beginning", err)
		}
		return s.record
	}

	var rec model.CheckpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("⚠️ checkpoint is corrupt (%v), starting from the beginning", err)
		return s.record
	}
	rec.ComponentID = s.record.ComponentID
	s.record = rec
	s.lastFlushDocs = rec.DocumentsProcessed
	return s.record
}

// Update records batch progress. With force=true the record is flushed
// durably before returning; otherwise it is flushed once the document
// interval is crossed, or later by the background tick.
func (s *Store) Update(documentsProcessed int64, lastKey interface{}, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.DocumentsProcessed = documentsProcessed
	if lastKey != nil {
		s.record.LastProcessedKey = lastKey
	}
	s.record.LastUpdated = time.Now().UTC()

	if force || documentsProcessed-s.lastFlushDocs >= s.flushEveryDocs {
		s.flushLocked()
	}
}

// SetError records a run error on the checkpoint, flushed durably.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Error = msg
	s.record.LastUpdated = time.Now().UTC()
	s.flushLocked()
}

// MarkCompleted sets completed=true and force-flushes. Called exactly
// once, when the run drains.
func (s *Store) MarkCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Completed = true
	s.record.Error = ""
	s.record.LastUpdated = time.Now().UTC()
	s.flushLocked()
}

// Reset discards durable state and starts numbering from zero. Safe to
// call before a run begins, never mid-run.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = model.CheckpointRecord{ComponentID: s.record.ComponentID}
	s.lastFlushDocs = 0
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	return nil
}

// StartAutoFlush launches the periodic flush tick. Stop with Close.
func (s *Store) StartAutoFlush() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	tick := s.flushInterval / 2
	if tick < time.Second {
		tick = time.Second
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				docsDue := s.record.DocumentsProcessed-s.lastFlushDocs >= s.flushEveryDocs
				timeDue := time.Since(s.lastFlushTime) >= s.flushInterval
				if docsDue || timeDue {
					s.flushLocked()
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Close stops the auto-flush tick and performs a final flush.
func (s *Store) Close() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		select {
		case <-s.stop:
		default:
			close(s.stop)
		}
		<-s.done
	}
	s.mu.Lock()
	s.flushLocked()
	s.mu.Unlock()
}

// flushLocked writes the record durably. A write failure is logged but
// never aborts the run; a later successful flush captures the state.
// Callers hold s.mu.
func (s *Store) flushLocked() {
	data, err := json.MarshalIndent(s.record, "", "  ")
	if err != nil {
		log.Printf("⚠️ checkpoint marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		log.Printf("⚠️ checkpoint flush failed (progress continues in memory): %v", err)
		return
	}
	s.lastFlushDocs = s.record.DocumentsProcessed
	s.lastFlushTime = time.Now()
}
