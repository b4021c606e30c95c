package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mask-pipeline/internal/model"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "clinic__patients", Key("clinic", "patients"))
}

func TestStore_LoadMissingStartsFresh(t *testing.T) {
	s, err := New(t.TempDir(), "clinic__patients")
	require.NoError(t, err)

	rec := s.Load()
	assert.Equal(t, "clinic__patients", rec.ComponentID)
	assert.Zero(t, rec.DocumentsProcessed)
	assert.Nil(t, rec.LastProcessedKey)
	assert.False(t, rec.Completed)
}

func TestStore_UpdateForceFlushRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "clinic__patients")
	require.NoError(t, err)

	s.Update(500, "p-0500", true)
	s.Close()

	s2, err := New(dir, "clinic__patients")
	require.NoError(t, err)
	rec := s2.Load()
	assert.Equal(t, int64(500), rec.DocumentsProcessed)
	assert.Equal(t, "p-0500", rec.LastProcessedKey)
	assert.False(t, rec.Completed)
}

func TestStore_UpdateWithoutForceDefersFlush(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "k", WithFlushEveryDocs(1000))
	require.NoError(t, err)

	s.Update(10, "p-0010", false)
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "below both intervals nothing is written")

	s.Update(1010, "p-1010", false)
	_, statErr = os.Stat(s.Path())
	assert.NoError(t, statErr, "crossing the document interval flushes")
}

func TestStore_NilLastKeyKeepsPrevious(t *testing.T) {
	s, err := New(t.TempDir(), "k")
	require.NoError(t, err)

	s.Update(100, "p-0100", true)
	s.Update(150, nil, true)

	rec := s.Load()
	assert.Equal(t, int64(150), rec.DocumentsProcessed)
	assert.Equal(t, "p-0100", rec.LastProcessedKey, "a stop flush must not clear the resume key")
}

func TestStore_MarkCompleted(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "k")
	require.NoError(t, err)

	s.Update(42, "p-0042", true)
	s.SetError("transient")
	s.MarkCompleted()

	s2, err := New(dir, "k")
	require.NoError(t, err)
	rec := s2.Load()
	assert.True(t, rec.Completed)
	assert.Empty(t, rec.Error, "completion clears a previously recorded error")
}

func TestStore_Reset(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "k")
	require.NoError(t, err)

	s.Update(42, "p-0042", true)
	require.NoError(t, s.Reset())

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))

	rec := s.Load()
	assert.Zero(t, rec.DocumentsProcessed)
	assert.Nil(t, rec.LastProcessedKey)
}

func TestStore_CorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "k.checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := New(dir, "k")
	require.NoError(t, err)
	rec := s.Load()
	assert.Zero(t, rec.DocumentsProcessed)
}

func TestStore_CloseWithoutAutoFlush(t *testing.T) {
	s, err := New(t.TempDir(), "k")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked without a running auto-flush")
	}
}

func TestStore_AutoFlushTick(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "k", WithFlushInterval(10*time.Millisecond), WithFlushEveryDocs(1000000))
	require.NoError(t, err)

	s.StartAutoFlush()
	s.Update(5, "p-0005", false)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(s.Path())
		if err != nil {
			return false
		}
		var rec model.CheckpointRecord
		return json.Unmarshal(data, &rec) == nil && rec.DocumentsProcessed == 5
	}, 5*time.Second, 50*time.Millisecond, "background tick flushes on the wall-clock interval")

	s.Close()
}
