package pipeline

import (
	"fmt"

	"go-mask-pipeline/internal/model"
)

// batchSizer turns resource snapshots into the next batch size. Pressure
// must be sustained before it reacts: a single hot sample is noise, a
// streak of cfg.Window samples is a trend. Shrinking and growing always
// change the size by at least one document, clamped to [min, max].
type batchSizer struct {
	size int
	min  int
	max  int
	cfg  model.AdaptiveConfig

	highStreak int
	lowStreak  int
}

func newBatchSizer(batch model.BatchConfig, cfg model.AdaptiveConfig) *batchSizer {
	s := &batchSizer{
		size: batch.Initial,
		min:  batch.Min,
		max:  batch.Max,
		cfg:  cfg,
	}
	s.size = clamp(s.size, s.min, s.max)
	return s
}

// Size returns the current batch size without consuming a sample.
func (s *batchSizer) Size() int { return s.size }

// Next consumes one resource snapshot and returns the size for the next
// batch. A neutral snapshot (monitor unavailable) resets both streaks so
// stale pressure never triggers a resize.
func (s *batchSizer) Next(rs model.ResourceState) int {
	if rs.Neutral() {
		s.highStreak = 0
		s.lowStreak = 0
		return s.size
	}

	high := rs.CPUPercent > s.cfg.HighWatermark || rs.MemoryPercent > s.cfg.HighWatermark
	low := rs.CPUPercent < s.cfg.LowWatermark && rs.MemoryPercent < s.cfg.LowWatermark

	switch {
	case high:
		s.highStreak++
		s.lowStreak = 0
		if s.highStreak >= s.cfg.Window {
			s.shrink()
		}
	case low:
		s.lowStreak++
		s.highStreak = 0
		if s.lowStreak >= s.cfg.Window {
			s.grow()
		}
	default:
		s.highStreak = 0
		s.lowStreak = 0
	}
	return s.size
}

func (s *batchSizer) shrink() {
	next := int(float64(s.size) * s.cfg.ShrinkFactor)
	if next >= s.size {
		next = s.size - 1
	}
	next = clamp(next, s.min, s.max)
	if next != s.size {
		fmt.Printf("📉 Resource pressure sustained, batch size %d → %d\n", s.size, next)
	}
	s.size = next
}

func (s *batchSizer) grow() {
	next := int(float64(s.size) * s.cfg.GrowFactor)
	if next <= s.size {
		next = s.size + 1
	}
	next = clamp(next, s.min, s.max)
	if next != s.size {
		fmt.Printf("📈 Headroom sustained, batch size %d → %d\n", s.size, next)
	}
	s.size = next
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
