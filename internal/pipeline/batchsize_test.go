package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-mask-pipeline/internal/model"
)

func testSizer(initial, min, max int) *batchSizer {
	return newBatchSizer(
		model.BatchConfig{Initial: initial, Min: min, Max: max},
		model.AdaptiveConfig{HighWatermark: 80, LowWatermark: 50, ShrinkFactor: 0.8, GrowFactor: 1.2, Window: 3},
	)
}

func TestBatchSizer_ClampsInitial(t *testing.T) {
	assert.Equal(t, 50, testSizer(10, 50, 5000).Size())
	assert.Equal(t, 5000, testSizer(9999, 50, 5000).Size())
	assert.Equal(t, 500, testSizer(500, 50, 5000).Size())
}

func TestBatchSizer_ShrinksAfterSustainedPressure(t *testing.T) {
	s := testSizer(500, 50, 5000)
	hot := model.ResourceState{CPUPercent: 91, MemoryPercent: 40}

	assert.Equal(t, 500, s.Next(hot))
	assert.Equal(t, 500, s.Next(hot), "two hot samples are not a trend yet")
	assert.Equal(t, 400, s.Next(hot), "the third consecutive hot sample shrinks by the factor")
	assert.Equal(t, 320, s.Next(hot), "sustained pressure keeps shrinking")
}

func TestBatchSizer_MemoryPressureAloneShrinks(t *testing.T) {
	s := testSizer(500, 50, 5000)
	hot := model.ResourceState{CPUPercent: 10, MemoryPercent: 85}

	s.Next(hot)
	s.Next(hot)
	assert.Equal(t, 400, s.Next(hot))
}

func TestBatchSizer_GrowsAfterSustainedHeadroom(t *testing.T) {
	s := testSizer(500, 50, 5000)
	cold := model.ResourceState{CPUPercent: 20, MemoryPercent: 30}

	s.Next(cold)
	s.Next(cold)
	assert.Equal(t, 600, s.Next(cold))
}

func TestBatchSizer_GrowNeedsBothBelowLowWatermark(t *testing.T) {
	s := testSizer(500, 50, 5000)
	mixed := model.ResourceState{CPUPercent: 20, MemoryPercent: 70}

	for i := 0; i < 10; i++ {
		assert.Equal(t, 500, s.Next(mixed), "memory in the middle band holds the size steady")
	}
}

func TestBatchSizer_RespectsBounds(t *testing.T) {
	s := testSizer(60, 50, 5000)
	hot := model.ResourceState{CPUPercent: 99, MemoryPercent: 99}
	for i := 0; i < 20; i++ {
		s.Next(hot)
	}
	assert.Equal(t, 50, s.Size(), "shrinking never crosses the minimum")

	s = testSizer(4500, 50, 5000)
	cold := model.ResourceState{CPUPercent: 5, MemoryPercent: 5}
	for i := 0; i < 20; i++ {
		s.Next(cold)
	}
	assert.Equal(t, 5000, s.Size(), "growing never crosses the maximum")
}

func TestBatchSizer_AlwaysChangesWhenReacting(t *testing.T) {
	// At tiny sizes the factor alone would round to no change.
	s := newBatchSizer(
		model.BatchConfig{Initial: 3, Min: 1, Max: 10},
		model.AdaptiveConfig{HighWatermark: 80, LowWatermark: 50, ShrinkFactor: 0.9, GrowFactor: 1.1, Window: 1},
	)
	hot := model.ResourceState{CPUPercent: 90, MemoryPercent: 90}
	assert.Equal(t, 2, s.Next(hot), "a shrink is never a no-op")

	cold := model.ResourceState{CPUPercent: 10, MemoryPercent: 10}
	assert.Equal(t, 3, s.Next(cold), "a grow is never a no-op")
}

func TestBatchSizer_NeutralResetsStreaks(t *testing.T) {
	s := testSizer(500, 50, 5000)
	hot := model.ResourceState{CPUPercent: 91, MemoryPercent: 40}

	s.Next(hot)
	s.Next(hot)
	s.Next(model.ResourceState{}) // monitor went dark
	s.Next(hot)
	assert.Equal(t, 500, s.Next(hot), "the streak restarts after a neutral sample")
	assert.Equal(t, 400, s.Next(hot))
}

func TestBatchSizer_MiddleBandResetsStreaks(t *testing.T) {
	s := testSizer(500, 50, 5000)
	hot := model.ResourceState{CPUPercent: 91, MemoryPercent: 40}
	steady := model.ResourceState{CPUPercent: 65, MemoryPercent: 65}

	s.Next(hot)
	s.Next(hot)
	s.Next(steady)
	s.Next(hot)
	assert.Equal(t, 500, s.Next(hot))
	assert.Equal(t, 400, s.Next(hot))
}
