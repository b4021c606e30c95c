package monitor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-mask-pipeline/internal/model"
)

// stubProbe replays a fixed sequence of readings, repeating the last one.
type stubProbe struct {
	mu    sync.Mutex
	reads []model.ResourceState
	errs  []error
	calls int
}

func (p *stubProbe) Read() (model.ResourceState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return model.ResourceState{}, p.errs[i]
	}
	if i >= len(p.reads) {
		i = len(p.reads) - 1
	}
	return p.reads[i], nil
}

func TestMonitor_InitialSampleIsSynchronous(t *testing.T) {
	probe := &stubProbe{reads: []model.ResourceState{{CPUPercent: 42, MemoryPercent: 55}}}
	m := New(probe, time.Hour)
	m.Start()
	defer m.Stop()

	got := m.Sample()
	assert.Equal(t, 42.0, got.CPUPercent)
	assert.Equal(t, 55.0, got.MemoryPercent)
}

func TestMonitor_ProbeFailureIsNeutral(t *testing.T) {
	probe := &stubProbe{
		reads: []model.ResourceState{{CPUPercent: 90, MemoryPercent: 90}},
		errs:  []error{fmt.Errorf("proc unavailable")},
	}
	m := New(probe, time.Hour)
	m.Start()
	defer m.Stop()

	assert.True(t, m.Sample().Neutral(), "a failed probe reads as no signal")
}

func TestMonitor_TickRefreshes(t *testing.T) {
	probe := &stubProbe{reads: []model.ResourceState{
		{CPUPercent: 10, MemoryPercent: 10},
		{CPUPercent: 95, MemoryPercent: 20},
	}}
	m := New(probe, 10*time.Millisecond)
	m.Start()
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return m.Sample().CPUPercent == 95
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMonitor_StopIsIdempotentAndSafeBeforeStart(t *testing.T) {
	m := New(&stubProbe{reads: []model.ResourceState{{}}}, time.Hour)
	m.Stop() // never started

	m.Start()
	m.Stop()
	m.Stop()
}

func TestResourceState_Neutral(t *testing.T) {
	assert.True(t, model.ResourceState{}.Neutral())
	assert.False(t, model.ResourceState{CPUPercent: 1}.Neutral())
	assert.False(t, model.ResourceState{MemoryPercent: 1}.Neutral())
}
