package monitor

import (
	"log"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"go-mask-pipeline/internal/model"
)

// Probe reads raw CPU/memory utilization. The production probe uses
// gopsutil; tests inject synthetic sequences.
type Probe interface {
	Read() (model.ResourceState, error)
}

// HostProbe samples host CPU and virtual-memory utilization.
type HostProbe struct{}

// Read returns instantaneous host utilization. cpu.Percent with a zero
// interval compares against the previous call, so it is cheap on the
// monitor tick.
func (HostProbe) Read() (model.ResourceState, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return model.ResourceState{}, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return model.ResourceState{}, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	return model.ResourceState{CPUPercent: cpuPct, MemoryPercent: vm.UsedPercent}, nil
}

// Monitor samples resources on a fixed-interval background tick and hands
// out the latest snapshot. It is advisory only: when the probe fails the
// snapshot stays neutral and the orchestrator simply runs untuned.
type Monitor struct {
	mu       sync.Mutex
	probe    Probe
	latest   model.ResourceState
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	started  bool
}

// New creates a monitor over the given probe.
func New(probe Probe, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sampling tick. An initial sample is taken
// synchronously so the first caller of Sample sees real data.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.sampleOnce()
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.sampleOnce()
			}
		}
	}()
}

// Stop halts the background tick.
func (m *Monitor) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return
	}
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
}

// Sample returns the latest snapshot. Cheap: repeated calls read the
// mutex-guarded state refreshed by the tick.
func (m *Monitor) Sample() model.ResourceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

func (m *Monitor) sampleOnce() {
	state, err := m.probe.Read()
	if err != nil {
		log.Printf("⚠️ resource probe failed, batch sizing runs untuned: %v", err)
		state = model.ResourceState{}
	}
	m.mu.Lock()
	m.latest = state
	m.mu.Unlock()
}
