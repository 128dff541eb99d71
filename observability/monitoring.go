package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is the snapshot served on the debug endpoint.
type Stats struct {
	Rooms            int       `json:"rooms"`
	Members          int       `json:"members"`
	Connections      int       `json:"connections"`
	FramesDelivered  uint64    `json:"frames_delivered"`
	FramesDropped    uint64    `json:"frames_dropped"`
	SlowConsumers    uint64    `json:"slow_consumers"`
	RejectedMessages uint64    `json:"rejected_messages"`
	WorkerRestarts   int64     `json:"worker_restarts"`
	ProcessCPU       float64   `json:"process_cpu_percent"`
	ProcessRAM       float32   `json:"process_ram_percent"`
	AllocMemMb       uint64    `json:"alloc_mem_mb"`
	NumGoroutine     int       `json:"num_goroutine"`
	SampledAt        time.Time `json:"sampled_at"`
}

// Monitoring gathers relay counters. Counters are atomic so sinks can
// update them from any goroutine without coordination.
type Monitoring struct {
	log *slog.Logger

	framesDelivered  uint64
	framesDropped    uint64
	slowConsumers    uint64
	rejectedMessages uint64

	mu         sync.RWMutex
	processCPU float64
	processRAM float32
	sampledAt  time.Time
}

func NewMonitoring(log *slog.Logger) *Monitoring {
	return &Monitoring{log: log}
}

func (m *Monitoring) IncrDelivered() { atomic.AddUint64(&m.framesDelivered, 1) }

func (m *Monitoring) IncrDropped() { atomic.AddUint64(&m.framesDropped, 1) }

func (m *Monitoring) IncrSlowConsumer() { atomic.AddUint64(&m.slowConsumers, 1) }

func (m *Monitoring) IncrRejected() { atomic.AddUint64(&m.rejectedMessages, 1) }

// RecordProcess stores the latest process sample.
func (m *Monitoring) RecordProcess(cpu float64, ram float32, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processCPU = cpu
	m.processRAM = ram
	m.sampledAt = at
}

// Snapshot fills the counter part of Stats; room figures are added by the caller.
func (m *Monitoring) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		FramesDelivered:  atomic.LoadUint64(&m.framesDelivered),
		FramesDropped:    atomic.LoadUint64(&m.framesDropped),
		SlowConsumers:    atomic.LoadUint64(&m.slowConsumers),
		RejectedMessages: atomic.LoadUint64(&m.rejectedMessages),
		ProcessCPU:       m.processCPU,
		ProcessRAM:       m.processRAM,
		AllocMemMb:       mem.Alloc / 1024 / 1024,
		NumGoroutine:     runtime.NumGoroutine(),
		SampledAt:        m.sampledAt,
	}
}
