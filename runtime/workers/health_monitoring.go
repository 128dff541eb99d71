package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// StatsSource gives the aggregated relay figures logged on each sample.
type StatsSource interface {
	Stats() observability.Stats
}

// HealthMonitoringWorker samples the relay process with gopsutil every metricInterval
// and feeds the result to the monitoring counters.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitoring     *observability.Monitoring
	stats          StatsSource
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	monitoring *observability.Monitoring,
	stats StatsSource,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		monitoring:     monitoring,
		stats:          stats,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		w.log.Error("Error while retrieving relay process", "pid", w.pid, "err", err)
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *HealthMonitoringWorker) sample(p *process.Process) {
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
		return
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
		return
	}
	w.monitoring.RecordProcess(cpu, ram, time.Now().UTC())

	if w.stats == nil {
		return
	}
	s := w.stats.Stats()
	w.log.Debug("Relay health",
		"rooms", s.Rooms,
		"members", s.Members,
		"connections", s.Connections,
		"delivered", s.FramesDelivered,
		"dropped", s.FramesDropped,
		"slow_consumers", s.SlowConsumers,
		"cpu", s.ProcessCPU,
		"ram", s.ProcessRAM,
		"goroutines", s.NumGoroutine,
	)
}
