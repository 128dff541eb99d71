package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type monitoringStats struct{ m *observability.Monitoring }

func (s monitoringStats) Stats() observability.Stats { return s.m.Snapshot() }

func TestHealthMonitoringWorker_RecordsProcessSample(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoring(log)
	worker := NewHealthMonitoringWorker(log, monitoring, monitoringStats{monitoring}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run(ctx) }()

	// Then a sample of the current process lands in the monitoring snapshot
	req.Eventually(func() bool {
		return !monitoring.Snapshot().SampledAt.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	req.NoError(<-errCh)
}
