package observability

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoring_Counters(t *testing.T) {
	req := require.New(t)
	m := NewMonitoring(logs.GetLoggerFromLevel(slog.LevelDebug))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrDelivered()
			m.IncrDropped()
		}()
	}
	wg.Wait()
	m.IncrSlowConsumer()
	m.IncrRejected()
	at := time.Now()
	m.RecordProcess(12.5, 3.5, at)

	stats := m.Snapshot()
	req.Equal(uint64(10), stats.FramesDelivered)
	req.Equal(uint64(10), stats.FramesDropped)
	req.Equal(uint64(1), stats.SlowConsumers)
	req.Equal(uint64(1), stats.RejectedMessages)
	req.Equal(12.5, stats.ProcessCPU)
	req.Equal(float32(3.5), stats.ProcessRAM)
	req.Equal(at, stats.SampledAt)
	req.Positive(stats.NumGoroutine)
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	req := require.New(t)
	shutdown, err := SetupTracing(context.Background(), "chat-relay", "")
	req.NoError(err)
	req.NoError(shutdown(context.Background()))
}
