package sink

import (
	"chat-relay/observability"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestConnectionSink_Deliver_KeepsOrder(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(3, 0, nil)

	req.True(s.Deliver([]byte("1")))
	req.True(s.Deliver([]byte("2")))
	req.True(s.Deliver([]byte("3")))

	req.Equal("1", string(<-s.Frames()))
	req.Equal("2", string(<-s.Frames()))
	req.Equal("3", string(<-s.Frames()))
}

func TestConnectionSink_Deliver_DropsWhenFull(t *testing.T) {
	req := require.New(t)
	monitoring := observability.NewMonitoring(logs.GetLoggerFromLevel(slog.LevelDebug))
	s := NewConnectionSink(1, 0, monitoring)

	// Given a full buffer
	req.True(s.Deliver([]byte("1")))

	// When more frames arrive they are dropped without blocking
	for i := 0; i < 100; i++ {
		req.False(s.Deliver([]byte("x")))
	}

	// Then the sink stays open since no limit is configured
	req.False(s.Overflowed())
	select {
	case <-s.Done():
		req.Fail("sink should still be open")
	default:
	}
	stats := monitoring.Snapshot()
	req.Equal(uint64(1), stats.FramesDelivered)
	req.Equal(uint64(100), stats.FramesDropped)
}

func TestConnectionSink_ClosesSlowConsumer(t *testing.T) {
	req := require.New(t)
	monitoring := observability.NewMonitoring(logs.GetLoggerFromLevel(slog.LevelDebug))
	s := NewConnectionSink(1, 3, monitoring)
	req.True(s.Deliver([]byte("1")))

	req.False(s.Deliver([]byte("x")))
	req.False(s.Deliver([]byte("x")))
	req.False(s.Overflowed())
	req.False(s.Deliver([]byte("x")))

	req.True(s.Overflowed())
	<-s.Done()
	req.False(s.Deliver([]byte("late")))
	req.Equal(uint64(1), monitoring.Snapshot().SlowConsumers)
}

func TestConnectionSink_DropCounterResetsOnDelivery(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(1, 2, nil)

	req.True(s.Deliver([]byte("1")))
	req.False(s.Deliver([]byte("x")))
	<-s.Frames()
	req.True(s.Deliver([]byte("2")))
	req.False(s.Deliver([]byte("x")))

	req.False(s.Overflowed())
}

func TestConnectionSink_Close_IsIdempotent(t *testing.T) {
	s := NewConnectionSink(1, 0, nil)
	s.Close()
	s.Close()
	require.False(t, s.Deliver([]byte("x")))
}
