package runtime_test

import (
	"chat-relay/domain"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrchestrator_LoadTest(t *testing.T) {
	if testing.Short() {
		t.Skip("load test skipped in short mode")
	}
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	numClients := 50
	messagesPerClient := 100
	total := numClients * messagesPerClient

	settings := testSettings()
	settings.BufferSize = 1000
	settings.ConnectionBufferSize = total + numClients*2
	settings.SlowConsumerDropLimit = 0

	log := slog.New(slog.DiscardHandler)
	o := runtime.NewOrchestrator(log, settings, nil, nil)
	req.NoError(o.Start(ctx))
	defer o.Stop()

	// Given every client in the same room
	owner, ownerSink := o.Connect()
	submit(t, o, owner, `{"type":"create-room","payload":{"username":"owner","roomName":"load"}}`)
	roomID := nextFrame(t, ownerSink).Payload["roomId"].(string)

	type client struct {
		id   domain.ConnID
		sink *sink.ConnectionSink
	}
	clients := make([]client, numClients)
	for i := range clients {
		conn, s := o.Connect()
		clients[i] = client{id: conn, sink: s}
		submit(t, o, conn, fmt.Sprintf(`{"type":"join-room","payload":{"username":"user-%d","roomId":"%s"}}`, i, roomID))
	}
	req.Eventually(func() bool { return o.Stats().Members == numClients+1 }, 2*time.Second, 10*time.Millisecond)

	var successCount atomic.Uint64
	var failureCount atomic.Uint64
	start := time.Now()
	var wg sync.WaitGroup

	// When every client chats concurrently
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c client) {
			defer wg.Done()
			for j := 0; j < messagesPerClient; j++ {
				msg := fmt.Sprintf(`{"type":"chat","payload":{"id":"%d-%d","content":"load test message","timestamp":%d,"username":"user-%d"}}`,
					i, j, time.Now().UnixMilli(), i)
				if err := o.Submit(ctx, c.id, []byte(msg)); err != nil {
					failureCount.Add(1)
				} else {
					successCount.Add(1)
				}
			}
		}(i, c)
	}
	wg.Wait()

	// Then the owner receives every chat
	req.Eventually(func() bool { return len(ownerSink.Frames()) >= total+numClients }, 5*time.Second, 10*time.Millisecond)
	duration := time.Since(start)

	req.Zero(failureCount.Load())
	req.Zero(o.Stats().FramesDropped)
	t.Logf("duration=%v submitted=%d throughput=%.2f msg/sec",
		duration, successCount.Load(), float64(successCount.Load())/duration.Seconds())
}
