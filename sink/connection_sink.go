package sink

import (
	"chat-relay/observability"
	"sync"
	"sync/atomic"
)

// ConnectionSink buffers encoded frames for one connection until its writer picks them up.
//
// Deliver never blocks. When the buffer is full the frame is dropped; after
// dropLimit consecutive drops the sink closes itself so the transport can
// evict the slow consumer. The frames channel is never closed, Done is.
type ConnectionSink struct {
	frames     chan []byte
	done       chan struct{}
	once       sync.Once
	drops      atomic.Int32
	dropLimit  int32
	overflowed atomic.Bool
	monitoring *observability.Monitoring
}

// NewConnectionSink creates a sink. A dropLimit of zero or less never evicts.
func NewConnectionSink(bufferSize, dropLimit int, monitoring *observability.Monitoring) *ConnectionSink {
	return &ConnectionSink{
		frames:     make(chan []byte, bufferSize),
		done:       make(chan struct{}),
		dropLimit:  int32(dropLimit),
		monitoring: monitoring,
	}
}

func (s *ConnectionSink) Deliver(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.frames <- frame:
		s.drops.Store(0)
		if s.monitoring != nil {
			s.monitoring.IncrDelivered()
		}
		return true
	default:
		if s.monitoring != nil {
			s.monitoring.IncrDropped()
		}
		if n := s.drops.Add(1); s.dropLimit > 0 && n >= s.dropLimit {
			if s.overflowed.CompareAndSwap(false, true) && s.monitoring != nil {
				s.monitoring.IncrSlowConsumer()
			}
			s.Close()
		}
		return false
	}
}

// Frames is read by the connection's single writer.
func (s *ConnectionSink) Frames() <-chan []byte {
	return s.frames
}

// Done is closed once the sink stops accepting frames.
func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

func (s *ConnectionSink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Overflowed reports whether the sink closed itself because its reader fell behind.
func (s *ConnectionSink) Overflowed() bool {
	return s.overflowed.Load()
}
