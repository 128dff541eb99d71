package runtime

import (
	"chat-relay/domain"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingSink keeps every frame it accepts.
type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
}

func (s *recordingSink) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full || s.closed {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSink) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

func TestRegistry_Register_And_Send(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &recordingSink{}

	// Given no connection is registered
	req.Zero(registry.Count())
	req.False(registry.Send("c1", []byte("x")))

	// When a connection registers
	registry.Register("c1", sink)

	// Then frames reach its sink
	req.Equal(1, registry.Count())
	req.True(registry.Send("c1", []byte("x")))
	req.Equal([][]byte{[]byte("x")}, sink.Frames())
}

func TestRegistry_Broadcast_SkipsFullAndUnknownSinks(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	ok1, full, ok2 := &recordingSink{}, &recordingSink{full: true}, &recordingSink{}
	registry.Register("c1", ok1)
	registry.Register("c2", full)
	registry.Register("c3", ok2)

	delivered := registry.Broadcast([]domain.ConnID{"c1", "c2", "c3", "ghost"}, []byte("hi"))

	req.Equal(2, delivered)
	req.Len(ok1.Frames(), 1)
	req.Empty(full.Frames())
	req.Len(ok2.Frames(), 1)
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &recordingSink{}
	registry.Register("c1", sink)

	got, ok := registry.Unregister("c1")
	req.True(ok)
	req.Same(sink, got)
	req.Zero(registry.Count())

	_, ok = registry.Unregister("c1")
	req.False(ok)
}

func TestRegistry_CloseAll(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	s1, s2 := &recordingSink{}, &recordingSink{}
	registry.Register("c1", s1)
	registry.Register("c2", s2)

	registry.CloseAll()

	req.True(s1.closed)
	req.True(s2.closed)
	req.Zero(registry.Count())
}
