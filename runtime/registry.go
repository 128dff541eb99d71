package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
)

// Registry is the directory of live connections and their outbound sinks.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]contract.Sink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.ConnID]contract.Sink)}
}

func (r *Registry) Register(conn domain.ConnID, sink contract.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = sink
}

// Unregister forgets the connection and hands back its sink so the caller can close it.
func (r *Registry) Unregister(conn domain.ConnID) (contract.Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sink, ok := r.sessions[conn]
	if ok {
		delete(r.sessions, conn)
	}
	return sink, ok
}

// Send delivers a frame to one connection. It reports false when the connection is
// unknown or its sink refused the frame.
func (r *Registry) Send(conn domain.ConnID, frame []byte) bool {
	r.mu.RLock()
	sink, ok := r.sessions[conn]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return sink.Deliver(frame)
}

// Broadcast hands the same frame to every listed connection, in order,
// and returns how many accepted it. Sinks never block, so one slow
// connection cannot hold back the others.
func (r *Registry) Broadcast(conns []domain.ConnID, frame []byte) int {
	r.mu.RLock()
	sinks := make([]contract.Sink, 0, len(conns))
	for _, conn := range conns {
		if sink, ok := r.sessions[conn]; ok {
			sinks = append(sinks, sink)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sink := range sinks {
		if sink.Deliver(frame) {
			delivered++
		}
	}
	return delivered
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes and forgets every sink. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[domain.ConnID]contract.Sink)
	r.mu.Unlock()

	for _, sink := range sessions {
		sink.Close()
	}
}
