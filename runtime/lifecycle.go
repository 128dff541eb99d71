package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/protocol"
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Lifecycle reacts to transport close: it purges the connection from every
// room and tells the remaining members who left.
type Lifecycle struct {
	log      *slog.Logger
	table    *RoomTable
	registry *Registry
	journal  contract.IJournalFeed
	tracer   trace.Tracer
	now      func() time.Time
}

// NewLifecycle wires the lifecycle manager. journal may be nil.
func NewLifecycle(log *slog.Logger, table *RoomTable, registry *Registry, journal contract.IJournalFeed) *Lifecycle {
	return &Lifecycle{
		log:      log,
		table:    table,
		registry: registry,
		journal:  journal,
		tracer:   otel.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Disconnect is idempotent: a second call for the same connection finds nothing to purge.
func (l *Lifecycle) Disconnect(ctx context.Context, conn domain.ConnID) {
	_, span := l.tracer.Start(ctx, "disconnect", trace.WithAttributes(attribute.String("conn.id", string(conn))))
	defer span.End()

	if sink, ok := l.registry.Unregister(conn); ok {
		sink.Close()
	}

	departures := l.table.RemoveConnection(conn)
	span.SetAttributes(attribute.Int("rooms", len(departures)))
	for _, dep := range departures {
		l.record(domain.MemberDisconnected, dep)
		if dep.Deleted {
			l.log.Info("Room deleted after disconnect", "room", dep.Room.ID, "conn", conn)
			l.record(domain.RoomDeleted, dep)
			continue
		}
		frame, err := protocol.UserLeft(dep.Room.ID, dep.Member.Username).Encode()
		if err != nil {
			l.log.Error("Failed to encode user-left", "error", err)
			continue
		}
		l.registry.Broadcast(dep.Room.ConnIDs(), frame)
	}
	l.log.Debug("Connection purged", "conn", conn, "rooms", len(departures))
}

func (l *Lifecycle) record(kind domain.JournalKind, dep Departure) {
	if l.journal == nil {
		return
	}
	l.journal.Publish(domain.NewJournalEntry(kind, dep.Room, dep.Member, l.now()))
}
