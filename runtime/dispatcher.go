// Package runtime owns the relay state (room table, connection registry) and the
// logic that turns inbound envelopes and disconnects into membership changes and fan-out.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/protocol"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chat-relay/runtime"

// Dispatcher applies one inbound envelope at a time. It is not safe for concurrent
// use: the hub worker is its only caller, which makes every mutation and the
// fan-out that follows a single step.
type Dispatcher struct {
	log        *slog.Logger
	table      *RoomTable
	registry   *Registry
	decoder    *protocol.Decoder
	moderator  *moderation.Moderator
	journal    contract.IJournalFeed
	monitoring *observability.Monitoring
	tracer     trace.Tracer
	now        func() time.Time
}

// NewDispatcher wires the dispatcher. moderator, journal and monitoring may be nil.
func NewDispatcher(log *slog.Logger, table *RoomTable, registry *Registry, decoder *protocol.Decoder,
	moderator *moderation.Moderator, journal contract.IJournalFeed, monitoring *observability.Monitoring) *Dispatcher {
	return &Dispatcher{
		log:        log,
		table:      table,
		registry:   registry,
		decoder:    decoder,
		moderator:  moderator,
		journal:    journal,
		monitoring: monitoring,
		tracer:     otel.Tracer(tracerName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle decodes and applies a frame sent by conn.
// Malformed frames are logged and dropped; every other failure is answered
// with an error envelope to conn only. The returned error is informational.
func (d *Dispatcher) Handle(ctx context.Context, conn domain.ConnID, frame []byte) error {
	ctx, span := d.tracer.Start(ctx, "dispatch", trace.WithAttributes(attribute.String("conn.id", string(conn))))
	defer span.End()

	msg, err := d.decoder.Decode(frame)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.reject()
		if errors.Is(err, errors.ErrValidation) {
			d.log.Debug("Rejected invalid payload", "conn", conn, "error", err)
			d.reply(conn, protocol.Error(err.Error()))
			return err
		}
		d.log.Warn("Dropping malformed envelope", "conn", conn, "error", err)
		return err
	}
	span.SetAttributes(attribute.String("envelope.type", string(msg.Kind())))

	switch m := msg.(type) {
	case protocol.CreateRoom:
		err = d.createRoom(ctx, conn, m)
	case protocol.JoinRoom:
		err = d.joinRoom(ctx, conn, m)
	case protocol.Chat:
		err = d.chat(ctx, conn, m)
	case protocol.LeaveRoom:
		err = d.leaveRoom(ctx, conn, m)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.reject()
	}
	return err
}

func (d *Dispatcher) createRoom(_ context.Context, conn domain.ConnID, m protocol.CreateRoom) error {
	room := d.table.CreateRoom(conn, m.Username, m.RoomName)
	d.log.Info("Room created", "room", room.ID, "name", room.Name, "conn", conn)
	d.record(domain.RoomCreated, room, room.Members[0])
	d.reply(conn, protocol.RoomCreated(room, m.Username))
	return nil
}

func (d *Dispatcher) joinRoom(_ context.Context, conn domain.ConnID, m protocol.JoinRoom) error {
	res, err := d.table.JoinRoom(conn, m.Username, domain.RoomID(m.RoomID))
	if errors.Is(err, errors.ErrRoomNotFound) {
		d.log.Debug("Join of unknown room", "room", m.RoomID, "conn", conn)
		d.reply(conn, protocol.Error(roomNotFoundMessage(m.RoomID)))
		return err
	}
	if err != nil {
		return err
	}

	joined := protocol.UserJoined(res.Room, m.Username)
	d.reply(conn, joined)
	if res.AlreadyMember {
		return nil
	}
	d.log.Info("User joined room", "room", res.Room.ID, "conn", conn, "members", len(res.Room.Members))
	d.record(domain.MemberJoined, res.Room, res.Member)
	d.broadcast(res.Room.Others(conn), joined)
	return nil
}

func (d *Dispatcher) chat(_ context.Context, conn domain.ConnID, m protocol.Chat) error {
	room, err := d.resolveChatRoom(conn, m)
	switch {
	case errors.Is(err, errors.ErrOrphanChat):
		d.log.Warn("Dropping chat sent outside of any room", "conn", conn, "id", m.ID)
		d.reply(conn, protocol.Error("You are not in a room. Join or create one first."))
		return err
	case errors.Is(err, errors.ErrRoomNotFound):
		d.reply(conn, protocol.Error(roomNotFoundMessage(m.RoomID)))
		return err
	case errors.Is(err, errors.ErrNotMember):
		d.reply(conn, protocol.Error(fmt.Sprintf("You are not a member of room %s.", m.RoomID)))
		return err
	case err != nil:
		return err
	}

	content := m.Content
	if censored, words := d.moderator.Censor(content); len(words) > 0 {
		d.log.Info("Chat censored", "room", room.ID, "conn", conn,
			"words", len(words), "lang", d.moderator.Language(content))
		content = censored
	}

	msg := domain.ChatMessage{
		ID:       m.ID,
		RoomID:   room.ID,
		Username: m.Username,
		Content:  content,
		SentAt:   m.Timestamp.Time,
	}
	// The sender is echoed so every client renders the same server ordering.
	d.broadcast(room.ConnIDs(), protocol.ChatMessage(msg))
	return nil
}

// resolveChatRoom picks the room named in the payload, or the sender's current room.
func (d *Dispatcher) resolveChatRoom(conn domain.ConnID, m protocol.Chat) (domain.Room, error) {
	if m.RoomID != "" {
		return d.table.Membership(conn, domain.RoomID(m.RoomID))
	}
	room, ok := d.table.CurrentRoom(conn)
	if !ok {
		return domain.Room{}, errors.ErrOrphanChat
	}
	return room, nil
}

func (d *Dispatcher) leaveRoom(_ context.Context, conn domain.ConnID, m protocol.LeaveRoom) error {
	dep, err := d.table.LeaveRoom(conn, domain.RoomID(m.RoomID))
	switch {
	case errors.Is(err, errors.ErrRoomNotFound):
		d.reply(conn, protocol.Error(roomNotFoundMessage(m.RoomID)))
		return err
	case errors.Is(err, errors.ErrNotMember):
		d.reply(conn, protocol.Error(fmt.Sprintf("You are not a member of room %s.", m.RoomID)))
		return err
	case err != nil:
		return err
	}

	left := protocol.UserLeft(dep.Room.ID, dep.Member.Username)
	d.broadcast(dep.Room.ConnIDs(), left)
	d.reply(conn, left)
	d.log.Info("User left room", "room", dep.Room.ID, "conn", conn, "deleted", dep.Deleted)
	d.record(domain.MemberLeft, dep.Room, dep.Member)
	if dep.Deleted {
		d.record(domain.RoomDeleted, dep.Room, dep.Member)
	}
	return nil
}

func (d *Dispatcher) reply(conn domain.ConnID, out protocol.Outbound) {
	frame, err := out.Encode()
	if err != nil {
		d.log.Error("Failed to encode reply", "type", out.Type, "error", err)
		return
	}
	if !d.registry.Send(conn, frame) {
		d.log.Debug("Reply not delivered", "conn", conn, "type", out.Type)
	}
}

// broadcast encodes once and hands the frame to every listed connection in order.
func (d *Dispatcher) broadcast(conns []domain.ConnID, out protocol.Outbound) {
	if len(conns) == 0 {
		return
	}
	frame, err := out.Encode()
	if err != nil {
		d.log.Error("Failed to encode broadcast", "type", out.Type, "error", err)
		return
	}
	if delivered := d.registry.Broadcast(conns, frame); delivered < len(conns) {
		d.log.Debug("Broadcast partially delivered", "type", out.Type,
			"delivered", delivered, "recipients", len(conns))
	}
}

func (d *Dispatcher) record(kind domain.JournalKind, room domain.Room, member domain.Member) {
	if d.journal == nil {
		return
	}
	d.journal.Publish(domain.NewJournalEntry(kind, room, member, d.now()))
}

func (d *Dispatcher) reject() {
	if d.monitoring != nil {
		d.monitoring.IncrRejected()
	}
}

func roomNotFoundMessage(roomID string) string {
	return fmt.Sprintf("Room %s does not exist. Please check the Room ID.", roomID)
}
