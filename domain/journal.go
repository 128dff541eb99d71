package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalKind names a membership change recorded in the room journal.
type JournalKind string

const (
	RoomCreated        JournalKind = "room-created"
	MemberJoined       JournalKind = "member-joined"
	MemberLeft         JournalKind = "member-left"
	MemberDisconnected JournalKind = "member-disconnected"
	RoomDeleted        JournalKind = "room-deleted"
)

// JournalEntry is an audit record of room lifecycle. It never carries chat content.
type JournalEntry struct {
	ID       uuid.UUID
	Kind     JournalKind
	RoomID   RoomID
	RoomName string
	ConnID   ConnID
	Username string
	At       time.Time
}

func NewJournalEntry(kind JournalKind, room Room, member Member, at time.Time) JournalEntry {
	return JournalEntry{
		ID:       uuid.New(),
		Kind:     kind,
		RoomID:   room.ID,
		RoomName: room.Name,
		ConnID:   member.ConnID,
		Username: member.Username,
		At:       at,
	}
}
