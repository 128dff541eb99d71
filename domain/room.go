// Package domain contains core concepts of the relay: rooms, members and chat messages.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RoomID is an opaque, globally unique room token.
type RoomID string

// ConnID identifies one live transport session.
type ConnID string

func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Member is a connection seen through one room, with the username it joined with.
type Member struct {
	ConnID   ConnID
	Username string
	JoinedAt time.Time
}

// Room keeps its members in join order. A connection appears at most once.
type Room struct {
	ID        RoomID
	Name      string
	CreatedAt time.Time
	Members   []Member
}

func NewRoom(id RoomID, name string, createdAt time.Time) *Room {
	return &Room{ID: id, Name: name, CreatedAt: createdAt}
}

// Admit adds the member, or refreshes its username when the connection is already in the room.
// It reports whether the connection was already a member.
func (r *Room) Admit(m Member) bool {
	for i, existing := range r.Members {
		if existing.ConnID == m.ConnID {
			r.Members[i].Username = m.Username
			return true
		}
	}
	r.Members = append(r.Members, m)
	return false
}

// Dismiss removes the connection and returns the member it was.
func (r *Room) Dismiss(conn ConnID) (Member, bool) {
	for i, existing := range r.Members {
		if existing.ConnID == conn {
			r.Members = append(r.Members[:i:i], r.Members[i+1:]...)
			return existing, true
		}
	}
	return Member{}, false
}

func (r *Room) Member(conn ConnID) (Member, bool) {
	return lo.Find(r.Members, func(m Member) bool { return m.ConnID == conn })
}

func (r *Room) IsEmpty() bool {
	return len(r.Members) == 0
}

// Snapshot returns a copy that shares no memory with the live room.
func (r *Room) Snapshot() Room {
	cp := *r
	cp.Members = append([]Member(nil), r.Members...)
	return cp
}

// ConnIDs lists the members' connections in join order.
func (r Room) ConnIDs() []ConnID {
	return lo.Map(r.Members, func(m Member, _ int) ConnID { return m.ConnID })
}

// Others lists every member except conn.
func (r Room) Others(conn ConnID) []ConnID {
	return lo.FilterMap(r.Members, func(m Member, _ int) (ConnID, bool) {
		return m.ConnID, m.ConnID != conn
	})
}
