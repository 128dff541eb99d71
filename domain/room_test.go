package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoom_Admit_IsIdempotent(t *testing.T) {
	req := require.New(t)
	room := NewRoom(NewRoomID(), "team", time.Now())

	// Given a member joined once
	already := room.Admit(Member{ConnID: "c1", Username: "alice"})
	req.False(already)

	// When the same connection joins again with another name
	already = room.Admit(Member{ConnID: "c1", Username: "alice2"})

	// Then membership is unchanged and the username is refreshed
	req.True(already)
	req.Len(room.Members, 1)
	req.Equal("alice2", room.Members[0].Username)
}

func TestRoom_Dismiss_KeepsJoinOrder(t *testing.T) {
	req := require.New(t)
	room := NewRoom(NewRoomID(), "team", time.Now())
	room.Admit(Member{ConnID: "c1", Username: "a"})
	room.Admit(Member{ConnID: "c2", Username: "b"})
	room.Admit(Member{ConnID: "c3", Username: "c"})

	m, ok := room.Dismiss("c2")
	req.True(ok)
	req.Equal("b", m.Username)
	req.Equal([]ConnID{"c1", "c3"}, room.ConnIDs())

	_, ok = room.Dismiss("c2")
	req.False(ok)
}

func TestRoom_Snapshot_IsDetached(t *testing.T) {
	req := require.New(t)
	room := NewRoom(NewRoomID(), "team", time.Now())
	room.Admit(Member{ConnID: "c1", Username: "a"})

	snap := room.Snapshot()
	room.Admit(Member{ConnID: "c2", Username: "b"})
	room.Dismiss("c1")

	req.Equal([]ConnID{"c1"}, snap.ConnIDs())
	req.Equal([]ConnID{"c2"}, room.ConnIDs())
}

func TestRoom_Others(t *testing.T) {
	req := require.New(t)
	room := NewRoom(NewRoomID(), "team", time.Now())
	room.Admit(Member{ConnID: "c1"})
	room.Admit(Member{ConnID: "c2"})

	req.Equal([]ConnID{"c2"}, room.Snapshot().Others("c1"))
	req.Empty(NewRoom(NewRoomID(), "x", time.Now()).Snapshot().Others("c1"))
}
