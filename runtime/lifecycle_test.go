package runtime

import (
	"chat-relay/domain"
	"chat-relay/mocks"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLifecycle_Disconnect_Notifies_Every_Room(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t, nil)
	for _, conn := range []domain.ConnID{"a", "b", "c"} {
		f.connect(conn)
	}

	// Given c is in room A with a and in room B with b
	roomA := f.createRoom("a", "Alice")
	roomB := f.createRoom("b", "Bob")
	req.NoError(f.joinRoom("c", "Carol", roomA))
	req.NoError(f.joinRoom("c", "Carol", roomB))
	f.drain("a")
	f.drain("b")

	// When c disconnects
	f.lifecycle.Disconnect(context.Background(), "c")

	// Then both rooms hear that Carol left
	for conn, roomID := range map[domain.ConnID]domain.RoomID{"a": roomA, "b": roomB} {
		frames := f.drain(conn)
		req.Len(frames, 1)
		req.Equal("user-left", frames[0].Type)
		req.Equal("Carol", frames[0].Payload["username"])
		req.Equal(string(roomID), frames[0].Payload["roomId"])
	}
	req.Empty(f.table.RoomsOf("c"))
	req.True(f.sinks["c"].closed)
	req.Equal(2, f.registry.Count())
}

func TestLifecycle_Disconnect_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t, nil)
	f.connect("a")
	f.connect("b")
	roomID := f.createRoom("a", "Alice")
	req.NoError(f.joinRoom("b", "Bob", roomID))
	f.drain("a")

	f.lifecycle.Disconnect(context.Background(), "b")
	f.lifecycle.Disconnect(context.Background(), "b")

	req.Len(f.drain("a"), 1)
}

func TestLifecycle_Last_Member_Deletes_Room(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockIJournalFeed(ctrl)
	roomCreated := journal.EXPECT().Publish(gomock.Any())
	gomock.InOrder(
		roomCreated,
		journal.EXPECT().Publish(gomock.Cond(func(e domain.JournalEntry) bool {
			return e.Kind == domain.MemberDisconnected && e.Username == "Alice"
		})),
		journal.EXPECT().Publish(gomock.Cond(func(e domain.JournalEntry) bool {
			return e.Kind == domain.RoomDeleted
		})),
	)

	f := newRelayFixture(t, journal)
	f.connect("a")
	roomID := f.createRoom("a", "Alice")

	f.lifecycle.Disconnect(context.Background(), "a")

	_, ok := f.table.Room(roomID)
	req.False(ok)
	req.Zero(f.registry.Count())
}
