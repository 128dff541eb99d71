package protocol

import (
	"chat-relay/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOutbound_Encode(t *testing.T) {
	req := require.New(t)
	room := domain.Room{ID: "r1", Name: "team"}

	b, err := RoomCreated(room, "X").Encode()
	req.NoError(err)
	req.JSONEq(`{"type":"room-created","payload":{"roomId":"r1","roomName":"team","username":"X"}}`, string(b))

	b, err = UserJoined(room, "Y").Encode()
	req.NoError(err)
	req.JSONEq(`{"type":"user-joined","payload":{"roomId":"r1","roomName":"team","username":"Y","message":"Y joined the room"}}`, string(b))

	b, err = UserLeft(room.ID, "Y").Encode()
	req.NoError(err)
	req.JSONEq(`{"type":"user-left","payload":{"roomId":"r1","username":"Y","message":"Y left the room"}}`, string(b))

	b, err = Error("boom").Encode()
	req.NoError(err)
	req.JSONEq(`{"type":"error","payload":{"message":"boom"}}`, string(b))
}

func TestOutbound_Chat_UsesISOTimestamp(t *testing.T) {
	req := require.New(t)
	paris := time.FixedZone("CEST", 2*3600)
	msg := domain.ChatMessage{
		ID: "1", RoomID: "r1", Username: "X", Content: "hi",
		SentAt: time.Date(2024, 5, 1, 12, 0, 0, 123_000_000, paris),
	}

	b, err := ChatMessage(msg).Encode()
	req.NoError(err)
	req.JSONEq(`{"type":"chat","payload":{"id":"1","content":"hi","timestamp":"2024-05-01T10:00:00.123Z","username":"X","roomId":"r1"}}`, string(b))
}
