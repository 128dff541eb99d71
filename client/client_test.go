package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/require"
)

func TestSession_Envelope(t *testing.T) {
	req := require.New(t)
	s := &session{username: "alice"}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	decode := func(frame []byte) inbound {
		var msg inbound
		req.NoError(json.Unmarshal(frame, &msg))
		return msg
	}

	frame, err := s.envelope("/create team", now)
	req.NoError(err)
	msg := decode(frame)
	req.Equal("create-room", msg.Type)
	req.Equal("team", msg.Payload["roomName"])

	_, err = s.envelope("/leave", now)
	req.Error(err)

	frame, err = s.envelope("hello there", now)
	req.NoError(err)
	msg = decode(frame)
	req.Equal("chat", msg.Type)
	req.Equal("hello there", msg.Payload["content"])
	req.Equal("2024-05-01T10:00:00Z", msg.Payload["timestamp"])

	frame, err = s.envelope("   ", now)
	req.NoError(err)
	req.Nil(frame)
}

func TestSession_Tracks_Current_Room(t *testing.T) {
	req := require.New(t)
	color.Disable()
	s := &session{username: "alice"}

	s.render(inbound{Type: "user-joined", Payload: map[string]any{"roomId": "r1", "username": "alice", "message": "alice joined the room"}})
	req.Equal("r1", s.room)

	frame, err := s.envelope("/leave", time.Now())
	req.NoError(err)
	req.Contains(string(frame), `"roomId":"r1"`)

	line := s.render(inbound{Type: "error", Payload: map[string]any{"message": "nope"}})
	req.Equal("! nope", line)

	s.render(inbound{Type: "user-left", Payload: map[string]any{"roomId": "r1", "username": "alice"}})
	req.Empty(s.room)
}
