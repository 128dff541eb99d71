package protocol

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
)

// Outbound is a server-to-client envelope. Payload is one of the *Payload types below.
type Outbound struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

type RoomCreatedPayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Username string `json:"username"`
}

type UserJoinedPayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type ChatPayload struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	RoomID    string `json:"roomId"`
}

type UserLeftPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func RoomCreated(room domain.Room, username string) Outbound {
	return Outbound{Type: TypeRoomCreated, Payload: RoomCreatedPayload{
		RoomID:   string(room.ID),
		RoomName: room.Name,
		Username: username,
	}}
}

func UserJoined(room domain.Room, username string) Outbound {
	return Outbound{Type: TypeUserJoined, Payload: UserJoinedPayload{
		RoomID:   string(room.ID),
		RoomName: room.Name,
		Username: username,
		Message:  fmt.Sprintf("%s joined the room", username),
	}}
}

func ChatMessage(msg domain.ChatMessage) Outbound {
	return Outbound{Type: TypeChat, Payload: ChatPayload{
		ID:        msg.ID,
		Content:   msg.Content,
		Timestamp: FormatTimestamp(msg.SentAt),
		Username:  msg.Username,
		RoomID:    string(msg.RoomID),
	}}
}

func UserLeft(roomID domain.RoomID, username string) Outbound {
	return Outbound{Type: TypeUserLeft, Payload: UserLeftPayload{
		RoomID:   string(roomID),
		Username: username,
		Message:  fmt.Sprintf("%s left the room", username),
	}}
}

func Error(message string) Outbound {
	return Outbound{Type: TypeError, Payload: ErrorPayload{Message: message}}
}

// Encode marshals the envelope once so a broadcast can hand the same frame to every recipient.
func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(o)
}
