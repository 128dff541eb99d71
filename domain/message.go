package domain

import "time"

// ChatMessage is one relayed chat line. It is never stored.
type ChatMessage struct {
	ID       string
	RoomID   RoomID
	Username string
	Content  string
	SentAt   time.Time
}
