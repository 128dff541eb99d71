// Package protocol defines the JSON envelopes exchanged with clients.
// Every inbound kind decodes into its own payload type so that unknown or
// badly shaped messages are rejected here and never reach the dispatcher.
package protocol

import (
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

type Type string

const (
	TypeCreateRoom  Type = "create-room"
	TypeJoinRoom    Type = "join-room"
	TypeChat        Type = "chat"
	TypeLeaveRoom   Type = "leave-room"
	TypeRoomCreated Type = "room-created"
	TypeUserJoined  Type = "user-joined"
	TypeUserLeft    Type = "user-left"
	TypeError       Type = "error"
)

// Envelope is the wire shape shared by every message.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound is implemented only by the payload types of this package.
type Inbound interface {
	Kind() Type
	inbound()
}

type CreateRoom struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	RoomName string `json:"roomName" validate:"required,notblank,max=128"`
}

type JoinRoom struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	RoomID   string `json:"roomId" validate:"required,notblank,max=64"`
}

// Chat may name the target room explicitly; otherwise the sender's current room is used.
type Chat struct {
	ID        string    `json:"id" validate:"required,max=128"`
	Content   string    `json:"content" validate:"required"`
	Timestamp Timestamp `json:"timestamp" validate:"-"`
	Username  string    `json:"username" validate:"required,notblank,max=64"`
	RoomID    string    `json:"roomId,omitempty" validate:"omitempty,max=64"`
}

type LeaveRoom struct {
	RoomID   string `json:"roomId" validate:"required,notblank,max=64"`
	Username string `json:"username" validate:"required,notblank,max=64"`
}

func (CreateRoom) Kind() Type { return TypeCreateRoom }
func (JoinRoom) Kind() Type   { return TypeJoinRoom }
func (Chat) Kind() Type       { return TypeChat }
func (LeaveRoom) Kind() Type  { return TypeLeaveRoom }

func (CreateRoom) inbound() {}
func (JoinRoom) inbound()   {}
func (Chat) inbound()       {}
func (LeaveRoom) inbound()  {}

// Decoder turns raw frames into typed inbound messages.
type Decoder struct {
	validate         *validator.Validate
	maxContentLength int
}

// NewDecoder builds a Decoder. A maxContentLength of zero or less disables the content limit.
func NewDecoder(maxContentLength int) *Decoder {
	v := validator.New()
	// Report the JSON field names clients actually send.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Decoder{validate: v, maxContentLength: maxContentLength}
}

// Decode returns errors.ErrMalformedEnvelope for unparseable frames,
// errors.ErrUnknownType for unrecognised kinds and errors.ErrValidation for bad payloads.
func (d *Decoder) Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", errors.ErrMalformedEnvelope)
	}

	var msg Inbound
	var err error
	switch env.Type {
	case TypeCreateRoom:
		msg, err = decodePayload[CreateRoom](d, env.Payload)
	case TypeJoinRoom:
		msg, err = decodePayload[JoinRoom](d, env.Payload)
	case TypeChat:
		msg, err = decodePayload[Chat](d, env.Payload)
	case TypeLeaveRoom:
		msg, err = decodePayload[LeaveRoom](d, env.Payload)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, err
	}

	if chat, ok := msg.(Chat); ok {
		if chat.Timestamp.IsZero() {
			return nil, fmt.Errorf("%w: timestamp: required", errors.ErrValidation)
		}
		if d.maxContentLength > 0 && utf8.RuneCountInString(chat.Content) > d.maxContentLength {
			return nil, fmt.Errorf("%w: content exceeds %d characters", errors.ErrValidation, d.maxContentLength)
		}
	}
	return msg, nil
}

func decodePayload[T Inbound](d *Decoder, raw json.RawMessage) (Inbound, error) {
	var payload T
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing payload", errors.ErrValidation)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if err := d.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrValidation, describe(err))
	}
	return payload, nil
}

// describe flattens validator errors into "field: rule" pairs suitable for a client reply.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
