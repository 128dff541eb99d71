package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrMalformedEnvelope = fmt.Errorf("malformed envelope")
	ErrUnknownType       = fmt.Errorf("unknown envelope type")
	ErrValidation        = fmt.Errorf("invalid payload")
	ErrRoomNotFound      = fmt.Errorf("room not found")
	ErrNotMember         = fmt.Errorf("connection is not a member of the room")
	ErrOrphanChat        = fmt.Errorf("chat sent outside of any room")
	ErrJournalDisabled   = fmt.Errorf("room journal is disabled")
	ErrRelayStopped      = fmt.Errorf("relay is stopped")
	ErrAlreadyStarted    = fmt.Errorf("relay already started")
)

// Is mirrors the standard library so callers importing this package keep a single errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
