//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sink is the outbound side of one connection.
// Deliver must never block: a full sink drops the frame and reports false.
type Sink interface {
	Deliver(frame []byte) bool
	Close()
}

// Handler processes one inbound frame of a connection.
type Handler interface {
	Handle(ctx context.Context, conn domain.ConnID, frame []byte) error
}

// Disconnector purges a closed connection from every room it belonged to.
type Disconnector interface {
	Disconnect(ctx context.Context, conn domain.ConnID)
}

// IJournal stores room lifecycle entries.
type IJournal interface {
	Record(entry domain.JournalEntry) error
	History(roomID domain.RoomID, limit int) ([]domain.JournalEntry, error)
}

// IJournalFeed accepts entries without blocking the caller.
type IJournalFeed interface {
	Publish(entry domain.JournalEntry)
}
