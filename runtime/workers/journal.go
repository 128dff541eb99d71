package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
)

// JournalWorker moves room lifecycle entries to the journal store off the dispatch path.
// Publish never blocks: when the buffer is full the entry is lost and logged.
type JournalWorker struct {
	log     *slog.Logger
	journal contract.IJournal
	entries chan domain.JournalEntry
}

func NewJournalWorker(log *slog.Logger, journal contract.IJournal, bufferSize int) *JournalWorker {
	return &JournalWorker{log: log, journal: journal, entries: make(chan domain.JournalEntry, bufferSize)}
}

func (w *JournalWorker) Publish(entry domain.JournalEntry) {
	select {
	case w.entries <- entry:
	default:
		w.log.Warn("Journal buffer full, entry lost", "kind", entry.Kind, "room", entry.RoomID)
	}
}

func (w *JournalWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			w.log.Debug("Stopping journal worker")
			return ctx.Err()
		case entry := <-w.entries:
			w.store(entry)
		}
	}
}

// drain stores what is already buffered so a clean shutdown keeps the tail of the journal.
func (w *JournalWorker) drain() {
	for {
		select {
		case entry := <-w.entries:
			w.store(entry)
		default:
			return
		}
	}
}

func (w *JournalWorker) store(entry domain.JournalEntry) {
	if err := w.journal.Record(entry); err != nil {
		w.log.Error("Failed to record journal entry", "kind", entry.Kind, "room", entry.RoomID, "error", err)
	}
}
