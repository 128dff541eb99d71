package workers

import (
	"chat-relay/domain"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestJournalWorker_RecordsPublishedEntries(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockIJournal(ctrl)
	done := make(chan struct{})

	room := domain.Room{ID: "r1", Name: "team"}
	created := domain.NewJournalEntry(domain.RoomCreated, room, domain.Member{ConnID: "c1", Username: "X"}, time.Now())
	joined := domain.NewJournalEntry(domain.MemberJoined, room, domain.Member{ConnID: "c2", Username: "Y"}, time.Now())

	// Given the store fails once then succeeds
	gomock.InOrder(
		journal.EXPECT().Record(created).Return(fmt.Errorf("disk full")),
		journal.EXPECT().Record(joined).Do(func(domain.JournalEntry) { close(done) }).Return(nil),
	)

	worker := NewJournalWorker(log, journal, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// When two entries are published
	worker.Publish(created)
	worker.Publish(joined)

	// Then both reach the store and the failure does not stop the worker
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("journal entries were not recorded")
	}
}

func TestJournalWorker_Publish_NeverBlocks(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	worker := NewJournalWorker(log, mocks.NewMockIJournal(ctrl), 1)

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			worker.Publish(domain.JournalEntry{Kind: domain.MemberJoined})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		require.Fail(t, "Publish blocked on a full buffer")
	}
}

func TestJournalWorker_DrainsOnShutdown(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockIJournal(ctrl)
	journal.EXPECT().Record(gomock.Any()).Return(nil).Times(3)

	worker := NewJournalWorker(log, journal, 10)
	for i := 0; i < 3; i++ {
		worker.Publish(domain.JournalEntry{Kind: domain.MemberLeft})
	}

	// Given a context already canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Then buffered entries are still recorded
	req.ErrorIs(worker.Run(ctx), context.Canceled)
}
