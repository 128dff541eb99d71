package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
)

// HubWorker is the single consumer of connection events. Handling them one at
// a time keeps each room mutation and its fan-out one indivisible step.
type HubWorker struct {
	log          *slog.Logger
	events       <-chan domain.ConnEvent
	handler      contract.Handler
	disconnector contract.Disconnector
}

func NewHubWorker(log *slog.Logger, events <-chan domain.ConnEvent,
	handler contract.Handler, disconnector contract.Disconnector) *HubWorker {
	return &HubWorker{log: log, events: events, handler: handler, disconnector: disconnector}
}

func (w *HubWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping hub worker")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel is closed")
				return nil
			}
			if evt.Closed {
				w.disconnector.Disconnect(ctx, evt.Conn)
				continue
			}
			// Failures are already answered to the sender and logged by the handler.
			_ = w.handler.Handle(ctx, evt.Conn, evt.Frame)
		}
	}
}
