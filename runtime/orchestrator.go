package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/protocol"
	"chat-relay/runtime/workers"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Settings struct {
	BufferSize            int
	ConnectionBufferSize  int
	SlowConsumerDropLimit int
	MaxContentLength      int
	MetricInterval        time.Duration
	RestartInterval       time.Duration
	CensoredWords         []string
	CensoredDir           string
	CharReplacement       rune
}

// Orchestrator owns the relay state and the supervised workers around it.
// Transports talk to it through Connect, Submit and Disconnect; every
// event they submit is applied in order by a single hub worker.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	settings   Settings
	supervisor *workers.Supervisor
	registry   *Registry
	table      *RoomTable
	monitoring *observability.Monitoring
	store      contract.IJournal
	events     chan domain.ConnEvent
	done       chan struct{}
	stopOnce   sync.Once
	started    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewOrchestrator builds a relay. store may be nil, which disables the lifecycle journal.
func NewOrchestrator(log *slog.Logger, settings Settings, store contract.IJournal,
	monitoring *observability.Monitoring) *Orchestrator {
	if monitoring == nil {
		monitoring = observability.NewMonitoring(log)
	}
	return &Orchestrator{
		log:        log,
		settings:   settings,
		supervisor: workers.NewSupervisor(log, settings.RestartInterval),
		registry:   NewRegistry(),
		table:      NewRoomTable(),
		monitoring: monitoring,
		store:      store,
		events:     make(chan domain.ConnEvent, settings.BufferSize),
		done:       make(chan struct{}),
	}
}

// Start prepares moderation and the workers, then runs the supervisor in the background.
func (o *Orchestrator) Start(ctx context.Context) error {
	// 1. Preparation phase (No Lock)
	moderator, err := o.prepareModeration()
	if err != nil {
		return err
	}

	var feed contract.IJournalFeed
	var journalWorker *workers.JournalWorker
	if o.store != nil {
		journalWorker = workers.NewJournalWorker(o.log, o.store, o.settings.BufferSize)
		feed = journalWorker
	}

	dispatcher := NewDispatcher(o.log, o.table, o.registry,
		protocol.NewDecoder(o.settings.MaxContentLength), moderator, feed, o.monitoring)
	lifecycle := NewLifecycle(o.log, o.table, o.registry, feed)
	hub := workers.NewHubWorker(o.log, o.events, dispatcher, lifecycle)

	// 2. Critical section
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return errors.ErrAlreadyStarted
	}
	o.started = true
	ctx, o.cancel = context.WithCancel(ctx)
	o.supervisor.Add(hub)
	if journalWorker != nil {
		o.supervisor.Add(journalWorker)
	}
	if o.settings.MetricInterval > 0 {
		o.supervisor.Add(workers.NewHealthMonitoringWorker(o.log, o.monitoring, o, o.settings.MetricInterval))
	}
	o.mu.Unlock()

	// 3. Execution phase
	o.log.Info("Starting orchestrator and all supervised workers", "journal", o.store != nil)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.supervisor.Run(ctx)
	}()
	return nil
}

// prepareModeration merges the configured word list with the dictionaries found in CensoredDir.
func (o *Orchestrator) prepareModeration() (*moderation.Moderator, error) {
	words := o.settings.CensoredWords
	if o.settings.CensoredDir != "" {
		data, err := moderation.NewCensoredLoader(os.DirFS(o.settings.CensoredDir)).LoadAll(".")
		if err != nil {
			return nil, fmt.Errorf("loading censored words from %s: %w", o.settings.CensoredDir, err)
		}
		o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
			len(data.Languages), strings.Join(data.Languages, ",")))
		words = lo.Uniq(append(append([]string{}, words...), data.Words...))
	}
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(words)))
	return moderation.NewModerator(words, o.settings.CharReplacement, o.log)
}

// Connect registers a new connection and returns the sink its writer drains.
func (o *Orchestrator) Connect() (domain.ConnID, *sink.ConnectionSink) {
	conn := domain.NewConnID()
	s := sink.NewConnectionSink(o.settings.ConnectionBufferSize, o.settings.SlowConsumerDropLimit, o.monitoring)
	o.registry.Register(conn, s)
	// Stop may already have run CloseAll
	select {
	case <-o.done:
		o.registry.Unregister(conn)
		s.Close()
		o.log.Debug("Connection refused after shutdown", "conn", conn)
	default:
		o.log.Debug("Connection registered", "conn", conn)
	}
	return conn, s
}

// Submit queues an inbound frame. It blocks while the hub is busy, until ctx is done or the relay stops.
func (o *Orchestrator) Submit(ctx context.Context, conn domain.ConnID, frame []byte) error {
	return o.enqueue(ctx, domain.ConnEvent{Conn: conn, Frame: frame})
}

// Disconnect queues the purge of a closed connection behind the frames it already sent.
func (o *Orchestrator) Disconnect(conn domain.ConnID) {
	if err := o.enqueue(context.Background(), domain.ConnEvent{Conn: conn, Closed: true}); err != nil {
		o.log.Debug("Disconnect after shutdown", "conn", conn)
	}
}

func (o *Orchestrator) enqueue(ctx context.Context, ev domain.ConnEvent) error {
	select {
	case <-o.done:
		return errors.ErrRelayStopped
	default:
	}
	select {
	case o.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return errors.ErrRelayStopped
	}
}

// Stats merges room, connection and process figures.
func (o *Orchestrator) Stats() observability.Stats {
	stats := o.monitoring.Snapshot()
	table := o.table.Stats()
	stats.Rooms = table.Rooms
	stats.Members = table.Members
	stats.Connections = o.registry.Count()
	stats.WorkerRestarts = o.supervisor.Restarts()
	return stats
}

// Rooms lists the live rooms, oldest first.
func (o *Orchestrator) Rooms() []domain.Room {
	return o.table.Rooms()
}

// History reads the lifecycle journal of a room, or of every room when roomID is empty.
func (o *Orchestrator) History(roomID domain.RoomID, limit int) ([]domain.JournalEntry, error) {
	if o.store == nil {
		return nil, errors.ErrJournalDisabled
	}
	return o.store.History(roomID, limit)
}

// Stop cancels the workers, waits for them and closes every connection sink.
// Connections still open see their sink done and close their socket.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.log.Info("Requesting orchestrator shutdown")
		close(o.done)
		o.mu.Lock()
		cancel := o.cancel
		o.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		o.supervisor.Stop()
		o.wg.Wait()
		o.registry.CloseAll()
		o.log.Debug("Orchestrator stopped")
	})
}
