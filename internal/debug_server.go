package internal

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

// RelayInspector is the read-only view of the relay served on the debug endpoints.
type RelayInspector interface {
	Stats() observability.Stats
	Rooms() []domain.Room
	History(roomID domain.RoomID, limit int) ([]domain.JournalEntry, error)
}

type InspectRow struct {
	Kind      string
	Timestamp string
	RoomID    string
	RoomName  string
	Username  string
	ConnID    string
}

type RoomRow struct {
	ID      string
	Name    string
	Members int
}

type PageData struct {
	Room  string
	Items []InspectRow
	Rooms []RoomRow
	Stats observability.Stats
}

// NewDebugHandler serves /debug/stats as JSON and /debug/journal as an HTML table.
// limit caps the number of journal rows rendered.
func NewDebugHandler(log *slog.Logger, relay RelayInspector, limit int) http.Handler {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("GET /debug/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(relay.Stats()); err != nil {
			log.Debug("Failed to write stats", "error", err)
		}
	})

	mux.HandleFunc("GET /debug/journal", func(w http.ResponseWriter, r *http.Request) {
		room := r.URL.Query().Get("room")
		rowLimit := limit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				rowLimit = n
			}
		}

		entries, err := relay.History(domain.RoomID(room), rowLimit)
		if errors.Is(err, errors.ErrJournalDisabled) {
			http.Error(w, "room journal is disabled, set JOURNAL_FILEPATH", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("Failed to read journal", "room", room, "error", err)
			http.Error(w, "failed to read journal", http.StatusInternalServerError)
			return
		}

		data := PageData{
			Room:  room,
			Items: lo.Map(entries, func(e domain.JournalEntry, _ int) InspectRow { return toInspectRow(e) }),
			Rooms: lo.Map(relay.Rooms(), func(r domain.Room, _ int) RoomRow {
				return RoomRow{ID: string(r.ID), Name: r.Name, Members: len(r.Members)}
			}),
			Stats: relay.Stats(),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Debug("Failed to render journal", "error", err)
		}
	})
	return mux
}

func toInspectRow(e domain.JournalEntry) InspectRow {
	return InspectRow{
		Kind:      string(e.Kind),
		Timestamp: e.At.UTC().Format("2006-01-02 15:04:05.000"),
		RoomID:    string(e.RoomID),
		RoomName:  e.RoomName,
		Username:  e.Username,
		ConnID:    string(e.ConnID),
	}
}
