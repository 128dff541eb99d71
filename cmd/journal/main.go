package main

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/journal", "Path to the journal badger DB")
	room := flag.String("room", "", "Room id, empty for every room")
	limit := flag.Int("limit", 0, "Latest entries to show, 0 for all")
	flag.Parse()

	if err := run(os.Stdout, *dbPath, domain.RoomID(*room), *limit); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, path string, room domain.RoomID, limit int) error {
	db, err := openDB(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	entries, err := repositories.NewJournalRepository(db, slog.Default()).History(room, limit)
	if err != nil {
		return err
	}
	render(out, entries)
	return nil
}

func render(out io.Writer, entries []domain.JournalEntry) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"At", "Kind", "Room", "Name", "Username", "Connection"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, e := range entries {
		table.Append([]string{
			e.At.UTC().Format("2006-01-02 15:04:05.000"),
			string(e.Kind),
			short(string(e.RoomID)),
			e.RoomName,
			e.Username,
			short(string(e.ConnID)),
		})
	}
	table.Render()
}

// short keeps the first 8 characters of an id for readability.
func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		// A relay that crashed leaves a value log to truncate, which needs a writable open
		repair, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
		if err != nil {
			return nil, fmt.Errorf("repair failed: %w", err)
		}
		_ = repair.Close()
		return badger.Open(opts)
	}
	return db, err
}
