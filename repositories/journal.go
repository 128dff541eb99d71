package repositories

import (
	"chat-relay/domain"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const journalPrefix = "journal:"

type JournalRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewJournalRepository(db *badger.DB, log *slog.Logger) *JournalRepository {
	return &JournalRepository{db: db, log: log}
}

// Record persists an entry under "journal:{room_id}:{timestamp_padded}:{uuid}".
// The 19-digit padding keeps a room's entries in chronological order and the uuid
// separates entries written in the same nanosecond.
func (j *JournalRepository) Record(entry domain.JournalEntry) error {
	key := fmt.Sprintf("%s%s:%019d:%s",
		journalPrefix,
		entry.RoomID,
		entry.At.UnixNano(),
		entry.ID,
	)
	value, err := fromJournalEntry(entry)
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(value)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// History returns the latest entries of a room, oldest first.
// An empty roomID reads the journal of every room. A limit <= 0 means no limit.
func (j *JournalRepository) History(roomID domain.RoomID, limit int) ([]domain.JournalEntry, error) {
	if roomID == "" {
		return j.all(limit)
	}
	prefix := []byte(fmt.Sprintf("%s%s:", journalPrefix, roomID))
	var values [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts after the last key of the prefix
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				j.log.Debug(fmt.Sprintf("Maximum of %d journal entries reached", limit))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]domain.JournalEntry, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		entry, err := decodeEntry(values[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (j *JournalRepository) all(limit int) ([]domain.JournalEntry, error) {
	var entries []domain.JournalEntry
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(journalPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				entry, err := decodeEntry(value)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].At.Before(entries[b].At)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func fromJournalEntry(entry domain.JournalEntry) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":        entry.ID.String(),
		"kind":      string(entry.Kind),
		"room_id":   string(entry.RoomID),
		"room_name": entry.RoomName,
		"conn_id":   string(entry.ConnID),
		"username":  entry.Username,
		"at":        entry.At.UTC().Format(time.RFC3339Nano),
	})
}

func decodeEntry(value []byte) (domain.JournalEntry, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(value, &s); err != nil {
		return domain.JournalEntry{}, err
	}
	return toJournalEntry(&s)
}

func toJournalEntry(s *structpb.Struct) (domain.JournalEntry, error) {
	field := func(name string) string {
		return s.GetFields()[name].GetStringValue()
	}
	id, err := uuid.Parse(field("id"))
	if err != nil {
		return domain.JournalEntry{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, field("at"))
	if err != nil {
		return domain.JournalEntry{}, err
	}
	return domain.JournalEntry{
		ID:       id,
		Kind:     domain.JournalKind(field("kind")),
		RoomID:   domain.RoomID(field("room_id")),
		RoomName: field("room_name"),
		ConnID:   domain.ConnID(field("conn_id")),
		Username: field("username"),
		At:       at,
	}, nil
}
