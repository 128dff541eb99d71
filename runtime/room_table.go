package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// JoinResult is the room as it stands right after a join.
type JoinResult struct {
	Room          domain.Room
	Member        domain.Member
	AlreadyMember bool
}

// Departure describes one connection leaving one room.
// Room holds the remaining members; it is empty when Deleted is true.
type Departure struct {
	Room    domain.Room
	Member  domain.Member
	Deleted bool
}

type TableStats struct {
	Rooms       int
	Members     int
	Connections int
}

// RoomTable owns rooms and the reverse index from connections to the rooms they are in.
// Both maps change under the same lock, so a room never lists a member whose own
// index disagrees, and every returned Room is a snapshot taken inside that lock.
type RoomTable struct {
	mu          sync.Mutex
	rooms       map[domain.RoomID]*domain.Room
	memberships map[domain.ConnID][]domain.RoomID // join order, current room last
	now         func() time.Time
	newID       func() domain.RoomID
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		rooms:       make(map[domain.RoomID]*domain.Room),
		memberships: make(map[domain.ConnID][]domain.RoomID),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       domain.NewRoomID,
	}
}

// CreateRoom allocates a fresh id and makes the creator the only member.
func (t *RoomTable) CreateRoom(conn domain.ConnID, creatorName, roomName string) domain.Room {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	for {
		if _, taken := t.rooms[id]; !taken {
			break
		}
		id = t.newID()
	}
	now := t.now()
	room := domain.NewRoom(id, roomName, now)
	room.Admit(domain.Member{ConnID: conn, Username: creatorName, JoinedAt: now})
	t.rooms[id] = room
	t.track(conn, id)
	return room.Snapshot()
}

// JoinRoom adds conn to the room. Joining twice keeps one membership but refreshes the username.
func (t *RoomTable) JoinRoom(conn domain.ConnID, username string, roomID domain.RoomID) (JoinResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[roomID]
	if !ok {
		return JoinResult{}, errors.ErrRoomNotFound
	}
	member := domain.Member{ConnID: conn, Username: username, JoinedAt: t.now()}
	if existing, ok := room.Member(conn); ok {
		member.JoinedAt = existing.JoinedAt
	}
	already := room.Admit(member)
	t.track(conn, roomID)
	return JoinResult{Room: room.Snapshot(), Member: member, AlreadyMember: already}, nil
}

// LeaveRoom removes conn from the room and deletes the room once it is empty.
func (t *RoomTable) LeaveRoom(conn domain.ConnID, roomID domain.RoomID) (Departure, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[roomID]
	if !ok {
		return Departure{}, errors.ErrRoomNotFound
	}
	if _, ok := room.Member(conn); !ok {
		return Departure{}, errors.ErrNotMember
	}
	t.untrack(conn, roomID)
	return t.dismiss(room, conn), nil
}

// RemoveConnection takes conn out of every room of its reverse index, most recent room first.
func (t *RoomTable) RemoveConnection(conn domain.ConnID) []Departure {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomIDs := t.memberships[conn]
	delete(t.memberships, conn)

	departures := make([]Departure, 0, len(roomIDs))
	for i := len(roomIDs) - 1; i >= 0; i-- {
		room, ok := t.rooms[roomIDs[i]]
		if !ok {
			continue
		}
		departures = append(departures, t.dismiss(room, conn))
	}
	return departures
}

// CurrentRoom is the most recently joined room conn still belongs to.
func (t *RoomTable) CurrentRoom(conn domain.ConnID) (domain.Room, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomIDs := t.memberships[conn]
	if len(roomIDs) == 0 {
		return domain.Room{}, false
	}
	return t.rooms[roomIDs[len(roomIDs)-1]].Snapshot(), true
}

// Membership returns the room when conn is one of its members.
func (t *RoomTable) Membership(conn domain.ConnID, roomID domain.RoomID) (domain.Room, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[roomID]
	if !ok {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if _, ok := room.Member(conn); !ok {
		return domain.Room{}, errors.ErrNotMember
	}
	return room.Snapshot(), nil
}

func (t *RoomTable) Room(roomID domain.RoomID) (domain.Room, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	return room.Snapshot(), true
}

// RoomsOf lists the rooms of conn in join order.
func (t *RoomTable) RoomsOf(conn domain.ConnID) []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.RoomID(nil), t.memberships[conn]...)
}

// Rooms returns a snapshot of every active room, oldest first.
func (t *RoomTable) Rooms() []domain.Room {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := lo.MapToSlice(t.rooms, func(_ domain.RoomID, r *domain.Room) domain.Room {
		return r.Snapshot()
	})
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

func (t *RoomTable) Stats() TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := 0
	for _, r := range t.rooms {
		members += len(r.Members)
	}
	return TableStats{Rooms: len(t.rooms), Members: members, Connections: len(t.memberships)}
}

// dismiss must be called with the lock held and the reverse index already updated.
func (t *RoomTable) dismiss(room *domain.Room, conn domain.ConnID) Departure {
	member, _ := room.Dismiss(conn)
	if room.IsEmpty() {
		delete(t.rooms, room.ID)
		return Departure{Room: room.Snapshot(), Member: member, Deleted: true}
	}
	return Departure{Room: room.Snapshot(), Member: member}
}

// track moves roomID to the end of conn's reverse index.
func (t *RoomTable) track(conn domain.ConnID, roomID domain.RoomID) {
	ids := lo.Without(t.memberships[conn], roomID)
	t.memberships[conn] = append(ids, roomID)
}

func (t *RoomTable) untrack(conn domain.ConnID, roomID domain.RoomID) {
	ids := lo.Without(t.memberships[conn], roomID)
	if len(ids) == 0 {
		delete(t.memberships, conn)
		return
	}
	t.memberships[conn] = ids
}
