package internal

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrRoomNotFound is returned for operations against an unknown room id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrMessageNotFound is returned when an edit targets an id absent from the room's log.
	ErrMessageNotFound = errors.New("message not found")
)

// maxRoomIDAttempts bounds how often CreateRoom redraws an id that is
// already held by a live room before it gives up and reuses the slot.
const maxRoomIDAttempts = 8

// Message is one entry of a room's log. Body is the only field that
// changes after the message is appended.
type Message struct {
	ID       string
	RoomID   string
	Sender   string
	Language string
	Body     string
	SentAt   time.Time
}

// RegistryStats is a point-in-time summary used by the status endpoints.
type RegistryStats struct {
	Rooms    int `json:"rooms"`
	Members  int `json:"members"`
	Messages int `json:"messages"`
}

// Registry owns every live room. The map itself is guarded by mutex;
// each room serializes its own membership and log changes.
type Registry struct {
	mutex    sync.RWMutex
	rooms    map[string]*Room
	newID    func() string
	newMsgID func() string
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		newID:    NewRoomID,
		newMsgID: NewMessageID,
		now:      time.Now,
	}
}

// Room is a broadcast group plus its message log.
type Room struct {
	id         string
	mutex      sync.Mutex
	members    map[string]struct{}
	messages   []Message
	lastActive time.Time
}

func newRoom(id string, now time.Time) *Room {
	return &Room{
		id:         id,
		members:    make(map[string]struct{}),
		messages:   make([]Message, 0),
		lastActive: now,
	}
}

// CreateRoom allocates an id and stores an empty room under it. It never fails.
func (registry *Registry) CreateRoom() string {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	id := registry.newID()
	for attempt := 1; attempt < maxRoomIDAttempts; attempt++ {
		if _, taken := registry.rooms[id]; !taken {
			break
		}
		id = registry.newID()
	}
	registry.rooms[id] = newRoom(id, registry.now())
	return id
}

func (registry *Registry) RoomExists(roomID string) bool {
	return registry.room(roomID) != nil
}

func (registry *Registry) room(roomID string) *Room {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	return registry.rooms[roomID]
}

// AddMember puts connID in the room's broadcast group. Adding twice is a no-op.
func (registry *Registry) AddMember(roomID, connID string) error {
	room := registry.room(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	room.mutex.Lock()
	defer room.mutex.Unlock()
	room.members[connID] = struct{}{}
	room.lastActive = registry.now()
	return nil
}

// RemoveMember drops connID from the room if it is there.
func (registry *Registry) RemoveMember(roomID, connID string) {
	room := registry.room(roomID)
	if room == nil {
		return
	}
	room.mutex.Lock()
	defer room.mutex.Unlock()
	if _, ok := room.members[connID]; ok {
		delete(room.members, connID)
		room.lastActive = registry.now()
	}
}

// RemoveEverywhere drops connID from every room it belongs to and returns
// the ids of those rooms.
func (registry *Registry) RemoveEverywhere(connID string) []string {
	var left []string
	for _, room := range registry.snapshot() {
		room.mutex.Lock()
		if _, ok := room.members[connID]; ok {
			delete(room.members, connID)
			room.lastActive = registry.now()
			left = append(left, room.id)
		}
		room.mutex.Unlock()
	}
	return left
}

// Members returns the current broadcast group of a room. The slice is a
// copy; callers may deliver to it without holding any lock.
func (registry *Registry) Members(roomID string) []string {
	room := registry.room(roomID)
	if room == nil {
		return nil
	}
	room.mutex.Lock()
	defer room.mutex.Unlock()
	members := make([]string, 0, len(room.members))
	for connID := range room.members {
		members = append(members, connID)
	}
	return members
}

// AppendMessage records a new message at the end of the room's log.
func (registry *Registry) AppendMessage(roomID, sender, language, body string) (Message, error) {
	room := registry.room(roomID)
	if room == nil {
		return Message{}, ErrRoomNotFound
	}
	room.mutex.Lock()
	defer room.mutex.Unlock()
	now := registry.now()
	message := Message{
		ID:       registry.newMsgID(),
		RoomID:   roomID,
		Sender:   sender,
		Language: language,
		Body:     body,
		SentAt:   now,
	}
	room.messages = append(room.messages, message)
	room.lastActive = now
	return message, nil
}

// EditMessage replaces the body of an existing message in place. The room
// is resolved before the log is touched.
func (registry *Registry) EditMessage(roomID, messageID, body string) (Message, error) {
	room := registry.room(roomID)
	if room == nil {
		return Message{}, ErrRoomNotFound
	}
	room.mutex.Lock()
	defer room.mutex.Unlock()
	for i := range room.messages {
		if room.messages[i].ID == messageID {
			room.messages[i].Body = body
			room.lastActive = registry.now()
			return room.messages[i], nil
		}
	}
	return Message{}, ErrMessageNotFound
}

// Messages returns a copy of the room's log in send order.
func (registry *Registry) Messages(roomID string) ([]Message, error) {
	room := registry.room(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	room.mutex.Lock()
	defer room.mutex.Unlock()
	out := make([]Message, len(room.messages))
	copy(out, room.messages)
	return out, nil
}

func (registry *Registry) Stats() RegistryStats {
	var stats RegistryStats
	for _, room := range registry.snapshot() {
		room.mutex.Lock()
		stats.Rooms++
		stats.Members += len(room.members)
		stats.Messages += len(room.messages)
		room.mutex.Unlock()
	}
	return stats
}

// SweepIdle evicts rooms that have no members and have seen no activity
// for at least ttl. It returns the evicted ids.
func (registry *Registry) SweepIdle(now time.Time, ttl time.Duration) []string {
	if ttl <= 0 {
		return nil
	}
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	var evicted []string
	for id, room := range registry.rooms {
		room.mutex.Lock()
		idle := len(room.members) == 0 && now.Sub(room.lastActive) >= ttl
		room.mutex.Unlock()
		if idle {
			delete(registry.rooms, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

func (registry *Registry) snapshot() []*Room {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	rooms := make([]*Room, 0, len(registry.rooms))
	for _, room := range registry.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}
