package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/storage"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

const (
	userA int64 = 1
	userB int64 = 2
	userC int64 = 3
)

var identities = map[int64]auth.Identity{
	userA: {ID: userA, Email: "anna@va.test", Role: storage.RoleVA},
	userB: {ID: userB, Email: "hr@acme.test", Role: storage.RoleCompany},
	userC: {ID: userC, Email: "carl@va.test", Role: storage.RoleVA},
}

// recordingSink keeps every frame written to it
type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (s *recordingSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink closed")
	}
	s.frames = append(s.frames, append([]byte(nil), payload...))
	return nil
}

// events returns frames carrying event in arrival order
func (s *recordingSink) events(event string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]byte
	for _, f := range s.frames {
		if fastjson.GetString(f, "event") == event {
			out = append(out, f)
		}
	}
	return out
}

// all returns every frame in arrival order
func (s *recordingSink) all() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

// memStore is an in-memory Store and DisplayResolver
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	rooms    map[int64]storage.Room
	messages map[int64]storage.Message
	touched  map[int64]time.Time
	displays map[int64]storage.Display
}

func newMemStore() *memStore {
	return &memStore{
		rooms:    make(map[int64]storage.Room),
		messages: make(map[int64]storage.Message),
		touched:  make(map[int64]time.Time),
		displays: map[int64]storage.Display{
			userA: {UserID: userA, Name: "Anna", Avatar: "anna.png", Role: storage.RoleVA},
			userB: {UserID: userB, Name: "Acme Inc", Role: storage.RoleCompany},
			userC: {UserID: userC, Name: "Carl", Role: storage.RoleVA},
		},
	}
}

func (s *memStore) addRoom(a, b int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a > b {
		a, b = b, a
	}
	s.nextID++
	s.rooms[s.nextID] = storage.Room{ID: s.nextID, ParticipantA: a, ParticipantB: b, CreatedAt: time.Now()}
	return s.nextID
}

func (s *memStore) RoomByID(_ context.Context, id int64) (storage.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return storage.Room{}, storage.ErrRoomNotExist
	}
	return room, nil
}

func (s *memStore) MessageByID(_ context.Context, id int64) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return storage.Message{}, storage.ErrMessageNotExist
	}
	return msg, nil
}

func (s *memStore) CreateMessage(_ context.Context, room, sender int64, content string, typ storage.MessageType) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room]; !ok {
		return storage.Message{}, storage.ErrMessageBadRoom
	}
	s.nextID++
	msg := storage.Message{
		ID:        s.nextID,
		Room:      room,
		Sender:    sender,
		Content:   content,
		Type:      typ,
		Status:    storage.StatusSent,
		CreatedAt: time.Now(),
	}
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *memStore) AdvanceMessageStatus(_ context.Context, id int64, status storage.MessageStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return false, storage.ErrMessageNotExist
	}
	if !msg.Status.Before(status) {
		return false, nil
	}
	msg.Status = status
	s.messages[id] = msg
	return true, nil
}

func (s *memStore) TouchRoom(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id] = at
	return nil
}

func (s *memStore) RecentMessages(_ context.Context, room int64, limit int) ([]storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]storage.Message, 0)
	for _, m := range s.messages {
		if m.Room == room {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) Display(_ context.Context, userID int64) (storage.Display, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.displays[userID]
	if !ok {
		return storage.Display{}, storage.ErrUserNotExist
	}
	return d, nil
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return logger.Sugar()
}

func connect(t *testing.T, d *Dispatcher, id string, userID int64) (*Conn, *recordingSink) {
	sink := &recordingSink{}
	c, err := d.Connect(context.Background(), id, identities[userID], sink)
	require.NoError(t, err)
	return c, sink
}

func requireError(t *testing.T, sink *recordingSink, code, message string) {
	frames := sink.events(EventErrorFrame)
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	require.Equal(t, code, fastjson.GetString(last, "data", "code"))
	require.Equal(t, message, fastjson.GetString(last, "data", "message"))
}
