package chat

import (
	"context"
	"errors"
	"sync"

	"marketplace-chat/internal/storage"

	"go.uber.org/zap"
)

// Guard decides whether a user may act on a room.
// Room membership never changes and rooms are never deleted, so found rooms are cached.
type Guard struct {
	logger *zap.SugaredLogger
	rooms  RoomFinder

	mu    sync.RWMutex
	cache map[int64]storage.Room
}

func NewGuard(logger *zap.SugaredLogger, rooms RoomFinder) *Guard {
	return &Guard{
		logger: logger,
		rooms:  rooms,
		cache:  make(map[int64]storage.Room),
	}
}

// Authorize returns the room and true iff the room exists and user is one of its participants.
// Lookup failures are logged and reported as not authorized.
func (g *Guard) Authorize(ctx context.Context, roomID, userID int64) (storage.Room, bool) {
	room, err := g.room(ctx, roomID)
	if err != nil {
		if !errors.Is(err, storage.ErrRoomNotExist) {
			g.logger.Errorf("Loading room %d: %v", roomID, err)
		}
		return storage.Room{}, false
	}
	if !room.HasParticipant(userID) {
		return storage.Room{}, false
	}
	return room, true
}

func (g *Guard) room(ctx context.Context, id int64) (storage.Room, error) {
	g.mu.RLock()
	room, ok := g.cache[id]
	g.mu.RUnlock()
	if ok {
		return room, nil
	}

	room, err := g.rooms.RoomByID(ctx, id)
	if err != nil {
		return storage.Room{}, err
	}

	g.mu.Lock()
	g.cache[id] = room
	g.mu.Unlock()

	return room, nil
}
