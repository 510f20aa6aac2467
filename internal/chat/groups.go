package chat

import (
	"sync"

	"github.com/samber/lo"
)

// groups tracks connections currently joined to each room.
// Lock order is groups.mu then Conn.mu.
type groups struct {
	mu    sync.RWMutex
	rooms map[int64]map[string]*Conn
}

func newGroups() *groups {
	return &groups{rooms: make(map[int64]map[string]*Conn)}
}

// join moves c into room. switched reports that c left prev on the way.
func (g *groups) join(c *Conn, room int64) (prev int64, switched bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev, hadPrev, err := c.join(room)
	if err != nil {
		return 0, false, err
	}
	if hadPrev && prev != room {
		g.removeLocked(prev, c.ID())
		switched = true
	}

	set, ok := g.rooms[room]
	if !ok {
		set = make(map[string]*Conn)
		g.rooms[room] = set
	}
	set[c.ID()] = c

	return prev, switched, nil
}

// leave closes c and removes it from its room
func (g *groups) leave(c *Conn) (room int64, joined bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, joined = c.close()
	if joined {
		g.removeLocked(room, c.ID())
	}
	return room, joined
}

func (g *groups) removeLocked(room int64, connID string) {
	set, ok := g.rooms[room]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(g.rooms, room)
	}
}

func (g *groups) members(room int64) []*Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return lo.Values(g.rooms[room])
}

// hasUser reports whether any connection of user is joined to room
func (g *groups) hasUser(room, userID int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, c := range g.rooms[room] {
		if c.Identity().ID == userID {
			return true
		}
	}
	return false
}
