package chat

import (
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"
)

var ErrConnectionOwned = errors.New("connection id is registered for another user")

// Registry maps users to their live connections. A user is online
// exactly while at least one connection is registered for them.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]map[string]*Conn
	owner map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[int64]map[string]*Conn),
		owner: make(map[string]int64),
	}
}

// Register adds conn to the user's set. first is true when the user just came online.
func (r *Registry) Register(userID int64, conn *Conn) (first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owner[conn.ID()]; ok {
		if owner != userID {
			return false, ErrConnectionOwned
		}
		return false, nil
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]*Conn)
		r.users[userID] = set
	}
	set[conn.ID()] = conn
	r.owner[conn.ID()] = userID

	return len(set) == 1, nil
}

// Unregister removes connection. last is true when the user just went offline.
func (r *Registry) Unregister(userID int64, connID string) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owner[connID]; !ok || owner != userID {
		return false
	}
	delete(r.owner, connID)

	set := r.users[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// ConnectionsFor returns ids of user's live connections in lexical order
func (r *Registry) ConnectionsFor(userID int64) []string {
	r.mu.RLock()
	ids := lo.Keys(r.users[userID])
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// conns returns live connection handles of user
func (r *Registry) conns(userID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.users[userID])
}
