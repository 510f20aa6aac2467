package chat

import (
	"errors"
	"sync"

	"marketplace-chat/internal/auth"
)

var errConnClosed = errors.New("connection is closed")

// Sink delivers encoded frames to one transport session
type Sink interface {
	Send(payload []byte) error
}

// State of a connection. Transitions:
// unauthenticated -> authenticated -> joined(room) -> ... -> closed.
// Joining another room while joined moves straight to the new room.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is one live transport session of an authenticated user
type Conn struct {
	id       string
	identity auth.Identity
	sink     Sink

	mu    sync.Mutex
	state State
	room  int64
	// set from join until the room history has been delivered
	replaying bool
	held      []heldMessage
}

// heldMessage is a new_message frame queued while room history is replayed
type heldMessage struct {
	id      int64
	payload []byte
}

// NewConn returns connection in authenticated state
func NewConn(id string, identity auth.Identity, sink Sink) *Conn {
	return &Conn{
		id:       id,
		identity: identity,
		sink:     sink,
		state:    StateAuthenticated,
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Identity() auth.Identity { return c.identity }

// State returns current state and, when joined, the room
func (c *Conn) State() (State, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.room
}

// Room returns the joined room
func (c *Conn) Room() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.state == StateJoined
}

func (c *Conn) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateAuthenticated || c.state == StateJoined
}

// join moves connection into room and reports the room it was joined to before
func (c *Conn) join(room int64) (prev int64, hadPrev bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateAuthenticated:
	case StateJoined:
		prev, hadPrev = c.room, true
	default:
		return 0, false, errConnClosed
	}

	c.state = StateJoined
	c.room = room
	c.replaying = true
	c.held = nil
	return prev, hadPrev, nil
}

// close is terminal; it reports the room the connection was joined to
func (c *Conn) close() (room int64, joined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, joined = c.room, c.state == StateJoined
	c.state = StateClosed
	c.room = 0
	c.replaying = false
	c.held = nil
	return room, joined
}

func (c *Conn) send(payload []byte) error {
	return c.sink.Send(payload)
}

// sendMessage delivers a new_message frame, holding it back while the room history is replayed.
// Sink.Send must not block, it is called under c.mu to keep held and live frames in order.
func (c *Conn) sendMessage(id int64, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.replaying {
		c.held = append(c.held, heldMessage{id: id, payload: payload})
		return nil
	}
	if c.state != StateJoined {
		return errConnClosed
	}
	return c.sink.Send(payload)
}

// endReplay releases held frames whose message was not part of the replayed history
func (c *Conn) endReplay(replayed map[int64]struct{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	held := c.held
	c.replaying = false
	c.held = nil
	if c.state != StateJoined {
		return errConnClosed
	}

	for _, m := range held {
		if _, ok := replayed[m.id]; ok {
			continue
		}
		if err := c.sink.Send(m.payload); err != nil {
			return err
		}
	}
	return nil
}
