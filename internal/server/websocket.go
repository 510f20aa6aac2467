package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 16
)

var (
	errSocketClosed   = errors.New("socket closed")
	errSendBufferFull = errors.New("send buffer full")
)

// socket wraps a websocket and serializes outbound writes through a buffered queue.
// A client that lets the queue fill up is disconnected.
type socket struct {
	id     string
	logger *zap.SugaredLogger
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func newSocket(id string, logger *zap.SugaredLogger, ws *websocket.Conn, buffer int) *socket {
	return &socket{
		id:     id,
		logger: logger,
		ws:     ws,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// Send enqueues payload without blocking
func (s *socket) Send(payload []byte) error {
	select {
	case <-s.done:
		return errSocketClosed
	default:
	}

	select {
	case s.send <- payload:
		return nil
	default:
		s.logger.Infof("Closing slow websocket %s", s.id)
		s.Close(websocket.CloseTryAgainLater, "send buffer full")
		return errSendBufferFull
	}
}

// Close marks the socket closed and returns at once, even while writeLoop is stuck
// on an unresponsive client. The close frame and the underlying connection are
// handled in background, which also ends the read loop.
func (s *socket) Close(code int, reason string) {
	s.once.Do(func() {
		close(s.done)
		go s.shutdown(code, reason)
	})
}

// shutdown waits at most writeWait for the write lock held by writeLoop
func (s *socket) shutdown(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	if err := s.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		s.logger.Debugf("Writing close frame to websocket %s: %v", s.id, err)
	}
	_ = s.ws.Close()
}

func (s *socket) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				s.logger.Debugf("Writing to websocket %s: %v", s.id, err)
				s.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.logger.Debugf("Pinging websocket %s: %v", s.id, err)
				s.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

func (s *socket) write(messageType int, payload []byte) error {
	if err := s.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.ws.WriteMessage(messageType, payload)
}

// sockets tracks live websockets so they can be closed on shutdown
type sockets struct {
	mu   sync.Mutex
	live map[string]*socket
	// counts read loops that have not finished cleanup
	wg sync.WaitGroup
}

func newSockets() *sockets {
	return &sockets{live: make(map[string]*socket)}
}

func (ss *sockets) add(s *socket) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.live[s.id] = s
	ss.wg.Add(1)
}

func (ss *sockets) remove(s *socket) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.live[s.id]; ok {
		delete(ss.live, s.id)
		ss.wg.Done()
	}
}

func (ss *sockets) closeAll() {
	ss.mu.Lock()
	live := lo.Values(ss.live)
	ss.mu.Unlock()

	for _, s := range live {
		s.Close(websocket.CloseGoingAway, "server shutting down")
	}
}

// wait blocks until every tracked socket was removed
func (ss *sockets) wait() {
	ss.wg.Wait()
}
