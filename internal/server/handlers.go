package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/chat"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/storage/zapadapter"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// Authenticator resolves bearer tokens into identities
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// RoomStore serves the HTTP room and message endpoints
type RoomStore interface {
	GetOrCreateRoom(ctx context.Context, a, b int64) (storage.Room, bool, error)
	RoomsByUserID(ctx context.Context, user int64) ([]storage.Room, error)
	DeleteMessage(ctx context.Context, id, sender int64) error
}

// Dispatcher receives events of websocket connections
type Dispatcher interface {
	Connect(ctx context.Context, id string, identity auth.Identity, sink chat.Sink) (*chat.Conn, error)
	Handle(ctx context.Context, c *chat.Conn, raw []byte)
	Heartbeat(ctx context.Context, c *chat.Conn)
	Disconnect(ctx context.Context, c *chat.Conn)
}

type parsers struct {
	createRoomPool    fastjson.ParserPool
	deleteMessagePool fastjson.ParserPool
}

type handler struct {
	logger     *zap.SugaredLogger
	store      RoomStore
	auth       Authenticator
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	sockets    *sockets
	sendBuffer int
	parsers    parsers
}

// serveWS handles websocket connections on "/ws" endpoint.
// The token is checked before the upgrade, so rejected clients never get a socket.
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Authenticate(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		h.logger.Debugf("Rejecting websocket connection: %v", err)
		http.Error(w, auth.Reason(err), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.logger.Debugf("Upgrading connection: %v", err)
		return
	}

	id := xid.New().String()
	ctx := zapadapter.NewContextWithConnectionID(r.Context(), id)

	sock := newSocket(id, h.logger, ws, h.sendBuffer)
	h.sockets.add(sock)

	conn, err := h.dispatcher.Connect(ctx, id, identity, sock)
	if err != nil {
		h.logger.Errorf("Registering connection %s of user %d: %v", id, identity.ID, err)
		sock.Close(websocket.CloseInternalServerErr, "registration failed")
		h.sockets.remove(sock)
		return
	}

	defer func() {
		h.dispatcher.Disconnect(context.Background(), conn)
		sock.Close(websocket.CloseNormalClosure, "")
		h.sockets.remove(sock)
		h.logger.Infof("Connection %s of user %d is closed", id, identity.ID)
	}()

	go sock.writeLoop()
	h.logger.Infof("Connection %s of user %d is open", id, identity.ID)

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		h.dispatcher.Heartbeat(ctx, conn)
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.logger.Debugf("Reading from connection %s: %v", id, err)
			}
			return
		}
		h.dispatcher.Handle(ctx, conn, data)
	}
}

// createRoom handles HTTP requests on "/rooms/add" endpoint
func (h *handler) createRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.createRoomPool.Get()
	defer h.parsers.createRoomPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	if !v.Exists("participant") {
		http.Error(w, "Missing Field \"participant\"", http.StatusBadRequest)
		return
	}

	participant, err := v.Get("participant").Int64()
	if err != nil {
		http.Error(w, "Field \"participant\" must be a 64-bit integer value", http.StatusBadRequest)
		return
	}

	if participant < 1 {
		http.Error(w, "Field \"participant\" must be a valid user id grater than zero", http.StatusBadRequest)
		return
	}

	room, created, err := h.store.GetOrCreateRoom(r.Context(), identity.ID, participant)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrRoomSameUser):
			http.Error(w, "Room requires two different users", http.StatusBadRequest)
			return
		case errors.Is(err, storage.ErrRoomBadUsers):
			http.Error(w, "Participant does not exist", http.StatusBadRequest)
			return
		default:
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, []byte(`{"id":`+strconv.FormatInt(room.ID, 10)+`}`))
}

// roomsByUser handles HTTP requests on "/rooms/get" endpoint
func (h *handler) roomsByUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	rooms, err := h.store.RoomsByUserID(r.Context(), identity.ID)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if rooms == nil {
		rooms = []storage.Room{}
	}

	payload, err := json.Marshal(rooms)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, payload)
}

// deleteMessage handles HTTP requests on "/messages/delete" endpoint
func (h *handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.deleteMessagePool.Get()
	defer h.parsers.deleteMessagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	if !v.Exists("message") {
		http.Error(w, "Missing Field \"message\"", http.StatusBadRequest)
		return
	}

	messageID, err := v.Get("message").Int64()
	if err != nil {
		http.Error(w, "Field \"message\" must be a 64-bit integer value", http.StatusBadRequest)
		return
	}

	if messageID < 1 {
		http.Error(w, "Field \"message\" must be a valid message id grater than zero", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteMessage(r.Context(), messageID, identity.ID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrMessageNotExist):
			http.Error(w, "Message does not exist", http.StatusNotFound)
			return
		case errors.Is(err, storage.ErrMessageNotOwner):
			http.Error(w, "Message belongs to another user", http.StatusForbidden)
			return
		default:
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, []byte(`{"id":`+strconv.FormatInt(messageID, 10)+`}`))
}

// health handles HTTP requests on "/health" endpoint
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, []byte(`{"status":"ok"}`))
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}
