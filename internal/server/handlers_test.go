package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/storage"
	mytesting "marketplace-chat/internal/testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

var (
	alice = auth.Identity{ID: 1, Email: "alice@va.test", Role: storage.RoleVA}
	bob   = auth.Identity{ID: 2, Email: "bob@acme.test", Role: storage.RoleCompany}
)

// stubAuthenticator accepts tokens equal to a known email
type stubAuthenticator struct {
	users map[string]auth.Identity
}

func newStubAuthenticator(identities ...auth.Identity) stubAuthenticator {
	a := stubAuthenticator{users: make(map[string]auth.Identity)}
	for _, identity := range identities {
		a.users[identity.Email] = identity
	}
	return a
}

func (a stubAuthenticator) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, auth.ErrAuthenticationRequired
	}
	identity, ok := a.users[token]
	if !ok {
		return auth.Identity{}, auth.ErrAuthenticationFailed
	}
	return identity, nil
}

// roomStore keeps rooms and message owners in memory
type roomStore struct {
	mu       sync.Mutex
	rooms    []storage.Room
	messages map[int64]int64
	err      error
}

func (s *roomStore) GetOrCreateRoom(_ context.Context, a, b int64) (storage.Room, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return storage.Room{}, false, s.err
	}
	if a == b {
		return storage.Room{}, false, storage.ErrRoomSameUser
	}
	if a > b {
		a, b = b, a
	}
	for _, r := range s.rooms {
		if r.ParticipantA == a && r.ParticipantB == b {
			return r, false, nil
		}
	}
	room := storage.Room{ID: int64(len(s.rooms) + 1), ParticipantA: a, ParticipantB: b}
	s.rooms = append(s.rooms, room)
	return room, true, nil
}

func (s *roomStore) RoomsByUserID(_ context.Context, user int64) ([]storage.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	var out []storage.Room
	for _, r := range s.rooms {
		if r.HasParticipant(user) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *roomStore) DeleteMessage(_ context.Context, id, sender int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	owner, ok := s.messages[id]
	if !ok {
		return storage.ErrMessageNotExist
	}
	if owner != sender {
		return storage.ErrMessageNotOwner
	}
	delete(s.messages, id)
	return nil
}

func bootstrapHandler(t *testing.T) (*handler, *roomStore) {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	store := &roomStore{messages: map[int64]int64{10: alice.ID}}
	h := &handler{
		logger:  logger.Sugar(),
		store:   store,
		auth:    newStubAuthenticator(alice, bob),
		sockets: newSockets(),
	}

	return h, store
}

func statusOkHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func newAuthedRequest(t *testing.T, target, body string, identity auth.Identity) *http.Request {
	req, err := http.NewRequest("POST", target, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(newContextWithIdentity(req.Context(), identity))
}

func TestEnforcePOSTJSON(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"participant":"` + mytesting.RandString() + `"}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestEnforcePOSTJSON_NotPOST(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"participant":2}`))
	req, err := http.NewRequest("GET", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.Equal(t, "POST", rr.Header().Get("Allow"))
	require.Equal(t, http.StatusText(http.StatusMethodNotAllowed)+"\n", rr.Body.String())
}

func TestEnforcePOSTJSON_MalformedContentType(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"participant":2}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "1:2\n+/-")

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Malformed Content-Type header\n", rr.Body.String())
}

func TestEnforcePOSTJSON_UnsupportedContentType(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{"participant":2}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	require.Equal(t, "Content-Type header must be application/json\n", rr.Body.String())
}

func TestEnforcePOSTJSON_NoContentType(t *testing.T) {
	t.Parallel()

	payload := bytes.NewBuffer([]byte(`{}`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestEnforcePOSTJSON_MalformedJSON(t *testing.T) {
	t.Parallel()

	// missing closing brace
	payload := bytes.NewBuffer([]byte(`{"participant":2`))
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Malformed JSON\n", rr.Body.String())
}

func TestEnforcePOSTJSON_NoBody(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("POST", "/", bytes.NewBuffer(nil))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "No body provided\n", rr.Body.String())
}

func TestEnforcePOSTJSON_BodyTooLarge(t *testing.T) {
	t.Parallel()

	body := `{"content":"` + mytesting.RepeatRunes('a', maxBodySize) + `"}`
	req, err := http.NewRequest("POST", "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler := enforcePOSTJSON(http.HandlerFunc(statusOkHandler))

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Can not read request body\n", rr.Body.String())
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{name: "no token", code: http.StatusUnauthorized, body: "Authentication token required\n"},
		{name: "bad token", header: "Bearer nobody@test", code: http.StatusUnauthorized, body: "Authentication failed\n"},
		{name: "valid token", header: "Bearer " + alice.Email, code: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequest("POST", "/", bytes.NewBufferString(`{}`))
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			var seen auth.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = identityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			rr := httptest.NewRecorder()
			authenticate(next, newStubAuthenticator(alice)).ServeHTTP(rr, req)

			require.Equal(t, tt.code, rr.Code)
			if tt.code == http.StatusOK {
				require.Equal(t, alice, seen)
				return
			}
			require.Equal(t, tt.body, rr.Body.String())
		})
	}
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()

	h, _ := bootstrapHandler(t)

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.createRoom).ServeHTTP(rr, newAuthedRequest(t, "/rooms/add", `{"participant":2}`, alice))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)

	// validating response JSON
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	require.NoError(t, err)
	firstID, err := v.Get("id").Int64()
	require.NoError(t, err)

	// the same pair in the other order gets the same room
	rr = httptest.NewRecorder()
	http.HandlerFunc(h.createRoom).ServeHTTP(rr, newAuthedRequest(t, "/rooms/add", `{"participant":1}`, bob))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, firstID, int64(fastjson.GetInt(rr.Body.Bytes(), "id")))
}

func TestCreateRoom_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{name: "no field", body: `{"alice":"bob"}`, msg: "Missing Field \"participant\"\n"},
		{name: "not integer", body: `{"participant":"two"}`, msg: "Field \"participant\" must be a 64-bit integer value\n"},
		{name: "not positive", body: `{"participant":0}`, msg: "Field \"participant\" must be a valid user id grater than zero\n"},
		{name: "self", body: `{"participant":1}`, msg: "Room requires two different users\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, _ := bootstrapHandler(t)

			rr := httptest.NewRecorder()
			http.HandlerFunc(h.createRoom).ServeHTTP(rr, newAuthedRequest(t, "/rooms/add", tt.body, alice))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, tt.msg, rr.Body.String())
		})
	}
}

func TestCreateRoom_UnknownParticipant(t *testing.T) {
	t.Parallel()

	h, store := bootstrapHandler(t)
	store.err = storage.ErrRoomBadUsers

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.createRoom).ServeHTTP(rr, newAuthedRequest(t, "/rooms/add", `{"participant":42}`, alice))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Participant does not exist\n", rr.Body.String())
}

func TestCreateRoom_InternalOnStoreCall(t *testing.T) {
	t.Parallel()

	h, store := bootstrapHandler(t)
	store.err = errors.New("closed pool")

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.createRoom).ServeHTTP(rr, newAuthedRequest(t, "/rooms/add", `{"participant":2}`, alice))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRoomsByUser(t *testing.T) {
	t.Parallel()

	h, store := bootstrapHandler(t)

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.roomsByUser).ServeHTTP(rr, newAuthedRequest(t, "/rooms/get", `{}`, alice))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]", rr.Body.String())

	_, _, err := store.GetOrCreateRoom(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)

	rr = httptest.NewRecorder()
	http.HandlerFunc(h.roomsByUser).ServeHTTP(rr, newAuthedRequest(t, "/rooms/get", `{}`, alice))
	require.Equal(t, http.StatusOK, rr.Code)

	v, err := fastjson.ParseBytes(rr.Body.Bytes())
	require.NoError(t, err)
	rooms := v.GetArray()
	require.Len(t, rooms, 1)
	require.Equal(t, 1, rooms[0].GetInt("participantA"))
	require.Equal(t, 2, rooms[0].GetInt("participantB"))
}

func TestDeleteMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		identity auth.Identity
		body     string
		code     int
	}{
		{name: "not owner", identity: bob, body: `{"message":10}`, code: http.StatusForbidden},
		{name: "missing", identity: alice, body: `{"message":11}`, code: http.StatusNotFound},
		{name: "bad id", identity: alice, body: `{"message":-1}`, code: http.StatusBadRequest},
		{name: "owner", identity: alice, body: `{"message":10}`, code: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, _ := bootstrapHandler(t)

			rr := httptest.NewRecorder()
			http.HandlerFunc(h.deleteMessage).ServeHTTP(rr, newAuthedRequest(t, "/messages/delete", tt.body, tt.identity))

			require.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h, _ := bootstrapHandler(t)

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	http.HandlerFunc(h.health).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
