package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"marketplace-chat/internal/storage"

	"github.com/valyala/fastjson"
)

// Intent is a client request carried by an inbound frame
type Intent int

const (
	IntentUnknown Intent = iota
	IntentJoin
	IntentSend
	IntentMarkRead
	IntentTyping
	IntentPresence
)

// intents maps inbound event names, including legacy dashed aliases, to intents
var intents = map[string]Intent{
	"join_chat":         IntentJoin,
	"join-chat":         IntentJoin,
	"send_message":      IntentSend,
	"send-message":      IntentSend,
	"mark_message_read": IntentMarkRead,
	"mark-as-read":      IntentMarkRead,
	"typing":            IntentTyping,
	"presence":          IntentPresence,
	"check-presence":    IntentPresence,
}

func (i Intent) String() string {
	switch i {
	case IntentJoin:
		return "join"
	case IntentSend:
		return "send"
	case IntentMarkRead:
		return "markRead"
	case IntentTyping:
		return "typing"
	case IntentPresence:
		return "presence"
	}
	return "unknown"
}

// Outbound event names
const (
	EventChatHistory  = "chat_history"
	EventNewMessage   = "new_message"
	EventUserJoined   = "user_joined"
	EventUserLeft     = "user_left"
	EventUserTyping   = "user_typing"
	EventMessageRead  = "message_read"
	EventNotification = "notification"
	EventPresence     = "presence"
	EventErrorFrame   = "error"
)

// Request is a decoded inbound frame. Zero ids mean the field was absent.
type Request struct {
	Intent    Intent
	RoomID    int64
	MessageID int64
	UserID    int64
	Content   string
	Type      storage.MessageType
	IsTyping  bool
}

// SendRequest is validated before anything is persisted
type SendRequest struct {
	RoomID  int64
	Content string              `validate:"min=1,max=1000"`
	Type    storage.MessageType `validate:"oneof=text image file"`
}

// Error kinds reported to clients in error frames
var (
	ErrAccessDenied   = errors.New("access denied")
	ErrValidation     = errors.New("validation failed")
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrBadRequest     = errors.New("bad request")
	ErrNotFound       = errors.New("not found")
)

var codes = map[error]string{
	ErrAccessDenied:   "access_denied",
	ErrValidation:     "validation_error",
	ErrDeliveryFailed: "delivery_failed",
	ErrBadRequest:     "bad_request",
	ErrNotFound:       "not_found",
}

// EventError is a recoverable per-event failure. It is reported to the
// originating connection only and never closes it.
type EventError struct {
	Kind    error
	Message string
}

func newEventError(kind error, msg string) *EventError {
	return &EventError{Kind: kind, Message: msg}
}

func (e *EventError) Error() string { return e.Message }

func (e *EventError) Unwrap() error { return e.Kind }

// Code returns the machine readable code sent along with Message
func (e *EventError) Code() string {
	if code, ok := codes[e.Kind]; ok {
		return code
	}
	return "internal_error"
}

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(frame{Event: event, Data: data})
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type messagePayload struct {
	storage.Message
	Author storage.Display `json:"sender"`
}

type membershipPayload struct {
	UserID     int64 `json:"userId"`
	ChatRoomID int64 `json:"chatRoomId"`
}

type typingPayload struct {
	UserID     int64 `json:"userId"`
	ChatRoomID int64 `json:"chatRoomId"`
	IsTyping   bool  `json:"isTyping"`
}

type readPayload struct {
	MessageID  int64 `json:"messageId"`
	ChatRoomID int64 `json:"chatRoomId"`
	ReadBy     int64 `json:"readBy"`
}

type presencePayload struct {
	UserID   int64 `json:"userId"`
	IsOnline bool  `json:"isOnline"`
}

// decoder turns raw frames into requests. It is safe for concurrent use.
type decoder struct {
	pool fastjson.ParserPool
}

func (d *decoder) decode(raw []byte) (Request, error) {
	parser := d.pool.Get()
	defer d.pool.Put(parser)

	v, err := parser.ParseBytes(raw)
	if err != nil || v.Type() != fastjson.TypeObject {
		return Request{}, newEventError(ErrBadRequest, "Malformed frame")
	}

	name := string(v.GetStringBytes("event"))
	intent, ok := intents[name]
	if !ok {
		return Request{}, newEventError(ErrBadRequest, fmt.Sprintf("Unknown event %q", name))
	}

	// clients either wrap arguments in "data" or send them flat
	data := v.Get("data")
	if data == nil || data.Type() != fastjson.TypeObject {
		data = v
	}

	req := Request{Intent: intent}
	switch intent {
	case IntentJoin:
		req.RoomID, err = idField(data, "chatRoomId", true)
	case IntentSend:
		req.RoomID, err = idField(data, "chatRoomId", false)
		if err == nil {
			req.Content, err = stringField(data, "content")
		}
		if err == nil {
			var typ string
			typ, err = stringField(data, "type")
			req.Type = storage.MessageType(typ)
		}
	case IntentMarkRead:
		req.MessageID, err = idField(data, "messageId", true)
	case IntentTyping:
		req.RoomID, err = idField(data, "chatRoomId", false)
		req.IsTyping = data.GetBool("isTyping")
	case IntentPresence:
		req.UserID, err = idField(data, "userId", true)
	}
	if err != nil {
		return Request{}, err
	}

	return req, nil
}

// idField reads a positive id given either as a JSON number or a numeric string
func idField(v *fastjson.Value, key string, required bool) (int64, error) {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		if required {
			return 0, newEventError(ErrBadRequest, fmt.Sprintf("Missing field %q", key))
		}
		return 0, nil
	}

	var (
		id  int64
		err error
	)
	switch f.Type() {
	case fastjson.TypeNumber:
		id, err = f.Int64()
	case fastjson.TypeString:
		id, err = strconv.ParseInt(string(f.GetStringBytes()), 10, 64)
	default:
		err = errors.New("unexpected type")
	}
	if err != nil || id < 1 {
		return 0, newEventError(ErrBadRequest, fmt.Sprintf("Field %q must be a positive integer", key))
	}
	return id, nil
}

func stringField(v *fastjson.Value, key string) (string, error) {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		return "", nil
	}
	if f.Type() != fastjson.TypeString {
		return "", newEventError(ErrBadRequest, fmt.Sprintf("Field %q must be a string", key))
	}
	return string(f.GetStringBytes()), nil
}
