// Package chat routes client intents of live connections: room joins,
// message delivery, read receipts, typing indicators and presence queries.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/notify"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/storage/zapadapter"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring Dispatcher instance
type config struct {
	notifier      Notifier
	mirror        PresenceMirror
	historyLimit  int
	eventTimeout  time.Duration
	notifyTimeout time.Duration
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	HistoryLimit int           `env:"HISTORY_LIMIT" envDefault:"50"`
	EventTimeout time.Duration `env:"EVENT_TIMEOUT" envDefault:"5s"`
}

// WithEnvConfig applies history limit and event timeout from cfg
func WithEnvConfig(cfg EnvConfig) Option {
	return optionFunc(func(c *config) {
		c.historyLimit = cfg.HistoryLimit
		c.eventTimeout = cfg.EventTimeout
	})
}

// WithNotifier sets the out-of-band notification bridge
func WithNotifier(n Notifier) Option {
	return optionFunc(func(c *config) {
		c.notifier = n
	})
}

// WithPresenceMirror shares registrations with other instances
func WithPresenceMirror(m PresenceMirror) Option {
	return optionFunc(func(c *config) {
		c.mirror = m
	})
}

// HistoryLimit sets how many recent messages are replayed on join
func HistoryLimit(n int) Option {
	return optionFunc(func(c *config) {
		c.historyLimit = n
	})
}

// NotifyTimeout bounds one notification bridge call
func NotifyTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.notifyTimeout = d
	})
}

// Dispatcher handles intents of authenticated connections.
// Events of one connection must be passed to Handle sequentially.
type Dispatcher struct {
	logger   *zap.SugaredLogger
	store    Store
	resolver DisplayResolver
	guard    *Guard
	registry *Registry
	groups   *groups
	decoder  decoder
	validate *validator.Validate
	cfg      config

	// in-flight notification bridge calls
	wg sync.WaitGroup
}

func NewDispatcher(logger *zap.SugaredLogger, store Store, resolver DisplayResolver, opts ...Option) *Dispatcher {
	cfg := config{
		historyLimit:  50,
		eventTimeout:  5 * time.Second,
		notifyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	return &Dispatcher{
		logger:   logger,
		store:    store,
		resolver: resolver,
		guard:    NewGuard(logger, store),
		registry: NewRegistry(),
		groups:   newGroups(),
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// Connect registers a new connection of identity. Presence mirror failures are logged.
func (d *Dispatcher) Connect(ctx context.Context, id string, identity auth.Identity, sink Sink) (*Conn, error) {
	c := NewConn(id, identity, sink)
	first, err := d.registry.Register(identity.ID, c)
	if err != nil {
		return nil, err
	}
	if first {
		d.logger.Debugf("User %d is online", identity.ID)
	}

	if d.cfg.mirror != nil {
		if err := d.cfg.mirror.SetOnline(ctx, identity.ID, id); err != nil {
			d.log(ctx).Errorf("Mirroring connection %s of user %d: %v", id, identity.ID, err)
		}
	}
	return c, nil
}

// Heartbeat refreshes the mirrored registration of a live connection, which would
// otherwise expire after the mirror TTL while the connection is still open
func (d *Dispatcher) Heartbeat(ctx context.Context, c *Conn) {
	if d.cfg.mirror == nil || !c.active() {
		return
	}
	if d.cfg.eventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.eventTimeout)
		defer cancel()
	}

	userID := c.Identity().ID
	if err := d.cfg.mirror.SetOnline(ctx, userID, c.ID()); err != nil {
		d.log(ctx).Errorf("Refreshing mirrored connection %s of user %d: %v", c.ID(), userID, err)
	}
}

// Handle decodes raw frame and runs its intent. Failures are reported to c as error events.
func (d *Dispatcher) Handle(ctx context.Context, c *Conn, raw []byte) {
	if !c.active() {
		return
	}
	ctx = zapadapter.NewContextWithConnectionID(ctx, c.ID())

	req, err := d.decoder.decode(raw)
	if err != nil {
		d.reject(ctx, c, err)
		return
	}

	if d.cfg.eventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.eventTimeout)
		defer cancel()
	}

	switch req.Intent {
	case IntentJoin:
		err = d.Join(ctx, c, req.RoomID)
	case IntentSend:
		err = d.Send(ctx, c, SendRequest{RoomID: req.RoomID, Content: req.Content, Type: req.Type})
	case IntentMarkRead:
		err = d.MarkRead(ctx, c, req.MessageID)
	case IntentTyping:
		err = d.Typing(ctx, c, req.RoomID, req.IsTyping)
	case IntentPresence:
		err = d.Presence(ctx, c, req.UserID)
	}
	if err != nil {
		d.reject(ctx, c, err)
	}
}

// Join moves c into room, replays recent history to it and announces it to the other participant
func (d *Dispatcher) Join(ctx context.Context, c *Conn, roomID int64) error {
	userID := c.Identity().ID

	room, ok := d.guard.Authorize(ctx, roomID, userID)
	if !ok {
		return newEventError(ErrAccessDenied, "Access denied to this chat room")
	}

	prev, switched, err := d.groups.join(c, room.ID)
	if err != nil {
		// disconnected meanwhile
		return nil
	}
	if switched {
		d.userLeft(prev, userID)
	}

	// messages sent to the room from here on are held until history is out
	var historyErr error
	replayed := map[int64]struct{}{}
	messages, err := d.store.RecentMessages(ctx, room.ID, d.cfg.historyLimit)
	if err != nil {
		d.log(ctx).Errorf("Loading history of room %d: %v", room.ID, err)
		historyErr = newEventError(ErrDeliveryFailed, "Failed to load chat history")
	} else {
		d.deliver(ctx, c, EventChatHistory, d.withAuthors(ctx, c.Identity(), messages))
		replayed = lo.SliceToMap(messages, func(m storage.Message) (int64, struct{}) {
			return m.ID, struct{}{}
		})
	}
	if err := c.endReplay(replayed); err != nil {
		d.logger.Debugf("Writing to connection %s: %v", c.ID(), err)
	}

	d.broadcastOthers(ctx, room.ID, userID, EventUserJoined, membershipPayload{UserID: userID, ChatRoomID: room.ID})

	return historyErr
}

// Send persists a message into the joined room, broadcasts it to the room and
// notifies the other participant when none of their connections is in the room
func (d *Dispatcher) Send(ctx context.Context, c *Conn, req SendRequest) error {
	identity := c.Identity()

	joined, ok := c.Room()
	if req.RoomID == 0 {
		req.RoomID = joined
	}
	if !ok || req.RoomID != joined {
		return newEventError(ErrAccessDenied, "Not authorized to send to this room")
	}

	if req.Type == "" {
		req.Type = storage.MessageText
	}
	if err := d.validate.Struct(req); err != nil {
		return validationError(err)
	}

	msg, err := d.store.CreateMessage(ctx, req.RoomID, identity.ID, req.Content, req.Type)
	if err != nil {
		d.log(ctx).Errorf("Persisting message of user %d to room %d: %v", identity.ID, req.RoomID, err)
		return newEventError(ErrDeliveryFailed, "Failed to send message")
	}

	if err := d.store.TouchRoom(ctx, msg.Room, msg.CreatedAt); err != nil {
		d.log(ctx).Errorf("Touching room %d: %v", msg.Room, err)
	}

	author := d.author(ctx, identity)
	d.broadcastMessage(ctx, msg, author)

	room, ok := d.guard.Authorize(ctx, msg.Room, identity.ID)
	if ok {
		d.notifyPeer(ctx, room, msg, author)
	}

	return nil
}

// MarkRead advances message to read and tells every connection of its sender
func (d *Dispatcher) MarkRead(ctx context.Context, c *Conn, messageID int64) error {
	userID := c.Identity().ID

	msg, err := d.store.MessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotExist) {
			return newEventError(ErrNotFound, "Message not found")
		}
		d.log(ctx).Errorf("Loading message %d: %v", messageID, err)
		return newEventError(ErrDeliveryFailed, "Failed to mark message as read")
	}

	if _, ok := d.guard.Authorize(ctx, msg.Room, userID); !ok {
		return newEventError(ErrAccessDenied, "Access denied")
	}

	changed, err := d.store.AdvanceMessageStatus(ctx, msg.ID, storage.StatusRead)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotExist) {
			return newEventError(ErrNotFound, "Message not found")
		}
		d.log(ctx).Errorf("Marking message %d as read: %v", msg.ID, err)
		return newEventError(ErrDeliveryFailed, "Failed to mark message as read")
	}
	if !changed {
		return nil
	}

	d.sendToUser(ctx, msg.Sender, EventMessageRead, readPayload{
		MessageID:  msg.ID,
		ChatRoomID: msg.Room,
		ReadBy:     userID,
	})
	return nil
}

// Typing relays a typing indicator to the other users in the joined room
func (d *Dispatcher) Typing(ctx context.Context, c *Conn, roomID int64, isTyping bool) error {
	userID := c.Identity().ID

	joined, ok := c.Room()
	if roomID == 0 {
		roomID = joined
	}
	if !ok || roomID != joined {
		return newEventError(ErrAccessDenied, "Not joined to this chat room")
	}

	d.broadcastOthers(ctx, roomID, userID, EventUserTyping, typingPayload{
		UserID:     userID,
		ChatRoomID: roomID,
		IsTyping:   isTyping,
	})
	return nil
}

// Presence answers whether user has a live connection on this or, via the mirror, any instance
func (d *Dispatcher) Presence(ctx context.Context, c *Conn, userID int64) error {
	online := d.registry.IsOnline(userID)
	if !online && d.cfg.mirror != nil {
		var err error
		online, err = d.cfg.mirror.IsOnline(ctx, userID)
		if err != nil {
			d.log(ctx).Errorf("Checking presence of user %d: %v", userID, err)
		}
	}

	d.deliver(ctx, c, EventPresence, presencePayload{UserID: userID, IsOnline: online})
	return nil
}

// Disconnect closes c, removes it from its room and from the registry
func (d *Dispatcher) Disconnect(ctx context.Context, c *Conn) {
	ctx = zapadapter.NewContextWithConnectionID(ctx, c.ID())
	userID := c.Identity().ID

	room, joined := d.groups.leave(c)
	if joined {
		d.userLeft(room, userID)
	}

	if d.registry.Unregister(userID, c.ID()) {
		d.logger.Debugf("User %d is offline", userID)
	}

	if d.cfg.mirror != nil {
		if err := d.cfg.mirror.SetOffline(ctx, userID, c.ID()); err != nil {
			d.log(ctx).Errorf("Removing mirrored connection %s of user %d: %v", c.ID(), userID, err)
		}
	}
}

// Wait blocks until in-flight notification bridge calls finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// notifyPeer pushes a notification to the other participant unless one of their connections is in the room
func (d *Dispatcher) notifyPeer(ctx context.Context, room storage.Room, msg storage.Message, author storage.Display) {
	peer := room.Peer(msg.Sender)
	if d.groups.hasUser(room.ID, peer) {
		return
	}

	n := notify.Notification{
		Title: "New message from " + author.Name,
		Body:  notify.Preview(msg.Content),
		Type:  notify.TypeNewMessage,
		Data: map[string]any{
			"chatRoomId": room.ID,
			"messageId":  msg.ID,
			"senderId":   msg.Sender,
		},
	}

	d.sendToUser(ctx, peer, EventNotification, n)

	if d.cfg.notifier == nil {
		return
	}

	logger := d.log(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.notifyTimeout)
		defer cancel()

		if err := d.cfg.notifier.Send(ctx, peer, n); err != nil {
			logger.Errorf("Notifying user %d about message %d: %v", peer, msg.ID, err)
		}
	}()
}

// userLeft announces user leaving room unless another of their connections is still in it
func (d *Dispatcher) userLeft(room, userID int64) {
	if d.groups.hasUser(room, userID) {
		return
	}
	d.broadcastOthers(context.Background(), room, userID, EventUserLeft, membershipPayload{UserID: userID, ChatRoomID: room})
}

// withAuthors attaches sender display info to messages, resolving each sender once
func (d *Dispatcher) withAuthors(ctx context.Context, viewer auth.Identity, messages []storage.Message) []messagePayload {
	authors := make(map[int64]storage.Display)
	for _, sender := range lo.Uniq(lo.Map(messages, func(m storage.Message, _ int) int64 { return m.Sender })) {
		if sender == viewer.ID {
			authors[sender] = d.author(ctx, viewer)
			continue
		}
		display, err := d.resolver.Display(ctx, sender)
		if err != nil {
			d.log(ctx).Errorf("Resolving display of user %d: %v", sender, err)
			display = storage.Display{UserID: sender}
		}
		authors[sender] = display
	}

	return lo.Map(messages, func(m storage.Message, _ int) messagePayload {
		return messagePayload{Message: m, Author: authors[m.Sender]}
	})
}

// author resolves display info of identity, falling back to its email
func (d *Dispatcher) author(ctx context.Context, identity auth.Identity) storage.Display {
	display, err := d.resolver.Display(ctx, identity.ID)
	if err != nil {
		d.log(ctx).Errorf("Resolving display of user %d: %v", identity.ID, err)
		return storage.Display{UserID: identity.ID, Name: identity.Email, Role: identity.Role}
	}
	return display
}

// broadcastMessage sends msg to every connection joined to its room
func (d *Dispatcher) broadcastMessage(ctx context.Context, msg storage.Message, author storage.Display) {
	payload, ok := d.encode(ctx, EventNewMessage, messagePayload{Message: msg, Author: author})
	if !ok {
		return
	}
	for _, member := range d.groups.members(msg.Room) {
		if err := member.sendMessage(msg.ID, payload); err != nil {
			d.logger.Debugf("Writing to connection %s: %v", member.ID(), err)
		}
	}
}

// broadcastOthers skips every connection of userID
func (d *Dispatcher) broadcastOthers(ctx context.Context, room, userID int64, event string, data any) {
	payload, ok := d.encode(ctx, event, data)
	if !ok {
		return
	}
	for _, member := range d.groups.members(room) {
		if member.Identity().ID != userID {
			d.write(member, payload)
		}
	}
}

func (d *Dispatcher) sendToUser(ctx context.Context, userID int64, event string, data any) {
	payload, ok := d.encode(ctx, event, data)
	if !ok {
		return
	}
	for _, c := range d.registry.conns(userID) {
		d.write(c, payload)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, c *Conn, event string, data any) {
	payload, ok := d.encode(ctx, event, data)
	if !ok {
		return
	}
	d.write(c, payload)
}

// reject reports err to c only
func (d *Dispatcher) reject(ctx context.Context, c *Conn, err error) {
	var evErr *EventError
	if !errors.As(err, &evErr) {
		d.log(ctx).Errorf("Handling event: %v", err)
		evErr = &EventError{Message: "Internal error"}
	}
	d.deliver(ctx, c, EventErrorFrame, errorPayload{Message: evErr.Message, Code: evErr.Code()})
}

func (d *Dispatcher) encode(ctx context.Context, event string, data any) ([]byte, bool) {
	payload, err := encode(event, data)
	if err != nil {
		d.log(ctx).Errorf("Encoding %s event: %v", event, err)
		return nil, false
	}
	return payload, true
}

// write drops payload when the transport refuses it; the transport closes itself in that case
func (d *Dispatcher) write(c *Conn, payload []byte) {
	if err := c.send(payload); err != nil {
		d.logger.Debugf("Writing to connection %s: %v", c.ID(), err)
	}
}

func (d *Dispatcher) log(ctx context.Context) *zap.SugaredLogger {
	fields := zapadapter.Fields(ctx)
	if len(fields) == 0 {
		return d.logger
	}
	return d.logger.Desugar().With(fields...).Sugar()
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return newEventError(ErrValidation, "Invalid message")
	}

	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Content" && fe.Tag() == "min":
		return newEventError(ErrValidation, "Message content cannot be empty")
	case fe.Field() == "Content" && fe.Tag() == "max":
		return newEventError(ErrValidation, "Message content cannot exceed 1000 characters")
	case fe.Field() == "Type":
		return newEventError(ErrValidation, "Message type must be one of text, image, file")
	}
	return newEventError(ErrValidation, "Invalid message")
}
