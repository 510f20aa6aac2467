package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"marketplace-chat/internal/storage/zapadapter"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotExist     = errors.New("user does not exist")
	ErrRoomSameUser     = errors.New("room requires two different users")
	ErrRoomBadUsers     = errors.New("bad room participants")
	ErrRoomNotExist     = errors.New("chat room does not exist")
	ErrMessageBadRoom   = errors.New("bad chat room id")
	ErrMessageBadSender = errors.New("bad sender id")
	ErrMessageNotExist  = errors.New("message does not exist")
	ErrMessageNotOwner  = errors.New("message belongs to another user")
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())
	config.ConnConfig.LogLevel = pgx.LogLevelWarn

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ConnectConfig: %w", err)
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close closes all pooled connections
func (s *Store) Close() {
	s.db.Close()
}

// Migrate creates missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("Applying schema")
	_, err := s.db.Exec(ctx, schema)
	return err
}

// CreateUser creates user and returns its id.
func (s *Store) CreateUser(ctx context.Context, email string, role Role) (int64, error) {
	s.logger.Debugf("Creating user (%s, %s)", email, role)

	var id int64
	sql := "insert into users (email, role, created_at) values ($1, $2, $3) returning id"
	err := s.db.QueryRow(ctx, sql, email, string(role), time.Now()).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrUserExists
		}
		return 0, err
	}

	s.logger.Debugf("Created user (%s) with id %d", email, id)

	return id, nil
}

// UserByEmail returns the user registered with email
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var (
		u    User
		role string
	)
	sql := "select id, email, role, created_at from users where email = $1"
	err := s.db.QueryRow(ctx, sql, email).Scan(&u.ID, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}
	u.Role = Role(role)

	return u, nil
}

// Display resolves the name and avatar of a user from the profile matching their role.
// Users without such a profile are shown by their email.
func (s *Store) Display(ctx context.Context, user int64) (Display, error) {
	d := Display{UserID: user}
	var role string
	sql := `select users.role,
				   coalesce(case users.role
							    when 'va' then va_profiles.full_name
							    when 'company' then company_profiles.company_name
							end, users.email),
				   coalesce(case users.role
							    when 'va' then va_profiles.avatar_url
							    when 'company' then company_profiles.logo_url
							end, '')
			  from users
			  left join va_profiles
				on va_profiles.user_id = users.id
			  left join company_profiles
				on company_profiles.user_id = users.id
			 where users.id = $1`
	err := s.db.QueryRow(ctx, sql, user).Scan(&role, &d.Name, &d.Avatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Display{}, ErrUserNotExist
		}
		return Display{}, err
	}
	d.Role = Role(role)

	return d, nil
}

// GetOrCreateRoom returns the room shared by users a and b, creating it on first request.
// created is true only for the call that inserted the row.
func (s *Store) GetOrCreateRoom(ctx context.Context, a, b int64) (room Room, created bool, err error) {
	if a == b {
		return Room{}, false, ErrRoomSameUser
	}
	if a > b {
		a, b = b, a
	}

	s.logger.Debugf("Getting or creating room for users (%d, %d)", a, b)

	sql := `insert into chat_rooms (participant_a, participant_b, created_at)
			values ($1, $2, $3)
			on conflict (participant_a, participant_b) do nothing
			returning id, participant_a, participant_b, last_message_at, created_at`
	room, err = scanRoom(s.db.QueryRow(ctx, sql, a, b, time.Now()))
	switch {
	case err == nil:
		s.logger.Debugf("Created room %d", room.ID)
		return room, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// row already exists
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return Room{}, false, ErrRoomBadUsers
		}
		return Room{}, false, err
	}

	sql = `select id, participant_a, participant_b, last_message_at, created_at
			 from chat_rooms
			where participant_a = $1 and participant_b = $2`
	room, err = scanRoom(s.db.QueryRow(ctx, sql, a, b))
	if err != nil {
		return Room{}, false, err
	}

	return room, false, nil
}

// RoomByID returns room with provided id
func (s *Store) RoomByID(ctx context.Context, id int64) (Room, error) {
	sql := `select id, participant_a, participant_b, last_message_at, created_at
			  from chat_rooms
			 where id = $1`
	room, err := scanRoom(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, ErrRoomNotExist
		}
		return Room{}, err
	}
	return room, nil
}

// RoomsByUserID returns rooms of user sorted by last activity (latest first),
// rooms without messages go last ordered by creation time
func (s *Store) RoomsByUserID(ctx context.Context, user int64) ([]Room, error) {
	s.logger.Debugf("Retrieving rooms for user (id: %d)", user)

	sql := `select id, participant_a, participant_b, last_message_at, created_at
			  from chat_rooms
			 where participant_a = $1 or participant_b = $1
			 order by last_message_at desc nulls last, created_at desc`
	rows, err := s.db.Query(ctx, sql, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debugf("Retrieved %d rooms", len(rooms))

	return rooms, nil
}

// TouchRoom sets last activity time of the room
func (s *Store) TouchRoom(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.db.Exec(ctx, "update chat_rooms set last_message_at = $2 where id = $1", id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotExist
	}
	return nil
}

// CreateMessage stores a new message with status sent. created_at is assigned by the database.
func (s *Store) CreateMessage(ctx context.Context, room, sender int64, content string, typ MessageType) (Message, error) {
	s.logger.Debugf("Creating message from user (id: %d) in room (id: %d)", sender, room)

	sql := `insert into messages (chat_room_id, sender_id, content, type, status)
			values ($1, $2, $3, $4, $5)
			returning id, chat_room_id, sender_id, content, type, status, created_at`
	m, err := scanMessage(s.db.QueryRow(ctx, sql, room, sender, content, string(typ), string(StatusSent)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			switch pgErr.ConstraintName {
			case "messages_chat_room_id_fkey":
				return Message{}, ErrMessageBadRoom
			case "messages_sender_id_fkey":
				return Message{}, ErrMessageBadSender
			}
		}
		return Message{}, err
	}

	return m, nil
}

// MessageByID returns message with provided id
func (s *Store) MessageByID(ctx context.Context, id int64) (Message, error) {
	sql := `select id, chat_room_id, sender_id, content, type, status, created_at
			  from messages
			 where id = $1`
	m, err := scanMessage(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrMessageNotExist
		}
		return Message{}, err
	}
	return m, nil
}

// RecentMessages returns at most limit latest messages of the room
// sorted by creation time (from earliest to latest)
func (s *Store) RecentMessages(ctx context.Context, room int64, limit int) ([]Message, error) {
	s.logger.Debugf("Retrieving %d recent messages for room (id: %d)", limit, room)

	sql := `select id, chat_room_id, sender_id, content, type, status, created_at
			  from (select id, chat_room_id, sender_id, content, type, status, created_at
					  from messages
					 where chat_room_id = $1
					 order by created_at desc, id desc
					 limit $2) as recent
			 order by created_at asc, id asc`
	rows, err := s.db.Query(ctx, sql, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debugf("Retrieved %d messages", len(messages))

	return messages, nil
}

// AdvanceMessageStatus moves message status forward. It never moves it back:
// changed is false when the message already has status or a later one.
func (s *Store) AdvanceMessageStatus(ctx context.Context, id int64, status MessageStatus) (changed bool, err error) {
	if status.rank() < 0 {
		return false, fmt.Errorf("unknown message status %q", status)
	}

	sql := `update messages
			   set status = $2
			 where id = $1
			   and (case status when 'sent' then 0 when 'delivered' then 1 else 2 end) < $3`
	tag, err := s.db.Exec(ctx, sql, id, string(status), status.rank())
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var i int8
	err = s.db.QueryRow(ctx, "select 1 from messages where id = $1", id).Scan(&i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrMessageNotExist
		}
		return false, err
	}

	return false, nil
}

// DeleteMessage removes message if it was sent by sender
func (s *Store) DeleteMessage(ctx context.Context, id, sender int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	// error handling can be omitted for rollback according docs
	defer tx.Rollback(context.Background())

	var owner int64
	err = tx.QueryRow(ctx, "select sender_id from messages where id = $1 for update", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotExist
		}
		return err
	}
	if owner != sender {
		return ErrMessageNotOwner
	}

	if _, err = tx.Exec(ctx, "delete from messages where id = $1", id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanRoom(row pgx.Row) (Room, error) {
	var (
		r    Room
		last pgtype.Timestamptz
	)
	if err := row.Scan(&r.ID, &r.ParticipantA, &r.ParticipantB, &last, &r.CreatedAt); err != nil {
		return Room{}, err
	}
	if last.Status == pgtype.Present {
		t := last.Time
		r.LastMessageAt = &t
	}
	return r, nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		m           Message
		typ, status string
	)
	if err := row.Scan(&m.ID, &m.Room, &m.Sender, &m.Content, &typ, &status, &m.CreatedAt); err != nil {
		return Message{}, err
	}
	m.Type = MessageType(typ)
	m.Status = MessageStatus(status)
	return m, nil
}
