//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=../mocks/mock_chat.go -package=mocks

package chat

import (
	"context"
	"time"

	"marketplace-chat/internal/notify"
	"marketplace-chat/internal/storage"
)

type RoomFinder interface {
	RoomByID(ctx context.Context, id int64) (storage.Room, error)
}

// Store is the durable record store used by the dispatcher
type Store interface {
	RoomFinder
	MessageByID(ctx context.Context, id int64) (storage.Message, error)
	CreateMessage(ctx context.Context, room, sender int64, content string, typ storage.MessageType) (storage.Message, error)
	AdvanceMessageStatus(ctx context.Context, id int64, status storage.MessageStatus) (bool, error)
	TouchRoom(ctx context.Context, id int64, at time.Time) error
	RecentMessages(ctx context.Context, room int64, limit int) ([]storage.Message, error)
}

// DisplayResolver resolves how a user is shown next to their messages
type DisplayResolver interface {
	Display(ctx context.Context, userID int64) (storage.Display, error)
}

// Notifier pushes notifications out of band
type Notifier interface {
	Send(ctx context.Context, userID int64, n notify.Notification) error
}

// PresenceMirror shares connection registrations with other instances
type PresenceMirror interface {
	SetOnline(ctx context.Context, userID int64, connID string) error
	SetOffline(ctx context.Context, userID int64, connID string) error
	IsOnline(ctx context.Context, userID int64) (bool, error)
}
