package chat

import (
	"context"
	"errors"
	"testing"

	"marketplace-chat/internal/mocks"
	"marketplace-chat/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGuard_Authorize(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	rooms := mocks.NewMockRoomFinder(ctrl)

	room := storage.Room{ID: 5, ParticipantA: userA, ParticipantB: userB}
	// membership is immutable, so the store is asked once
	rooms.EXPECT().RoomByID(gomock.Any(), room.ID).Return(room, nil).Times(1)

	g := NewGuard(testLogger(t), rooms)

	got, ok := g.Authorize(ctx, room.ID, userA)
	req.True(ok)
	req.Equal(room, got)

	_, ok = g.Authorize(ctx, room.ID, userB)
	req.True(ok)

	_, ok = g.Authorize(ctx, room.ID, userC)
	req.False(ok)
}

func TestGuard_Failures(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	rooms := mocks.NewMockRoomFinder(ctrl)
	rooms.EXPECT().RoomByID(gomock.Any(), int64(404)).Return(storage.Room{}, storage.ErrRoomNotExist)
	// failures are not cached
	rooms.EXPECT().RoomByID(gomock.Any(), int64(500)).Return(storage.Room{}, errors.New("too many connections")).Times(2)

	g := NewGuard(testLogger(t), rooms)

	_, ok := g.Authorize(ctx, 404, userA)
	req.False(ok)

	_, ok = g.Authorize(ctx, 500, userA)
	req.False(ok)
	_, ok = g.Authorize(ctx, 500, userA)
	req.False(ok)
}
