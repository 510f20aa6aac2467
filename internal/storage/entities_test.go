package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageStatusBefore(t *testing.T) {
	require.True(t, StatusSent.Before(StatusRead))
	require.True(t, StatusSent.Before(StatusDelivered))
	require.True(t, StatusDelivered.Before(StatusRead))
	require.False(t, StatusRead.Before(StatusSent))
	require.False(t, StatusRead.Before(StatusRead))
	require.False(t, MessageStatus("bogus").Before(StatusRead))
}

func TestRoomPeer(t *testing.T) {
	r := Room{ID: 1, ParticipantA: 10, ParticipantB: 20}
	require.Equal(t, int64(20), r.Peer(10))
	require.Equal(t, int64(10), r.Peer(20))
	require.True(t, r.HasParticipant(10))
	require.False(t, r.HasParticipant(30))
}
