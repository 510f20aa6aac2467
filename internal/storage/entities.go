package storage

import "time"

type Role string

const (
	RoleVA      Role = "va"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Display is the public face of a user as shown next to their messages.
// Name and Avatar come from the VA or company profile depending on Role.
type Display struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role"`
}

// Room is a conversation between exactly two users.
// ParticipantA is always the smaller user id.
type Room struct {
	ID            int64      `json:"id"`
	ParticipantA  int64      `json:"participantA"`
	ParticipantB  int64      `json:"participantB"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// HasParticipant reports whether user is one of the two room members
func (r Room) HasParticipant(user int64) bool {
	return user == r.ParticipantA || user == r.ParticipantB
}

// Peer returns the participant that is not user
func (r Room) Peer(user int64) int64 {
	if user == r.ParticipantA {
		return r.ParticipantB
	}
	return r.ParticipantA
}

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

type MessageStatus string

const (
	StatusSent MessageStatus = "sent"
	// StatusDelivered is reserved; nothing moves a message into it.
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

// Before reports whether s precedes next in the sent -> delivered -> read order
func (s MessageStatus) Before(next MessageStatus) bool {
	return s.rank() >= 0 && s.rank() < next.rank()
}

type Message struct {
	ID        int64         `json:"id"`
	Room      int64         `json:"chatRoomId"`
	Sender    int64         `json:"senderId"`
	Content   string        `json:"content"`
	Type      MessageType   `json:"type"`
	Status    MessageStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}
