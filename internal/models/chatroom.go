package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RoomStatus is the lifecycle state of a Room. It only moves from open to closed.
type RoomStatus string

const (
	RoomOpen   RoomStatus = "open"
	RoomClosed RoomStatus = "closed"
)

// Role breaks the symmetry between the two paired clients: the A side
// initiates the peer connection handshake, the B side waits for the offer.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// Room is a two-party session. Its participants never change; only Status does.
type Room struct {
	// ID is the unique identifier for the room (UUID).
	ID string `gorm:"primaryKey" json:"id" bson:"id"`
	// UserA is the longer-waiting participant and holds RoleA.
	UserA User `gorm:"serializer:json;not null" json:"userA" bson:"user_a"`
	// UserB holds RoleB.
	UserB User `gorm:"serializer:json;not null" json:"userB" bson:"user_b"`
	// Participants mirrors the two connection ids for participant lookups.
	Participants pq.StringArray `gorm:"type:text[];index:,type:gin" json:"-" bson:"participants"`
	// ChatLog is append-only.
	ChatLog []ChatMessage `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"chatLog" bson:"chat_log"`
	Status  RoomStatus    `gorm:"type:text;not null;index" json:"status" bson:"status"`

	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
	ClosedAt  *time.Time `json:"closedAt,omitempty" bson:"closed_at,omitempty"`
}

// ChatMessage is one entry of a room's chat log.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"-" bson:"-"`
	RoomID    string    `gorm:"type:text;not null;index:idx_room_msg" json:"-" bson:"-"`
	Text      string    `gorm:"column:message;type:text;not null" json:"message" bson:"message"`
	Timestamp time.Time `gorm:"not null;index:idx_room_msg" json:"timestamp" bson:"timestamp"`
}

// NewRoom opens a room pairing a (role A) with b (role B).
func NewRoom(a, b User) *Room {
	return &Room{
		ID:           uuid.New().String(),
		UserA:        a,
		UserB:        b,
		Participants: pq.StringArray{a.ConnectionID, b.ConnectionID},
		ChatLog:      []ChatMessage{},
		Status:       RoomOpen,
		CreatedAt:    time.Now(),
	}
}

// Users returns the participants in role order.
func (r *Room) Users() [2]User {
	return [2]User{r.UserA, r.UserB}
}

// IsOpen reports whether the room still accepts traffic.
func (r *Room) IsOpen() bool {
	return r.Status == RoomOpen
}

// HasParticipant reports whether connectionID is one of the two participants.
func (r *Room) HasParticipant(connectionID string) bool {
	return r.UserA.ConnectionID == connectionID || r.UserB.ConnectionID == connectionID
}

// Peer returns the participant whose connection id differs from connectionID.
// ok is false if connectionID is not a participant.
func (r *Room) Peer(connectionID string) (User, bool) {
	switch connectionID {
	case r.UserA.ConnectionID:
		return r.UserB, true
	case r.UserB.ConnectionID:
		return r.UserA, true
	}
	return User{}, false
}

// RoleOf returns the role held by connectionID in this room.
func (r *Room) RoleOf(connectionID string) (Role, bool) {
	switch connectionID {
	case r.UserA.ConnectionID:
		return RoleA, true
	case r.UserB.ConnectionID:
		return RoleB, true
	}
	return "", false
}

// Clone returns a deep copy safe to hand out of a lock.
func (r *Room) Clone() *Room {
	c := *r
	c.Participants = make(pq.StringArray, len(r.Participants))
	copy(c.Participants, r.Participants)
	c.ChatLog = make([]ChatMessage, len(r.ChatLog))
	copy(c.ChatLog, r.ChatLog)
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
