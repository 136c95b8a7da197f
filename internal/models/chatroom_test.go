package models_test

import (
	"encoding/json"
	"fluxe/backend/internal/models"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom_Roles(t *testing.T) {
	x := models.NewUser("conn-x", "")
	y := models.NewUser("conn-y", "")

	room := models.NewRoom(x, y)

	assert.NotEmpty(t, room.ID)
	assert.True(t, room.IsOpen())
	assert.Empty(t, room.ChatLog)
	assert.Equal(t, [2]models.User{x, y}, room.Users())
	assert.ElementsMatch(t, []string{"conn-x", "conn-y"}, []string(room.Participants))

	role, ok := room.RoleOf("conn-x")
	assert.True(t, ok)
	assert.Equal(t, models.RoleA, role)
	role, ok = room.RoleOf("conn-y")
	assert.True(t, ok)
	assert.Equal(t, models.RoleB, role)

	_, ok = room.RoleOf("stranger")
	assert.False(t, ok)
}

func TestRoom_Peer(t *testing.T) {
	room := models.NewRoom(models.NewUser("a", ""), models.NewUser("b", ""))

	peer, ok := room.Peer("a")
	assert.True(t, ok)
	assert.Equal(t, "b", peer.ConnectionID)

	peer, ok = room.Peer("b")
	assert.True(t, ok)
	assert.Equal(t, "a", peer.ConnectionID)

	_, ok = room.Peer("c")
	assert.False(t, ok)
	assert.False(t, room.HasParticipant("c"))
}

func TestRoom_CloneIsIndependent(t *testing.T) {
	room := models.NewRoom(models.NewUser("a", ""), models.NewUser("b", ""))
	clone := room.Clone()

	clone.ChatLog = append(clone.ChatLog, models.ChatMessage{Text: "hi"})
	clone.Participants[0] = "changed"
	clone.Status = models.RoomClosed

	assert.Empty(t, room.ChatLog)
	assert.Equal(t, "a", room.Participants[0])
	assert.True(t, room.IsOpen())
}

func TestRoomStructTags(t *testing.T) {
	roomType := reflect.TypeOf(models.Room{})

	idField, found := roomType.FieldByName("ID")
	require.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	participants, found := roomType.FieldByName("Participants")
	require.True(t, found)
	assert.Contains(t, participants.Tag.Get("gorm"), "type:text[]")

	chatType := reflect.TypeOf(models.ChatMessage{})
	text, found := chatType.FieldByName("Text")
	require.True(t, found)
	assert.Equal(t, "message", text.Tag.Get("json"), "chat log entries persist as {message, timestamp}")
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env, err := models.NewEnvelope(models.NotifyMatched, models.Matched{
		RoomID:           "room-1",
		PeerConnectionID: "conn-y",
		Role:             models.RoleA,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"matched","payload":{"roomId":"room-1","peerConnectionId":"conn-y","role":"A"}}`, string(raw))

	var decoded models.Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))
	var matched models.Matched
	require.NoError(t, decoded.Decode(&matched))
	assert.Equal(t, models.RoleA, matched.Role)
}

func TestEnvelope_DecodeEmptyPayload(t *testing.T) {
	var skip struct{}
	assert.NoError(t, models.Envelope{Type: models.EventUserSkip}.Decode(&skip))
}
