package storage_test

import (
	"context"
	"fluxe/backend/internal/config"
	"fluxe/backend/internal/models"
	"fluxe/backend/internal/storage"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoom(a, b string) *models.Room {
	return models.NewRoom(models.NewUser(a, ""), models.NewUser(b, ""))
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	room := newRoom("x", "y")

	require.NoError(t, s.SaveRoom(ctx, room))

	got, err := s.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	assert.Equal(t, models.RoomOpen, got.Status)

	_, err = s.GetRoomByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrRoomNotFound)
}

func TestMemoryStore_FindRoomByParticipant_ReturnsLatest(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	first := newRoom("x", "y")
	second := newRoom("x", "z")
	require.NoError(t, s.SaveRoom(ctx, first))
	require.NoError(t, s.SaveRoom(ctx, second))

	got, err := s.FindRoomByParticipant(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	got, err = s.FindRoomByParticipant(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.FindRoomByParticipant(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrRoomNotFound)
}

func TestMemoryStore_CloseRoomIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	room := newRoom("x", "y")
	require.NoError(t, s.SaveRoom(ctx, room))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CloseRoom(ctx, room.ID)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "exactly one close must win")

	got, err := s.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)

	ok, err := s.CloseRoom(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_AppendChatKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	room := newRoom("x", "y")
	require.NoError(t, s.SaveRoom(ctx, room))

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.AppendChat(ctx, room.ID, models.ChatMessage{Text: text, Timestamp: time.Now()}))
	}

	got, err := s.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, got.ChatLog, 3)
	assert.Equal(t, "one", got.ChatLog[0].Text)
	assert.Equal(t, "two", got.ChatLog[1].Text)
	assert.Equal(t, "three", got.ChatLog[2].Text)

	assert.ErrorIs(t, s.AppendChat(ctx, "missing", models.ChatMessage{Text: "x"}), storage.ErrRoomNotFound)
}

func TestMemoryStore_GetOpenRoomIDs(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	open := newRoom("a", "b")
	closed := newRoom("c", "d")
	require.NoError(t, s.SaveRoom(ctx, open))
	require.NoError(t, s.SaveRoom(ctx, closed))
	_, err := s.CloseRoom(ctx, closed.ID)
	require.NoError(t, err)

	ids, err := s.GetOpenRoomIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{open.ID}, ids)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	room := newRoom("x", "y")
	require.NoError(t, s.SaveRoom(ctx, room))

	got, err := s.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	got.Status = models.RoomClosed

	again, err := s.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomOpen, again.Status)
}

// TestOpen_MemoryAndUnknownDriver verifies driver selection without external services.
func TestOpen_MemoryAndUnknownDriver(t *testing.T) {
	s, closeFn, err := storage.Open(context.Background(), config.Config{StoreDriver: config.StoreMemory})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &storage.MemoryStore{}, s)

	_, _, err = storage.Open(context.Background(), config.Config{StoreDriver: "sqlite"})
	assert.Error(t, err)
}
