package storage

import (
	"context"
	"fluxe/backend/internal/models"
	"sync"
	"time"
)

// MemoryStore keeps rooms in process memory. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	rooms         map[string]*models.Room
	byParticipant map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:         make(map[string]*models.Room),
		byParticipant: make(map[string][]string),
	}
}

func (m *MemoryStore) SaveRoom(_ context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[room.ID]; !exists {
		for _, u := range room.Users() {
			m.byParticipant[u.ConnectionID] = append(m.byParticipant[u.ConnectionID], room.ID)
		}
	}
	m.rooms[room.ID] = room.Clone()
	return nil
}

func (m *MemoryStore) GetRoomByID(_ context.Context, roomID string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (m *MemoryStore) FindRoomByParticipant(_ context.Context, connectionID string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byParticipant[connectionID]
	if len(ids) == 0 {
		return nil, ErrRoomNotFound
	}
	return m.rooms[ids[len(ids)-1]].Clone(), nil
}

func (m *MemoryStore) CloseRoom(_ context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok || room.Status != models.RoomOpen {
		return false, nil
	}
	now := time.Now()
	room.Status = models.RoomClosed
	room.ClosedAt = &now
	return true, nil
}

func (m *MemoryStore) AppendChat(_ context.Context, roomID string, msg models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	msg.RoomID = roomID
	msg.ID = uint(len(room.ChatLog) + 1)
	room.ChatLog = append(room.ChatLog, msg)
	return nil
}

func (m *MemoryStore) GetOpenRoomIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.rooms))
	for id, room := range m.rooms {
		if room.IsOpen() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
