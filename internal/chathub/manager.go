package chathub

import (
	"context"
	"errors"
	"fluxe/backend/internal/models"
	"fluxe/backend/internal/storage"
	"sync"
	"time"

	"go.uber.org/zap"
)

// liveRoom is the authoritative in-memory state of an open room.
// mu serializes status changes, chat appends and the persistence writes that
// follow them; ready is closed once the room has been persisted and announced.
type liveRoom struct {
	mu    sync.Mutex
	room  *models.Room
	ready chan struct{}
}

// RoomManager owns room creation, the open/closed lifecycle and role assignment.
// Open rooms are held in memory; storage is written behind each transition
// while the room lock is held.
type RoomManager struct {
	Storage storage.Storage

	notifier Notifier
	logger   *zap.Logger
	metrics  *Metrics

	mu     sync.Mutex
	rooms  map[string]*liveRoom
	byConn map[string]*liveRoom
}

func NewRoomManager(s storage.Storage, notifier Notifier, logger *zap.Logger, metrics *Metrics) *RoomManager {
	return &RoomManager{
		Storage:  s,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		rooms:    make(map[string]*liveRoom),
		byConn:   make(map[string]*liveRoom),
	}
}

// CreateRoom allocates an open room for a (role A) and b (role B), persists it
// and notifies both participants.
func (m *RoomManager) CreateRoom(ctx context.Context, a, b models.User) (*models.Room, error) {
	room := m.ReserveRoom(a, b)
	if err := m.OpenRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ReserveRoom indexes a new open room in memory without touching storage.
func (m *RoomManager) ReserveRoom(a, b models.User) *models.Room {
	lr := &liveRoom{
		room:  models.NewRoom(a, b),
		ready: make(chan struct{}),
	}

	m.mu.Lock()
	m.rooms[lr.room.ID] = lr
	m.byConn[a.ConnectionID] = lr
	m.byConn[b.ConnectionID] = lr
	m.mu.Unlock()

	m.metrics.OpenRooms.Inc()
	return lr.room.Clone()
}

// OpenRoom persists a reserved room and sends the matched notification to both
// participants. If persisting fails the room is dropped and the error returned.
func (m *RoomManager) OpenRoom(ctx context.Context, room *models.Room) error {
	lr := m.live(room.ID)
	if lr == nil {
		return storage.ErrRoomNotFound
	}
	defer close(lr.ready)

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if err := m.Storage.SaveRoom(ctx, lr.room); err != nil {
		m.logger.Error("failed to save new room",
			zap.String("room", room.ID),
			zap.Error(err))
		lr.room.Status = models.RoomClosed
		m.forget(lr)
		return err
	}

	a, b := lr.room.UserA, lr.room.UserB
	m.notifyMatched(a, b, models.RoleA, lr.room.ID)
	m.notifyMatched(b, a, models.RoleB, lr.room.ID)
	m.metrics.RoomsCreated.Inc()

	m.logger.Info("room created",
		zap.String("room", lr.room.ID),
		zap.String("A", a.ConnectionID),
		zap.String("B", b.ConnectionID))
	return nil
}

func (m *RoomManager) notifyMatched(to, peer models.User, role models.Role, roomID string) {
	env, err := models.NewEnvelope(models.NotifyMatched, models.Matched{
		RoomID:           roomID,
		PeerConnectionID: peer.ConnectionID,
		Role:             role,
	})
	if err != nil {
		m.logger.Error("failed to encode matched notification", zap.Error(err))
		return
	}
	if !m.notifier.Send(to.ConnectionID, env) {
		m.logger.Warn("matched notification undeliverable",
			zap.String("room", roomID),
			zap.String("conn", to.ConnectionID))
	}
}

// FindRoomByParticipant returns the open room of connectionID, falling back to
// the most recent persisted room. It returns storage.ErrRoomNotFound if none.
func (m *RoomManager) FindRoomByParticipant(ctx context.Context, connectionID string) (*models.Room, error) {
	m.mu.Lock()
	lr := m.byConn[connectionID]
	m.mu.Unlock()

	if lr != nil {
		lr.mu.Lock()
		defer lr.mu.Unlock()
		return lr.room.Clone(), nil
	}
	return m.Storage.FindRoomByParticipant(ctx, connectionID)
}

// PeerOf returns the open room and peer of connectionID.
func (m *RoomManager) PeerOf(connectionID string) (string, models.User, bool) {
	m.mu.Lock()
	lr := m.byConn[connectionID]
	m.mu.Unlock()

	if lr == nil {
		return "", models.User{}, false
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if !lr.room.IsOpen() {
		return "", models.User{}, false
	}
	peer, ok := lr.room.Peer(connectionID)
	return lr.room.ID, peer, ok
}

// CloseRoom moves room from open to closed. It reports true only for the one
// call that performed the transition; concurrent or later calls get false.
func (m *RoomManager) CloseRoom(ctx context.Context, room *models.Room) (bool, error) {
	lr := m.live(room.ID)
	if lr == nil {
		// Not opened by this process: the storage update is the compare-and-set.
		return m.Storage.CloseRoom(ctx, room.ID)
	}

	select {
	case <-lr.ready:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if !lr.room.IsOpen() {
		return false, nil
	}
	now := time.Now()
	lr.room.Status = models.RoomClosed
	lr.room.ClosedAt = &now
	m.forget(lr)

	persisted, err := m.Storage.CloseRoom(ctx, room.ID)
	switch {
	case err != nil:
		m.logger.Error("failed to persist room close",
			zap.String("room", room.ID),
			zap.Error(err))
	case !persisted:
		m.logger.Warn("room was already closed in storage", zap.String("room", room.ID))
	}
	return true, nil
}

// AppendChat appends a message stamped with the current time to the room's
// chat log and persists it.
func (m *RoomManager) AppendChat(ctx context.Context, roomID, text string) error {
	msg := models.ChatMessage{Text: text, Timestamp: time.Now()}

	if lr := m.live(roomID); lr != nil {
		lr.mu.Lock()
		defer lr.mu.Unlock()
	}
	return m.Storage.AppendChat(ctx, roomID, msg)
}

// RecoverOpenRooms closes rooms left open in storage by a previous process.
// Their connections did not survive the restart.
func (m *RoomManager) RecoverOpenRooms(ctx context.Context) (int, error) {
	ids, err := m.Storage.GetOpenRoomIDs(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		if m.live(id) != nil {
			continue
		}
		ok, err := m.Storage.CloseRoom(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return closed, err
			}
			m.logger.Warn("failed to close stale room", zap.String("room", id), zap.Error(err))
			continue
		}
		if ok {
			closed++
		}
	}
	m.logger.Info("recovery complete", zap.Int("stale_rooms_closed", closed))
	return closed, nil
}

func (m *RoomManager) live(roomID string) *liveRoom {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[roomID]
}

// forget drops lr from the in-memory tables.
func (m *RoomManager) forget(lr *liveRoom) {
	m.mu.Lock()
	delete(m.rooms, lr.room.ID)
	for _, u := range lr.room.Users() {
		if m.byConn[u.ConnectionID] == lr {
			delete(m.byConn, u.ConnectionID)
		}
	}
	m.mu.Unlock()
	m.metrics.OpenRooms.Dec()
}
