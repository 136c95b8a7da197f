package chathub

import (
	"context"
	"fluxe/backend/internal/models"
	"sync"

	"go.uber.org/zap"
)

// Pairer turns two dequeued users into a room. ReserveRoom runs under the
// queue lock and must not block; OpenRoom runs after the lock is released.
type Pairer interface {
	ReserveRoom(a, b models.User) *models.Room
	OpenRoom(ctx context.Context, room *models.Room) error
}

// MatchQueue is the FIFO of users waiting for a partner.
type MatchQueue struct {
	mu      sync.Mutex
	waiting []models.User

	pairer Pairer
	// alive reports whether a connection is still registered. Entries that
	// are no longer alive are skipped when pairing.
	alive func(connectionID string) bool

	logger  *zap.Logger
	metrics *Metrics
}

func NewMatchQueue(pairer Pairer, alive func(string) bool, logger *zap.Logger, metrics *Metrics) *MatchQueue {
	if alive == nil {
		alive = func(string) bool { return true }
	}
	return &MatchQueue{
		pairer:  pairer,
		alive:   alive,
		logger:  logger,
		metrics: metrics,
	}
}

// Enqueue appends user to the tail and, if two users are waiting, pairs the
// two oldest. It returns the room created, or nil if the user keeps waiting.
// A user already waiting, or no longer connected, is not added.
func (q *MatchQueue) Enqueue(ctx context.Context, user models.User) (*models.Room, error) {
	q.mu.Lock()
	q.pruneLocked()
	if q.indexLocked(user.ConnectionID) >= 0 || !q.alive(user.ConnectionID) {
		q.mu.Unlock()
		return nil, nil
	}
	q.waiting = append(q.waiting, user)
	q.logger.Info("user queued",
		zap.String("conn", user.ConnectionID),
		zap.Int("waiting", len(q.waiting)))

	if len(q.waiting) < 2 {
		q.metrics.QueueLength.Set(float64(len(q.waiting)))
		q.mu.Unlock()
		return nil, nil
	}

	a, b := q.waiting[0], q.waiting[1]
	q.waiting[0], q.waiting[1] = models.User{}, models.User{}
	q.waiting = q.waiting[2:]
	room := q.pairer.ReserveRoom(a, b)
	q.metrics.QueueLength.Set(float64(len(q.waiting)))
	q.mu.Unlock()

	if err := q.pairer.OpenRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Remove drops a user still waiting. It reports whether the user was found.
func (q *MatchQueue) Remove(connectionID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(connectionID)
	if i < 0 {
		return false
	}
	q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
	q.metrics.QueueLength.Set(float64(len(q.waiting)))
	return true
}

func (q *MatchQueue) Contains(connectionID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(connectionID) >= 0
}

func (q *MatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Snapshot returns the waiting users, oldest first.
func (q *MatchQueue) Snapshot() []models.User {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.User, len(q.waiting))
	copy(out, q.waiting)
	return out
}

func (q *MatchQueue) indexLocked(connectionID string) int {
	for i, u := range q.waiting {
		if u.ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

func (q *MatchQueue) pruneLocked() {
	kept := q.waiting[:0]
	for _, u := range q.waiting {
		if q.alive(u.ConnectionID) {
			kept = append(kept, u)
			continue
		}
		q.logger.Debug("pruned departed user from queue", zap.String("conn", u.ConnectionID))
	}
	for i := len(kept); i < len(q.waiting); i++ {
		q.waiting[i] = models.User{}
	}
	q.waiting = kept
}
