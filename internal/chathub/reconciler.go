package chathub

import (
	"context"
	"errors"
	"fluxe/backend/internal/models"
	"fluxe/backend/internal/storage"

	"go.uber.org/zap"
)

// Trigger names why a participant is leaving.
type Trigger string

const (
	TriggerSkip       Trigger = "skip"
	TriggerDisconnect Trigger = "disconnect"
)

// Outcome is what a Leave call did.
type Outcome int

const (
	// OutcomeNoop: the user was neither queued nor in a room.
	OutcomeNoop Outcome = iota
	// OutcomeDequeued: the user was still waiting and was removed from the queue.
	OutcomeDequeued
	// OutcomeClosed: this call closed the room and notified the peer.
	OutcomeClosed
	// OutcomeAlreadyClosed: another leave closed the room first.
	OutcomeAlreadyClosed
	// OutcomeSuppressed: the guard had already recorded this room as resolved.
	OutcomeSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDequeued:
		return "dequeued"
	case OutcomeClosed:
		return "closed"
	case OutcomeAlreadyClosed:
		return "already-closed"
	case OutcomeSuppressed:
		return "suppressed"
	default:
		return "noop"
	}
}

// Reconciler turns skip and transport-loss events into one outcome: the room
// closes and the other participant is told, exactly once.
type Reconciler struct {
	queue    *MatchQueue
	rooms    *RoomManager
	notifier Notifier
	guard    Guard
	logger   *zap.Logger
	metrics  *Metrics
}

func NewReconciler(queue *MatchQueue, rooms *RoomManager, notifier Notifier, guard Guard, logger *zap.Logger, metrics *Metrics) *Reconciler {
	return &Reconciler{
		queue:    queue,
		rooms:    rooms,
		notifier: notifier,
		guard:    guard,
		logger:   logger,
		metrics:  metrics,
	}
}

// Leave resolves connectionID leaving. On TriggerSkip the leaver is also told
// that it left.
func (r *Reconciler) Leave(ctx context.Context, connectionID string, trigger Trigger) (Outcome, error) {
	// The queue is checked first: pairing removes users from the queue and
	// indexes their room under the same lock, so a user is always in one or
	// the other.
	if r.queue.Remove(connectionID) {
		r.logger.Info("user left the queue", zap.String("conn", connectionID))
		return OutcomeDequeued, nil
	}

	room, err := r.rooms.FindRoomByParticipant(ctx, connectionID)
	if errors.Is(err, storage.ErrRoomNotFound) {
		return OutcomeNoop, nil
	}
	if err != nil {
		return OutcomeNoop, err
	}
	if !room.IsOpen() {
		return OutcomeAlreadyClosed, nil
	}

	seen, err := r.guard.Seen(ctx, room.ID)
	if err != nil {
		r.logger.Warn("guard lookup failed", zap.String("room", room.ID), zap.Error(err))
	}
	if seen {
		r.metrics.PeerLeftSuppressed.Inc()
		r.logger.Info("duplicate leave suppressed", zap.String("room", room.ID), zap.String("conn", connectionID))
		return OutcomeSuppressed, nil
	}

	closed, err := r.rooms.CloseRoom(ctx, room)
	if err != nil {
		return OutcomeNoop, err
	}
	if !closed {
		return OutcomeAlreadyClosed, nil
	}
	if err := r.guard.Remember(ctx, room.ID); err != nil {
		r.logger.Warn("guard record failed", zap.String("room", room.ID), zap.Error(err))
	}
	r.metrics.RoomsClosed.WithLabelValues(string(trigger)).Inc()

	peer, _ := room.Peer(connectionID)
	r.notifyPeerLeft(peer.ConnectionID, models.WhoPeer)
	if trigger == TriggerSkip {
		r.notifyPeerLeft(connectionID, models.WhoYou)
	}

	r.logger.Info("room closed",
		zap.String("room", room.ID),
		zap.String("leaver", connectionID),
		zap.String("survivor", peer.ConnectionID),
		zap.String("trigger", string(trigger)))
	return OutcomeClosed, nil
}

func (r *Reconciler) notifyPeerLeft(connectionID, who string) {
	env, err := models.NewEnvelope(models.NotifyPeerLeft, models.PeerLeft{Who: who})
	if err != nil {
		return
	}
	if !r.notifier.Send(connectionID, env) {
		r.logger.Debug("peer-left undeliverable", zap.String("conn", connectionID))
	}
}
