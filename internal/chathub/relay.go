package chathub

import (
	"context"
	"errors"
	"fluxe/backend/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrRelayTargetInvalid means the named recipient is not the live peer of
	// the sender's open room.
	ErrRelayTargetInvalid = errors.New("relay target is not a live peer")
	// ErrNotInRoom means the sender has no open room.
	ErrNotInRoom = errors.New("sender is not in an open room")
)

// Relay forwards signaling and chat payloads between the two participants of
// an open room. Payloads are passed through untouched.
type Relay struct {
	rooms    *RoomManager
	notifier Notifier
	logger   *zap.Logger
	metrics  *Metrics
}

func NewRelay(rooms *RoomManager, notifier Notifier, logger *zap.Logger, metrics *Metrics) *Relay {
	return &Relay{rooms: rooms, notifier: notifier, logger: logger, metrics: metrics}
}

// RelayChat delivers the message text to req.To and then appends it to the
// room's chat log.
func (r *Relay) RelayChat(ctx context.Context, from string, req models.MessageToRelay) error {
	roomID, to, err := r.target(from, req.RoomID, req.To)
	if err == nil {
		err = r.deliver(to, models.NotifyRelayedMessage, models.RelayedMessage{Text: req.Message})
	}
	if err != nil {
		return r.reject(models.EventMessageToRelay, from, err)
	}
	r.metrics.Relayed.WithLabelValues(models.EventMessageToRelay).Inc()

	if err := r.rooms.AppendChat(ctx, roomID, req.Message); err != nil {
		r.logger.Error("failed to append chat",
			zap.String("room", roomID),
			zap.Error(err))
	}
	return nil
}

// RelayOffer sends a session offer to the other participant of req.RoomID.
func (r *Relay) RelayOffer(from string, req models.CallOffer) error {
	return r.forward(models.EventCallOffer, from, req.RoomID, "", models.NotifyIncomingCall,
		models.IncomingCall{From: from, Offer: req.Offer})
}

func (r *Relay) RelayAnswer(from string, req models.CallAnswer) error {
	return r.forward(models.EventCallAnswer, from, "", req.To, models.NotifyCallAnswered,
		models.CallAnswered{Answer: req.Answer})
}

func (r *Relay) RelayNegotiationNeeded(from string, req models.RenegotiationNeeded) error {
	return r.forward(models.EventRenegotiationNeeded, from, "", req.To, models.NotifyRenegotiationNeeded,
		models.RenegotiationRequest{From: from, Offer: req.Offer})
}

func (r *Relay) RelayNegotiationDone(from string, req models.RenegotiationDone) error {
	return r.forward(models.EventRenegotiationDone, from, "", req.To, models.NotifyRenegotiationComplete,
		models.RenegotiationComplete{From: from, Answer: req.Answer})
}

func (r *Relay) forward(kind, from, roomID, to, notify string, payload any) error {
	_, target, err := r.target(from, roomID, to)
	if err == nil {
		err = r.deliver(target, notify, payload)
	}
	if err != nil {
		return r.reject(kind, from, err)
	}
	r.metrics.Relayed.WithLabelValues(kind).Inc()
	r.logger.Debug("relayed", zap.String("kind", kind), zap.String("from", from), zap.String("to", target))
	return nil
}

// target resolves the recipient of a relay from the sender's open room.
// roomID and to are optional; when set they must match that room and its peer.
func (r *Relay) target(from, roomID, to string) (string, string, error) {
	openRoomID, peer, ok := r.rooms.PeerOf(from)
	if !ok {
		return "", "", ErrNotInRoom
	}
	if roomID != "" && roomID != openRoomID {
		return "", "", ErrRelayTargetInvalid
	}
	if to != "" && to != peer.ConnectionID {
		return "", "", ErrRelayTargetInvalid
	}
	return openRoomID, peer.ConnectionID, nil
}

func (r *Relay) deliver(to, notify string, payload any) error {
	env, err := models.NewEnvelope(notify, payload)
	if err != nil {
		return err
	}
	if !r.notifier.Send(to, env) {
		return ErrRelayTargetInvalid
	}
	return nil
}

func (r *Relay) reject(kind, from string, err error) error {
	r.metrics.RelayRejected.WithLabelValues(kind).Inc()
	r.logger.Debug("relay rejected",
		zap.String("kind", kind),
		zap.String("from", from),
		zap.Error(err))
	return err
}
