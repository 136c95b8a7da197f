package chathub

import (
	"context"
	"errors"
	"fluxe/backend/internal/config"
	"fluxe/backend/internal/models"
	"fluxe/backend/internal/storage"
	"fmt"

	"go.uber.org/zap"
)

// Options configures a ManagerService.
type Options struct {
	Storage storage.Storage
	// Guard defaults to an in-memory guard when nil.
	Guard   Guard
	Logger  *zap.Logger
	Metrics *Metrics
}

// ManagerService is the hub: it wires the registry, queue, room manager, relay
// and reconciler together and dispatches inbound transport events.
// Each connection's events are dispatched from that connection's goroutine, so
// events of one client are handled in order while different clients interleave.
type ManagerService struct {
	Registry   *Registry
	Queue      *MatchQueue
	Rooms      *RoomManager
	Relay      *Relay
	Reconciler *Reconciler

	logger *zap.Logger
}

// NewManagerService builds a hub around the given storage.
func NewManagerService(opts Options) *ManagerService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewMemoryGuard(config.DefaultGuardTTL, config.DefaultGuardMaxEntries)
	}

	registry := NewRegistry(logger.Named("registry"), metrics)
	rooms := NewRoomManager(opts.Storage, registry, logger.Named("rooms"), metrics)
	queue := NewMatchQueue(rooms, registry.IsConnected, logger.Named("queue"), metrics)

	return &ManagerService{
		Registry:   registry,
		Queue:      queue,
		Rooms:      rooms,
		Relay:      NewRelay(rooms, registry, logger.Named("relay"), metrics),
		Reconciler: NewReconciler(queue, rooms, registry, guard, logger.Named("reconciler"), metrics),
		logger:     logger,
	}
}

// Connect registers client and puts its user in the queue.
// userID may be empty.
func (m *ManagerService) Connect(ctx context.Context, client Client, userID string) models.User {
	user := m.Registry.OnConnect(client, userID)
	m.logger.Info("user connected",
		zap.String("conn", user.ConnectionID),
		zap.String("user", user.ID))

	if _, err := m.Queue.Enqueue(ctx, user); err != nil {
		m.logger.Error("pairing failed", zap.String("conn", user.ConnectionID), zap.Error(err))
	}
	return user
}

// Disconnect handles transport loss for connectionID.
func (m *ManagerService) Disconnect(ctx context.Context, connectionID string) {
	if _, ok := m.Registry.OnDisconnect(connectionID); !ok {
		return
	}
	m.logger.Info("user disconnected", zap.String("conn", connectionID))

	outcome, err := m.Reconciler.Leave(ctx, connectionID, TriggerDisconnect)
	if err != nil {
		m.logger.Error("disconnect reconciliation failed", zap.String("conn", connectionID), zap.Error(err))
		return
	}
	m.logger.Debug("disconnect reconciled", zap.String("conn", connectionID), zap.Stringer("outcome", outcome))
}

// Dispatch handles one inbound envelope from connectionID. Failures are
// reported back to the sender as an error envelope and never propagate.
func (m *ManagerService) Dispatch(ctx context.Context, connectionID string, env models.Envelope) {
	var err error

	switch env.Type {
	case models.EventMessageToRelay:
		var req models.MessageToRelay
		if err = decode(env, &req); err == nil {
			err = m.Relay.RelayChat(ctx, connectionID, req)
		}
	case models.EventCallOffer:
		var req models.CallOffer
		if err = decode(env, &req); err == nil {
			err = m.Relay.RelayOffer(connectionID, req)
		}
	case models.EventCallAnswer:
		var req models.CallAnswer
		if err = decode(env, &req); err == nil {
			err = m.Relay.RelayAnswer(connectionID, req)
		}
	case models.EventRenegotiationNeeded:
		var req models.RenegotiationNeeded
		if err = decode(env, &req); err == nil {
			err = m.Relay.RelayNegotiationNeeded(connectionID, req)
		}
	case models.EventRenegotiationDone:
		var req models.RenegotiationDone
		if err = decode(env, &req); err == nil {
			err = m.Relay.RelayNegotiationDone(connectionID, req)
		}
	case models.EventUserSkip:
		var outcome Outcome
		outcome, err = m.Reconciler.Leave(ctx, connectionID, TriggerSkip)
		if err == nil {
			m.logger.Debug("skip reconciled", zap.String("conn", connectionID), zap.Stringer("outcome", outcome))
		}
	case models.EventFindPartner:
		err = m.findPartner(ctx, connectionID)
	default:
		err = errUnknownEvent
	}

	if err != nil {
		m.reportError(connectionID, env.Type, err)
	}
}

var (
	errBadRequest    = errors.New("bad request")
	errUnknownEvent  = fmt.Errorf("%w: unknown event type", errBadRequest)
	errAlreadyInRoom = errors.New("already in an open room")
)

func decode(env models.Envelope, v any) error {
	if err := env.Decode(v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", errBadRequest, env.Type, err)
	}
	return nil
}

// findPartner puts a connected user without an open room back in the queue.
func (m *ManagerService) findPartner(ctx context.Context, connectionID string) error {
	user, ok := m.Registry.Lookup(connectionID)
	if !ok {
		return nil
	}
	if _, _, inRoom := m.Rooms.PeerOf(connectionID); inRoom {
		return errAlreadyInRoom
	}
	_, err := m.Queue.Enqueue(ctx, user)
	return err
}

func (m *ManagerService) reportError(connectionID, eventType string, err error) {
	var code string
	switch {
	case errors.Is(err, ErrRelayTargetInvalid):
		code = models.ErrCodeRelayTargetInvalid
	case errors.Is(err, ErrNotInRoom):
		code = models.ErrCodeNotInRoom
	case errors.Is(err, errAlreadyInRoom):
		code = models.ErrCodeAlreadyInRoom
	case errors.Is(err, errBadRequest):
		code = models.ErrCodeBadRequest
	default:
		// Persistence and other internal failures stay log-only.
		m.logger.Error("event failed",
			zap.String("conn", connectionID),
			zap.String("type", eventType),
			zap.Error(err))
		return
	}

	m.logger.Warn("event rejected",
		zap.String("conn", connectionID),
		zap.String("type", eventType),
		zap.Error(err))

	env, encErr := models.NewEnvelope(models.NotifyError, models.ErrorNotice{Code: code, Detail: err.Error()})
	if encErr != nil {
		return
	}
	m.Registry.Send(connectionID, env)
}

// RecoverOpenRooms closes rooms a previous process left open.
func (m *ManagerService) RecoverOpenRooms(ctx context.Context) {
	m.logger.Info("starting open room recovery")
	if _, err := m.Rooms.RecoverOpenRooms(ctx); err != nil {
		m.logger.Error("open room recovery failed", zap.Error(err))
	}
}
