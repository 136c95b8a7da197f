package chathub

import (
	"fluxe/backend/internal/models"
	"sync"

	"go.uber.org/zap"
)

type registration struct {
	user   models.User
	client Client
}

// Registry maps each live connection to its User and Client.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration

	logger  *zap.Logger
	metrics *Metrics
}

func NewRegistry(logger *zap.Logger, metrics *Metrics) *Registry {
	return &Registry{
		entries: make(map[string]registration),
		logger:  logger,
		metrics: metrics,
	}
}

// OnConnect records a new User for client. userID may be empty, in which case
// a fresh identifier is generated.
func (r *Registry) OnConnect(client Client, userID string) models.User {
	user := models.NewUser(client.GetConnectionID(), userID)

	r.mu.Lock()
	r.entries[user.ConnectionID] = registration{user: user, client: client}
	r.mu.Unlock()

	r.metrics.Connections.Inc()
	return user
}

// OnDisconnect removes the connection and closes its client.
// It is a no-op returning false when the connection is not registered.
func (r *Registry) OnDisconnect(connectionID string) (models.User, bool) {
	r.mu.Lock()
	reg, ok := r.entries[connectionID]
	if ok {
		delete(r.entries, connectionID)
	}
	r.mu.Unlock()

	if !ok {
		return models.User{}, false
	}
	// Send holds the read lock while writing to the channel, so no writer can
	// still see this client once it is out of the map.
	reg.client.Close()
	r.metrics.Connections.Dec()
	return reg.user, true
}

func (r *Registry) Lookup(connectionID string) (models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[connectionID]
	return reg.user, ok
}

func (r *Registry) IsConnected(connectionID string) bool {
	_, ok := r.Lookup(connectionID)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Send delivers env without blocking. A full buffer drops the envelope.
func (r *Registry) Send(connectionID string, env models.Envelope) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[connectionID]
	if !ok {
		return false
	}
	select {
	case reg.client.GetSendChannel() <- env:
		return true
	default:
		r.logger.Warn("send buffer full, dropping envelope",
			zap.String("conn", connectionID),
			zap.String("type", env.Type))
		return false
	}
}
