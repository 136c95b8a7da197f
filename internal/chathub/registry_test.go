package chathub_test

import (
	"fluxe/backend/internal/chathub"
	"fluxe/backend/internal/models"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestRegistry_ConnectAndDisconnect verifies that a connection is tracked until it disconnects once.
func TestRegistry_ConnectAndDisconnect(t *testing.T) {
	// Arrange
	metrics := chathub.NewMetrics(nil)
	registry := chathub.NewRegistry(zap.NewNop(), metrics)
	client := newMockClient("conn-1")

	// Act
	u := registry.OnConnect(client, "")

	// Assert
	assert.Equal(t, "conn-1", u.ConnectionID)
	assert.NotEmpty(t, u.ID)
	assert.True(t, registry.IsConnected("conn-1"))
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Connections))

	got, ok := registry.OnDisconnect("conn-1")
	require.True(t, ok)
	assert.Equal(t, u, got)
	assert.True(t, client.IsClosed())
	assert.False(t, registry.IsConnected("conn-1"))

	_, ok = registry.OnDisconnect("conn-1")
	assert.False(t, ok, "second disconnect is a no-op")
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Connections))
}

// TestRegistry_KeepsProvidedUserID verifies that a supplied user id is kept.
func TestRegistry_KeepsProvidedUserID(t *testing.T) {
	registry := chathub.NewRegistry(zap.NewNop(), chathub.NewMetrics(nil))

	u := registry.OnConnect(newMockClient("conn-1"), "anon-42")

	assert.Equal(t, "anon-42", u.ID)
	looked, ok := registry.Lookup("conn-1")
	require.True(t, ok)
	assert.Equal(t, u, looked)
}

// TestRegistry_Send verifies delivery to live connections only and that a full buffer drops instead of blocking.
func TestRegistry_Send(t *testing.T) {
	registry := chathub.NewRegistry(zap.NewNop(), chathub.NewMetrics(nil))
	client := &MockClient{connID: "slow", send: make(chan models.Envelope, 1)}
	registry.OnConnect(client, "")

	env, err := models.NewEnvelope(models.NotifyRelayedMessage, models.RelayedMessage{Text: "hi"})
	require.NoError(t, err)

	assert.True(t, registry.Send("slow", env))
	assert.False(t, registry.Send("slow", env), "buffer is full")
	assert.False(t, registry.Send("unknown", env))

	assert.Len(t, client.DrainMessages(), 1)
}
