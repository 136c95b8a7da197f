package chathub_test

import (
	"context"
	"encoding/json"
	"fluxe/backend/internal/chathub"
	"fluxe/backend/internal/models"
	"fluxe/backend/internal/storage"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockClient is a test double for the chathub.Client interface.
type MockClient struct {
	connID string
	send   chan models.Envelope

	mu     sync.Mutex
	closed bool
}

func newMockClient(connID string) *MockClient {
	return &MockClient{
		connID: connID,
		send:   make(chan models.Envelope, 64), // Buffered to prevent blocking in tests
	}
}

func (c *MockClient) GetConnectionID() string                { return c.connID }
func (c *MockClient) GetSendChannel() chan<- models.Envelope { return c.send }
func (c *MockClient) Run()                                   {}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// DrainMessages empties the send channel.
func (c *MockClient) DrainMessages() []models.Envelope {
	var envs []models.Envelope
	for {
		select {
		case env := <-c.send:
			envs = append(envs, env)
		default:
			return envs
		}
	}
}

// filterType returns the envelopes of the given type.
func filterType(envs []models.Envelope, kind string) []models.Envelope {
	var out []models.Envelope
	for _, env := range envs {
		if env.Type == kind {
			out = append(out, env)
		}
	}
	return out
}

func payloadOf[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Payload, &v))
	return v
}

// MockStorage is a testify mock of storage.Storage for failure paths.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveRoom(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStorage) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) FindRoomByParticipant(ctx context.Context, connectionID string) (*models.Room, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) AppendChat(ctx context.Context, roomID string, msg models.ChatMessage) error {
	args := m.Called(ctx, roomID, msg)
	return args.Error(0)
}

func (m *MockStorage) GetOpenRoomIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

var _ storage.Storage = (*MockStorage)(nil)

// Helper function to create a test hub with minimal setup
func createTestHub(s storage.Storage, guard chathub.Guard) (*chathub.ManagerService, *chathub.Metrics) {
	metrics := chathub.NewMetrics(prometheus.NewRegistry())
	hub := chathub.NewManagerService(chathub.Options{
		Storage: s,
		Guard:   guard,
		Logger:  zap.NewNop(),
		Metrics: metrics,
	})
	return hub, metrics
}

func connect(hub *chathub.ManagerService, connID string) *MockClient {
	c := newMockClient(connID)
	hub.Connect(context.Background(), c, "")
	return c
}

// matchedPair connects x then y and returns both clients with the shared room.
func matchedPair(t *testing.T, hub *chathub.ManagerService, x, y string) (*MockClient, *MockClient, models.Matched) {
	t.Helper()
	cx := connect(hub, x)
	cy := connect(hub, y)

	envs := filterType(cx.DrainMessages(), models.NotifyMatched)
	require.Len(t, envs, 1)
	matched := payloadOf[models.Matched](t, envs[0])
	require.Len(t, filterType(cy.DrainMessages(), models.NotifyMatched), 1)
	return cx, cy, matched
}
