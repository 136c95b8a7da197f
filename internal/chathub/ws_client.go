package chathub

import (
	"context"
	"encoding/json"
	"fluxe/backend/internal/models"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // SDP offers run to several KB
)

// WebSocketClient реалізує інтерфейс chathub.Client
type WebSocketClient struct {
	ConnectionID string
	Conn         *websocket.Conn
	Hub          *ManagerService
	Send         chan models.Envelope
	Logger       *zap.Logger

	closeOnce sync.Once
}

// NewWebSocketClient wraps conn with a fresh outbound buffer of the given size.
func NewWebSocketClient(connectionID string, conn *websocket.Conn, hub *ManagerService, buffer int, logger *zap.Logger) *WebSocketClient {
	return &WebSocketClient{
		ConnectionID: connectionID,
		Conn:         conn,
		Hub:          hub,
		Send:         make(chan models.Envelope, buffer),
		Logger:       logger,
	}
}

func (c *WebSocketClient) GetConnectionID() string                { return c.ConnectionID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Envelope { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.Hub.Disconnect(context.Background(), c.ConnectionID)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger.Warn("error reading message", zap.String("conn", c.ConnectionID), zap.Error(err))
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.Logger.Warn("error decoding envelope", zap.String("conn", c.ConnectionID), zap.Error(err))
			env = models.Envelope{Type: ""}
		}

		c.Hub.Dispatch(ctx, c.ConnectionID, env)
	}
}

// writePump (маленька 'w') читає повідомлення з каналу Send і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(env); err != nil {
				c.Logger.Warn("error writing envelope", zap.String("conn", c.ConnectionID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
