package handler

import (
	"fluxe/backend/internal/chathub"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket.
// A valid ?token= keeps the anon id issued by /anonid; otherwise the user gets a fresh one.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	var userID string
	if token := c.Query("token"); token != "" {
		anonID, err := h.validateAndGetAnonID(token)
		if err != nil {
			h.Logger.Debug("ignoring invalid anon token", zap.Error(err))
		} else {
			userID = anonID
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connectionID := uuid.NewString()
	client := chathub.NewWebSocketClient(connectionID, conn, h.Hub, h.sendBuffer, h.Logger.Named("ws"))

	// 1. Реєстрація клієнта та постановка в чергу
	h.Hub.Connect(c.Request.Context(), client, userID)

	// 2. Запуск клієнта. Disconnect з readPump завжди йде після Connect.
	client.Run()
}
