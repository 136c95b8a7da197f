package handler

import (
	"fluxe/backend/internal/chathub"
	"fluxe/backend/internal/config"

	"go.uber.org/zap"
)

// Handler містить посилання на ChatHub
type Handler struct {
	Hub        *chathub.ManagerService
	Logger     *zap.Logger
	secret     []byte
	sendBuffer int
}

func NewHandler(hub *chathub.ManagerService, cfg config.Config, logger *zap.Logger) *Handler {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = config.DefaultSendBuffer
	}
	return &Handler{
		Hub:        hub,
		Logger:     logger,
		secret:     []byte(cfg.JWTSecret),
		sendBuffer: buffer,
	}
}
