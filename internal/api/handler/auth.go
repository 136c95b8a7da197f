package handler

import (
	"errors"
	"fluxe/backend/internal/config"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var errNoAnonID = errors.New("token carries no anon_id")

// generateJWT генерує JWT з анонімним ID
func (h *Handler) generateJWT(anonID string) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": anonID,
		"exp":     time.Now().Add(config.AnonTokenTTL).Unix(),
		"iss":     config.AnonTokenIssuer, // Видавець
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

// validateAndGetAnonID перевіряє підпис і термін дії та повертає anon_id
func (h *Handler) validateAndGetAnonID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.AnonTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errNoAnonID
	}
	anonID, _ := claims["anon_id"].(string)
	if anonID == "" {
		return "", errNoAnonID
	}
	return anonID, nil
}

// GetAnonID створює AnonID та повертає JWT
func (h *Handler) GetAnonID(c *gin.Context) {
	anonID := uuid.NewString()

	token, err := h.generateJWT(anonID)
	if err != nil {
		h.Logger.Error("failed to sign anon token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}
