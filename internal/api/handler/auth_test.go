package handler

import (
	"encoding/json"
	"fluxe/backend/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthHandler(secret string) *Handler {
	return NewHandler(nil, config.Config{JWTSecret: secret}, zap.NewNop())
}

// TestGetAnonID_TokenRoundTrip verifies the issued token validates back to the same anon id.
func TestGetAnonID_TokenRoundTrip(t *testing.T) {
	// Arrange
	gin.SetMode(gin.TestMode)
	h := newAuthHandler("test-secret")
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/anonid", nil)

	// Act
	h.GetAnonID(c)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token  string `json:"token"`
		AnonID string `json:"anon_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.AnonID)

	anonID, err := h.validateAndGetAnonID(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.AnonID, anonID)
}

// TestValidateAndGetAnonID_Rejects verifies tokens with a wrong key, expired or without anon_id are refused.
func TestValidateAndGetAnonID_Rejects(t *testing.T) {
	h := newAuthHandler("test-secret")

	sign := func(secret string, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"anon_id": "anon-1",
			"exp":     time.Now().Add(time.Hour).Unix(),
			"iss":     config.AnonTokenIssuer,
		}
	}

	expired := valid()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	noID := valid()
	delete(noID, "anon_id")
	wrongIssuer := valid()
	wrongIssuer["iss"] = "someone-else"

	cases := map[string]string{
		"wrong secret": sign("other-secret", valid()),
		"expired":      sign("test-secret", expired),
		"no anon id":   sign("test-secret", noID),
		"wrong issuer": sign("test-secret", wrongIssuer),
		"garbage":      "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.validateAndGetAnonID(token)
			assert.Error(t, err)
		})
	}

	id, err := h.validateAndGetAnonID(sign("test-secret", valid()))
	require.NoError(t, err)
	assert.Equal(t, "anon-1", id)
}
