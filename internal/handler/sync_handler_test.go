package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatproxy-be/internal/pkg/logger"
	internalWS "chatproxy-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWsHandshake(t *testing.T) {
	log := logger.NewNopLogger()
	h := NewSyncHandler(internalWS.NewHub(nil, log), "secret", log)

	app := fiber.New()
	h.RegisterRoutes(app.Group("/api"))

	valid, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1"}).SignedString([]byte("other"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing token", "", fiber.StatusUnauthorized},
		{"forged token", "?token=" + forged, fiber.StatusUnauthorized},
		{"plain http request", "?token=" + valid, fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chatflow/v1/ws"+tt.query, nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
