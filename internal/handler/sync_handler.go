package handler

import (
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/internal/pkg/serverutils"
	internalWS "chatproxy-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SyncHandler upgrades authenticated clients to a websocket that receives
// chatflow sync notifications.
type SyncHandler struct {
	hub       *internalWS.Hub
	jwtSecret []byte
	logger    logger.ILogger
}

func NewSyncHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *SyncHandler {
	return &SyncHandler{
		hub:       hub,
		jwtSecret: []byte(jwtSecret),
		logger:    log,
	}
}

// ServeWs authenticates the handshake (query "token" for browsers, bearer
// header otherwise) and hands the connection to the hub.
func (h *SyncHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("Missing token (query 'token' or Authorization header)", nil))
	}

	userId, _, err := serverutils.ParseToken(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("SYNC_WS", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("Invalid token", nil))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SYNC_WS", "Starting websocket session", map[string]interface{}{"user_id": userId})
		internalWS.ServeWs(h.hub, conn, userId)
		h.logger.Info("SYNC_WS", "Websocket session ended", map[string]interface{}{"user_id": userId})
	})(c)
}

func (h *SyncHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/chatflow/v1/ws", h.ServeWs)
}
