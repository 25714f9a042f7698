package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/nammatraffic/backend/internal/logger"
)

// UpgradeRequired gates websocket routes to genuine upgrade requests
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// StreamTraffic pushes the live update feed over a websocket. The client
// receives the current snapshot immediately, then every published update
// until it disconnects or the control loop stops.
func (h *Handler) StreamTraffic(conn *websocket.Conn) {
	defer conn.Close()

	id, updates := h.system.Subscribe()
	defer h.system.Unsubscribe(id)

	if err := conn.WriteJSON(h.system.Snapshot()); err != nil {
		return
	}

	for update := range updates {
		if err := conn.WriteJSON(update); err != nil {
			logger.L().Debug("websocket client dropped", "subscriber", id, "error", err)
			return
		}
	}
}
