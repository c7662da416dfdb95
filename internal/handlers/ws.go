package handlers

import (
	"log"

	"pinboard-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WebSocketHandler streams live events for the pin a client has joined
func WebSocketHandler(m *RoomManager) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Retrieve user info from locals (set by AuthMiddleware)
		userID, _ := c.Locals(localUserID).(string)
		username, _ := c.Locals(localUsername).(string)

		s := &session{
			connID:   uuid.New().String(),
			userID:   userID,
			username: username,
		}
		m.RegisterConnection(s.connID, userID, username, c)

		defer func() {
			handleLeave(m, s)
			m.UnregisterConnection(s.connID)
			c.Close()
		}()

		m.SendTo(s.connID, models.WSMessage{
			Event:   "connected",
			Message: "Send {\"event\":\"join\",\"pin_id\":\"...\"} to follow a pin",
		})

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[WS] read error: %v", err)
				}
				break
			}

			HandleMessage(m, s, msgType, msg)
		}
	})
}

// WSUpgradeMiddleware rejects plain HTTP requests to the websocket route
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
