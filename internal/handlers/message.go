package handlers

import (
	"log"
	"time"

	"pinboard-backend/internal/models"
	"pinboard-backend/internal/utils"

	"github.com/gofiber/websocket/v2"
)

// session is the per-connection state of the websocket read loop
type session struct {
	connID     string
	userID     string
	username   string
	currentPin string
}

func HandleMessage(m *RoomManager, s *session, msgType int, msg []byte) {
	if msgType != websocket.TextMessage {
		return
	}

	var wsMsg models.WSMessage
	if err := utils.SafeJSONParse(msg, &wsMsg); err != nil {
		utils.LogError(err, "JSON Parse")
		return
	}

	switch wsMsg.Event {
	case "join":
		handleJoin(m, s, wsMsg.PinID)
	case "leave":
		handleLeave(m, s)
	case "ping":
		m.SendTo(s.connID, models.WSMessage{Event: "pong", Timestamp: time.Now().UnixMilli()})
	default:
		log.Printf("[WS] unknown event: %s", wsMsg.Event)
	}
}

func handleJoin(m *RoomManager, s *session, pinID string) {
	if pinID == "" {
		m.SendTo(s.connID, models.WSMessage{Event: "error", Message: "pin_id is required"})
		return
	}

	// a connection watches one pin at a time
	if s.currentPin != "" {
		handleLeave(m, s)
	}

	if !m.Join(pinID, s.connID) {
		return
	}
	s.currentPin = pinID

	m.SendTo(s.connID, models.WSMessage{
		Event:     "joined",
		PinID:     pinID,
		Viewers:   m.RoomSize(pinID),
		Timestamp: time.Now().UnixMilli(),
	})

	m.Broadcast(pinID, models.WSMessage{
		Event:     "viewer_joined",
		PinID:     pinID,
		UserID:    s.userID,
		Username:  s.username,
		Viewers:   m.RoomSize(pinID),
		Timestamp: time.Now().UnixMilli(),
	}, s.connID)
}

func handleLeave(m *RoomManager, s *session) {
	if s.currentPin == "" {
		return
	}
	pinID := s.currentPin
	m.Leave(pinID, s.connID)
	s.currentPin = ""

	m.Broadcast(pinID, models.WSMessage{
		Event:     "viewer_left",
		PinID:     pinID,
		UserID:    s.userID,
		Username:  s.username,
		Viewers:   m.RoomSize(pinID),
		Timestamp: time.Now().UnixMilli(),
	}, s.connID)
}
