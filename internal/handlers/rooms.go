package handlers

import (
	"sync"

	"pinboard-backend/internal/models"
	"pinboard-backend/internal/utils"
)

// client is one websocket connection. Writes are serialized by mu.
type client struct {
	conn   utils.JSONWriter
	userID string
	name   string
	mu     sync.Mutex
}

func (c *client) send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return utils.SendJSON(c.conn, message)
}

// RoomManager tracks websocket connections and the pin rooms they watch.
// It implements services.Notifier.
type RoomManager struct {
	// pinID -> connectionID -> client
	rooms   map[string]map[string]*client
	clients map[string]*client
	mu      sync.RWMutex
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:   make(map[string]map[string]*client),
		clients: make(map[string]*client),
	}
}

// RegisterConnection stores a new connection. It returns true if this is the
// user's first open connection.
func (m *RoomManager) RegisterConnection(connID, userID, name string, conn utils.JSONWriter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasOnline := m.onlineLocked(userID)
	m.clients[connID] = &client{conn: conn, userID: userID, name: name}
	return !wasOnline
}

// UnregisterConnection drops the connection from every room. It returns true
// if the user has no connections left.
func (m *RoomManager) UnregisterConnection(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl, ok := m.clients[connID]
	if !ok {
		return false
	}
	for pinID, conns := range m.rooms {
		if _, ok := conns[connID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(m.rooms, pinID)
			}
		}
	}
	delete(m.clients, connID)

	return !m.onlineLocked(cl.userID)
}

// Join subscribes a registered connection to a pin's events
func (m *RoomManager) Join(pinID, connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl, ok := m.clients[connID]
	if !ok {
		return false
	}
	if _, ok := m.rooms[pinID]; !ok {
		m.rooms[pinID] = make(map[string]*client)
	}
	m.rooms[pinID][connID] = cl
	return true
}

func (m *RoomManager) Leave(pinID, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conns, ok := m.rooms[pinID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.rooms, pinID)
		}
	}
}

// Broadcast sends message to everyone watching pinID except excludeConnID
func (m *RoomManager) Broadcast(pinID string, message interface{}, excludeConnID string) {
	m.mu.RLock()
	targets := make([]*client, 0, len(m.rooms[pinID]))
	for id, cl := range m.rooms[pinID] {
		if id != excludeConnID {
			targets = append(targets, cl)
		}
	}
	m.mu.RUnlock()

	// the read loop notices broken connections and unregisters them
	for _, cl := range targets {
		if err := cl.send(message); err != nil {
			utils.LogError(err, "Broadcast")
		}
	}
}

// SendTo writes directly to one connection
func (m *RoomManager) SendTo(connID string, message interface{}) {
	m.mu.RLock()
	cl, ok := m.clients[connID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if err := cl.send(message); err != nil {
		utils.LogError(err, "SendTo")
	}
}

// PublishPinEvent fans a service event out to the pin's room
func (m *RoomManager) PublishPinEvent(pinID string, msg models.WSMessage) {
	m.Broadcast(pinID, msg, "")
}

func (m *RoomManager) RoomSize(pinID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[pinID])
}

// IsUserOnline checks if any active connection belongs to the given user
func (m *RoomManager) IsUserOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onlineLocked(userID)
}

func (m *RoomManager) onlineLocked(userID string) bool {
	for _, cl := range m.clients {
		if cl.userID == userID {
			return true
		}
	}
	return false
}

// CountUserConnections returns the number of active connections for a user
func (m *RoomManager) CountUserConnections(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, cl := range m.clients {
		if cl.userID == userID {
			count++
		}
	}
	return count
}
