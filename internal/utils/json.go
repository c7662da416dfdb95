package utils

import (
	"encoding/json"
	"log"
)

// JSONWriter is implemented by *websocket.Conn
type JSONWriter interface {
	WriteJSON(v interface{}) error
}

// SafeJSONParse parses JSON safely
func SafeJSONParse(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// SendJSON writes a JSON payload to a WebSocket connection.
// Fiber's websocket connection is not safe for concurrent writes; callers
// hold the connection's write lock (see handlers.RoomManager).
func SendJSON(w JSONWriter, payload interface{}) error {
	return w.WriteJSON(payload)
}

// LogError logs an error if it's not nil
func LogError(err error, context string) {
	if err != nil {
		log.Printf("Error [%s]: %v", context, err)
	}
}
