package models

// Live pin event names
const (
	EventCommentAdded   = "comment_added"
	EventCommentDeleted = "comment_deleted"
	EventPinUpdated     = "pin_updated"
	EventPinDeleted     = "pin_deleted"
)

// WebSocket Message Structure
type WSMessage struct {
	Event     string   `json:"event"` // "join", "leave", "ping"
	PinID     string   `json:"pin_id,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	Comment   *Comment `json:"comment,omitempty"`
	Pin       *Pin     `json:"pin,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
	Message   string   `json:"message,omitempty"`
	Viewers   int      `json:"viewers,omitempty"`
}
