package pushws

import "encoding/json"

// Destinations served by the backend broker.
const (
	TopicMatchUpdates  = "/topic/matches/update"
	TopicMatchStatus   = "/topic/matches/status"
	QueueNotifications = "/user/queue/notifications"
)

const (
	frameSubscribe = "subscribe"
	frameMessage   = "message"
)

// subscribeFrame is sent by the client to register interest in a destination.
type subscribeFrame struct {
	Type        string `json:"type"`
	ID          int    `json:"id"`
	Destination string `json:"destination"`
}

// messageFrame is the envelope for every server push.
type messageFrame struct {
	Type        string          `json:"type"`
	Destination string          `json:"destination"`
	Body        json.RawMessage `json:"body"`
}
