package events

import "time"

// Event is the envelope that flows through the event bus.
// Every domain event (push update, status change, notification) is wrapped in one.
type Event struct {
	Type      EventType
	MatchID   int64 // zero when the event is not match-scoped
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Push feed events
	EventMatchPush    EventType = "match_push"
	EventNotification EventType = "notification"
	EventWSStatus     EventType = "ws_status"
	// Match table events
	EventMatchChanged EventType = "match_changed"
	EventMatchExpired EventType = "match_expired"
	// Prediction sync events
	EventSaveState EventType = "save_state"
)
