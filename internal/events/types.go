package events

import "time"

// MatchUpdateEvent is published for every match frame received on the push
// channel, after status normalization. Optional fields are pointers so a
// partial push can be shallow-merged without clobbering cached values.
type MatchUpdateEvent struct {
	ID            int64
	HomeTeam      string
	HomeTeamCrest string
	AwayTeam      string
	AwayTeamCrest string
	Venue         string
	Group         string
	MatchDate     time.Time // zero when the push omits it
	Status        string    // "SCHEDULED", "LIVE", "FINISHED", "CANCELLED"; "" when omitted
	HomeScore     *int
	AwayScore     *int
}

// NotificationEvent is published when the per-user queue delivers a notification.
type NotificationEvent struct {
	ID        int64
	Type      string
	Title     string
	Message   string
	Icon      string
	LinkURL   string
	Read      bool
	CreatedAt time.Time
}

// SaveStateEvent signals a prediction save-state transition for one match.
type SaveStateEvent struct {
	MatchID int64
	State   string // "saving", "saved", "error", "idle"
}

// WSStatusEvent signals push channel connect/disconnect.
type WSStatusEvent struct {
	Channel   string // "matches" or "notifications"
	Connected bool
}
