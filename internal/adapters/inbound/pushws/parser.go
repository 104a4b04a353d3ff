package pushws

import (
	"encoding/json"
	"fmt"
	"time"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/events"
	"wcpredict/internal/telemetry"
)

// matchFrame is the wire shape of a match push. The backend serializes status
// either as a bare enum string or as a {"name": "..."} wrapper depending on
// the emitting code path; both are normalized here, at the ingestion boundary.
type matchFrame struct {
	ID            int64           `json:"id"`
	HomeTeam      string          `json:"homeTeam"`
	HomeTeamCrest string          `json:"homeTeamCrest"`
	AwayTeam      string          `json:"awayTeam"`
	AwayTeamCrest string          `json:"awayTeamCrest"`
	Venue         string          `json:"venue"`
	Group         string          `json:"group"`
	MatchDate     *api.UTCTime    `json:"matchDate"`
	Status        json.RawMessage `json:"status"`
	HomeScore     *int            `json:"homeScore"`
	AwayScore     *int            `json:"awayScore"`
}

// ParseMatchUpdate decodes one match push body into a normalized event.
func ParseMatchUpdate(body json.RawMessage) (*events.MatchUpdateEvent, error) {
	var frame matchFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal match frame: %w", err)
	}
	if frame.ID == 0 {
		return nil, fmt.Errorf("match frame without id")
	}

	evt := &events.MatchUpdateEvent{
		ID:            frame.ID,
		HomeTeam:      frame.HomeTeam,
		HomeTeamCrest: frame.HomeTeamCrest,
		AwayTeam:      frame.AwayTeam,
		AwayTeamCrest: frame.AwayTeamCrest,
		Venue:         frame.Venue,
		Group:         frame.Group,
		Status:        normalizeStatus(frame.Status),
		HomeScore:     frame.HomeScore,
		AwayScore:     frame.AwayScore,
	}
	if frame.MatchDate != nil {
		evt.MatchDate = frame.MatchDate.Time
	}
	return evt, nil
}

// normalizeStatus accepts "LIVE" or {"name":"LIVE"} and returns the bare string.
func normalizeStatus(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var wrapped struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Name != "" {
		return wrapped.Name
	}
	telemetry.Warnf("pushws: unrecognized status shape %s", string(raw))
	return ""
}

// ParseNotification decodes one notification push body.
func ParseNotification(body json.RawMessage) (*events.NotificationEvent, error) {
	var n api.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	if n.ID == 0 {
		return nil, fmt.Errorf("notification without id")
	}
	return &events.NotificationEvent{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Icon:      n.Icon,
		LinkURL:   n.LinkURL,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Time,
	}, nil
}

// SubscribeMatchTopics wires the match update and status topics to the bus.
// Malformed payloads are logged and dropped, never delivered.
func SubscribeMatchTopics(c *Client, bus *events.Bus) {
	handler := func(body json.RawMessage) {
		evt, err := ParseMatchUpdate(body)
		if err != nil {
			telemetry.Metrics.PushParseErrors.Inc()
			telemetry.Warnf("pushws[matches]: %v", err)
			return
		}
		bus.Publish(events.Event{
			Type:      events.EventMatchPush,
			MatchID:   evt.ID,
			Timestamp: time.Now(),
			Payload:   *evt,
		})
	}
	c.Subscribe(TopicMatchUpdates, handler)
	c.Subscribe(TopicMatchStatus, handler)
}

// SubscribeNotifications wires the per-user notification queue to the bus.
func SubscribeNotifications(c *Client, bus *events.Bus) {
	c.Subscribe(QueueNotifications, func(body json.RawMessage) {
		evt, err := ParseNotification(body)
		if err != nil {
			telemetry.Metrics.PushParseErrors.Inc()
			telemetry.Warnf("pushws[notifications]: %v", err)
			return
		}
		telemetry.Metrics.NotificationsReceived.Inc()
		bus.Publish(events.Event{
			Type:      events.EventNotification,
			Timestamp: time.Now(),
			Payload:   *evt,
		})
	})
}
