package display

import (
	"fmt"
	"sync"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/core/state/matches"
	"wcpredict/internal/core/notify"
	"wcpredict/internal/events"
	"wcpredict/internal/telemetry"
)

// matchState holds per-match display flags so transitions print once.
type matchState struct {
	announcedLive  bool
	announcedFinal bool
	lastScore      string
}

// Console renders match transitions, save states, and notifications as log
// lines. It is a pure observer; it never mutates domain state.
type Console struct {
	table *matches.Table

	mu   sync.Mutex
	seen map[int64]*matchState
}

func NewConsole(table *matches.Table) *Console {
	return &Console{
		table: table,
		seen:  make(map[int64]*matchState),
	}
}

// Subscribe attaches the console to every displayable event type.
func (c *Console) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventMatchPush, func(evt events.Event) {
		c.onMatch(evt.MatchID)
	})
	bus.Subscribe(events.EventMatchExpired, func(evt events.Event) {
		if m, ok := c.table.Match(evt.MatchID); ok {
			telemetry.Plainf("Kickoff: %s vs %s  (waiting for live status)", m.HomeTeam, m.AwayTeam)
		}
	})
	bus.Subscribe(events.EventSaveState, func(evt events.Event) {
		s, ok := evt.Payload.(events.SaveStateEvent)
		if !ok {
			return
		}
		c.onSaveState(s)
	})
	bus.Subscribe(events.EventNotification, func(evt events.Event) {
		n, ok := evt.Payload.(events.NotificationEvent)
		if !ok {
			return
		}
		telemetry.Plainf("Notification [%s] %s: %s", notify.Section(n.LinkURL), n.Title, n.Message)
	})
	bus.Subscribe(events.EventWSStatus, func(evt events.Event) {
		s, ok := evt.Payload.(events.WSStatusEvent)
		if !ok {
			return
		}
		if s.Connected {
			telemetry.Infof("push[%s]: connected", s.Channel)
		} else {
			telemetry.Warnf("push[%s]: disconnected", s.Channel)
		}
	})
}

func (c *Console) onMatch(id int64) {
	m, ok := c.table.Match(id)
	if !ok {
		return
	}

	c.mu.Lock()
	st, ok := c.seen[id]
	if !ok {
		st = &matchState{lastScore: scoreline(m)}
		c.seen[id] = st
		c.mu.Unlock()
		return
	}

	var lines []string
	if m.Status == api.StatusLive && !st.announcedLive {
		st.announcedLive = true
		lines = append(lines, fmt.Sprintf("LIVE  %s vs %s  [%s]", m.HomeTeam, m.AwayTeam, m.Venue))
	}
	if score := scoreline(m); score != st.lastScore {
		st.lastScore = score
		lines = append(lines, fmt.Sprintf("SCORE  %s %s %s", m.HomeTeam, score, m.AwayTeam))
	}
	if m.Status == api.StatusFinished && !st.announcedFinal {
		st.announcedFinal = true
		lines = append(lines, fmt.Sprintf("FT  %s %s %s", m.HomeTeam, scoreline(m), m.AwayTeam))
	}
	c.mu.Unlock()

	for _, line := range lines {
		telemetry.Plainf("%s", line)
	}
}

func (c *Console) onSaveState(s events.SaveStateEvent) {
	home, away := "?", "?"
	if m, ok := c.table.Match(s.MatchID); ok {
		home, away = m.HomeTeam, m.AwayTeam
	}
	switch s.State {
	case "saving":
		telemetry.Debugf("prediction %s vs %s: saving...", home, away)
	case "saved":
		telemetry.Infof("prediction %s vs %s: saved", home, away)
	case "error":
		telemetry.Warnf("prediction %s vs %s: save failed", home, away)
	}
}

func scoreline(m api.Match) string {
	fmtScore := func(s *int) string {
		if s == nil {
			return "-"
		}
		return fmt.Sprintf("%d", *s)
	}
	return fmtScore(m.HomeScore) + ":" + fmtScore(m.AwayScore)
}
