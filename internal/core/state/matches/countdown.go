package matches

import (
	"fmt"
	"time"

	"wcpredict/internal/adapters/outbound/api"
)

// Countdown is the derived time-to-kickoff view for a SCHEDULED match.
// It is recomputed on demand and never stored.
type Countdown struct {
	Remaining time.Duration
	Days      int
	Hours     int
	Minutes   int
	Seconds   int
	Expired   bool
}

// Countdown derives the countdown for a match. ok is false when the match is
// unknown or no longer SCHEDULED (the timer disappears once the server flips
// the status).
func (t *Table) Countdown(id int64) (Countdown, bool) {
	t.mu.RLock()
	m, exists := t.matches[id]
	t.mu.RUnlock()

	if !exists || m.Status != api.StatusScheduled || m.MatchDate.IsZero() {
		return Countdown{}, false
	}

	diff := m.MatchDate.Sub(t.now())
	if diff <= 0 {
		return Countdown{Remaining: diff, Expired: true}, true
	}

	return Countdown{
		Remaining: diff,
		Days:      int(diff / (24 * time.Hour)),
		Hours:     int(diff/time.Hour) % 24,
		Minutes:   int(diff/time.Minute) % 60,
		Seconds:   int(diff/time.Second) % 60,
	}, true
}

func (c Countdown) String() string {
	switch {
	case c.Expired:
		return "starting..."
	case c.Days > 0:
		return fmt.Sprintf("%dd %dh %dm", c.Days, c.Hours, c.Minutes)
	case c.Hours > 0:
		return fmt.Sprintf("%dh %dm %ds", c.Hours, c.Minutes, c.Seconds)
	default:
		return fmt.Sprintf("%dm %ds", c.Minutes, c.Seconds)
	}
}
