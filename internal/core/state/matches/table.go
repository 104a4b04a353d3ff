package matches

import (
	"context"
	"sort"
	"sync"
	"time"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/events"
	"wcpredict/internal/telemetry"
)

// Lister fetches the full match listing from the backend.
type Lister interface {
	ListMatches(ctx context.Context) ([]api.Match, error)
}

const (
	baselinePollEvery   = 30 // seconds between unconditional refreshes
	aggressivePollEvery = 2  // seconds between refreshes inside the kickoff window
	kickoffWindowBefore = 5 * time.Minute
	kickoffWindowAfter  = 10 * time.Minute
)

// Table is the single source of truth for the match list as observed by the
// client. Only the Table mutates it; readers get copies.
//
// Status flips from SCHEDULED to LIVE happen on the server's own scheduler
// cycle, so around kickoff the table polls aggressively to observe the flip
// promptly. The prediction lock depends on it.
type Table struct {
	lister    Lister
	bus       *events.Bus
	now       func() time.Time
	onExpired func(matchID int64)

	baselineEvery int // seconds between unconditional refreshes

	mu       sync.RWMutex
	matches  map[int64]api.Match
	episodes map[int64]bool // expiry callback fired for the current episode
}

func NewTable(lister Lister, bus *events.Bus) *Table {
	return &Table{
		lister:        lister,
		bus:           bus,
		now:           time.Now,
		baselineEvery: baselinePollEvery,
		matches:       make(map[int64]api.Match),
		episodes:      make(map[int64]bool),
	}
}

// SetPollInterval overrides the baseline refresh cadence. Sub-second values
// are ignored; the kickoff-window cadence is not affected.
func (t *Table) SetPollInterval(d time.Duration) {
	if secs := int(d.Seconds()); secs > 0 {
		t.baselineEvery = secs
	}
}

// SetExpiryCallback registers the callback invoked once per expiry episode,
// when a SCHEDULED match's countdown reaches zero.
func (t *Table) SetExpiryCallback(fn func(matchID int64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpired = fn
}

// Refresh replaces the table with the backend's current match listing.
// Matches observed to have become FINISHED are announced the same way a push
// would announce them, so prediction points reconcile off the poll path too
// (the push channel may be down when a match ends).
func (t *Table) Refresh(ctx context.Context) error {
	fetched, err := t.lister.ListMatches(ctx)
	if err != nil {
		telemetry.Metrics.MatchRefreshErrors.Inc()
		return err
	}
	telemetry.Metrics.MatchRefreshes.Inc()

	t.mu.Lock()
	replaced := make(map[int64]api.Match, len(fetched))
	live := int64(0)
	var finished []api.Match
	for _, m := range fetched {
		replaced[m.ID] = m
		if m.Status == api.StatusLive {
			live++
		}
		if m.Status == api.StatusFinished {
			if prev, had := t.matches[m.ID]; !had || prev.Status != api.StatusFinished {
				finished = append(finished, m)
			}
		}
		t.maybeResetEpisode(m)
	}
	t.matches = replaced
	t.mu.Unlock()

	for _, m := range finished {
		t.bus.Publish(events.Event{
			Type:      events.EventMatchChanged,
			MatchID:   m.ID,
			Timestamp: t.now(),
			Payload:   m,
		})
	}

	telemetry.Metrics.LiveMatches.Set(live)
	return nil
}

// ApplyPush upserts a single match from a push event. Unknown ids are
// inserted; known ids are shallow-merged so a partial push never clobbers
// cached fields. When the merged match is FINISHED or carries a score, a
// reconcile event is published for the prediction engine.
func (t *Table) ApplyPush(evt events.MatchUpdateEvent) {
	t.mu.Lock()
	merged, exists := t.matches[evt.ID]
	if !exists {
		merged = api.Match{ID: evt.ID}
	}
	mergeMatch(&merged, evt)
	t.matches[evt.ID] = merged
	t.maybeResetEpisode(merged)
	t.mu.Unlock()

	if merged.Status == api.StatusFinished || evt.HomeScore != nil || evt.AwayScore != nil {
		t.bus.Publish(events.Event{
			Type:      events.EventMatchChanged,
			MatchID:   evt.ID,
			Timestamp: t.now(),
			Payload:   merged,
		})
	}
}

// mergeMatch applies the fields present in the push onto the cached match.
func mergeMatch(dst *api.Match, evt events.MatchUpdateEvent) {
	if evt.HomeTeam != "" {
		dst.HomeTeam = evt.HomeTeam
	}
	if evt.HomeTeamCrest != "" {
		dst.HomeTeamCrest = evt.HomeTeamCrest
	}
	if evt.AwayTeam != "" {
		dst.AwayTeam = evt.AwayTeam
	}
	if evt.AwayTeamCrest != "" {
		dst.AwayTeamCrest = evt.AwayTeamCrest
	}
	if evt.Venue != "" {
		dst.Venue = evt.Venue
	}
	if evt.Group != "" {
		dst.Group = evt.Group
	}
	if !evt.MatchDate.IsZero() {
		dst.MatchDate = api.UTCTime{Time: evt.MatchDate}
	}
	if evt.Status != "" {
		dst.Status = evt.Status
	}
	if evt.HomeScore != nil {
		dst.HomeScore = evt.HomeScore
	}
	if evt.AwayScore != nil {
		dst.AwayScore = evt.AwayScore
	}
}

// maybeResetEpisode clears expiry-episode state once the match leaves
// SCHEDULED or its kickoff moves back into the future. Caller must hold mu.
func (t *Table) maybeResetEpisode(m api.Match) {
	if !t.episodes[m.ID] {
		return
	}
	if m.Status != api.StatusScheduled || m.MatchDate.After(t.now()) {
		delete(t.episodes, m.ID)
	}
}

// Match returns a copy of one match.
func (t *Table) Match(id int64) (api.Match, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.matches[id]
	return m, ok
}

// Snapshot returns all matches sorted by kickoff time, then id.
func (t *Table) Snapshot() []api.Match {
	t.mu.RLock()
	out := make([]api.Match, 0, len(t.matches))
	for _, m := range t.matches {
		out = append(out, m)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].MatchDate.Equal(out[j].MatchDate.Time) {
			return out[i].MatchDate.Before(out[j].MatchDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Run drives the poll cadence until ctx is cancelled: a baseline refresh
// every 30s, every 2s while any SCHEDULED match is inside the kickoff window,
// and every 1s while an expiry episode is waiting for the server to confirm
// the status flip.
func (t *Table) Run(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil {
		telemetry.Warnf("matches: initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tick++
		aggressive, expired := t.step()

		switch {
		case expired, aggressive && tick%aggressivePollEvery == 0, tick%t.baselineEvery == 0:
			if err := t.Refresh(ctx); err != nil {
				telemetry.Warnf("matches: refresh failed: %v", err)
			}
		}
	}
}

// step scans for newly expired countdowns and reports the current poll mode.
// The expiry callback fires exactly once per episode; the 1s refresh bridges
// the gap until the server reports LIVE.
func (t *Table) step() (aggressive, expiredActive bool) {
	now := t.now()

	var fired []int64
	var onExpired func(int64)

	t.mu.Lock()
	onExpired = t.onExpired
	for id, m := range t.matches {
		if m.Status != api.StatusScheduled {
			continue
		}
		diff := m.MatchDate.Sub(now)
		if diff <= kickoffWindowBefore && diff >= -kickoffWindowAfter {
			aggressive = true
		}
		if diff <= 0 {
			expiredActive = true
			if !t.episodes[id] {
				t.episodes[id] = true
				fired = append(fired, id)
			}
		}
	}
	t.mu.Unlock()

	for _, id := range fired {
		telemetry.Infof("matches: countdown expired for match %d, awaiting server status", id)
		t.bus.Publish(events.Event{
			Type:      events.EventMatchExpired,
			MatchID:   id,
			Timestamp: now,
		})
		if onExpired != nil {
			onExpired(id)
		}
	}
	return aggressive, expiredActive
}
