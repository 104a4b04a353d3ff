package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/config"
	"wcpredict/internal/events"
	"wcpredict/internal/telemetry"
)

// Backend is the slice of the REST client the aggregator needs.
type Backend interface {
	Notifications(ctx context.Context, page, size int) ([]api.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

const (
	defaultPageSize  = 50
	defaultPollEvery = 30 * time.Second
)

// Aggregator keeps the client-side notification list: pushes prepend, polls
// reconcile the unread badge, and reads are applied optimistically. A failed
// mark-read is logged and left as is; the next poll squares the count with
// the server.
type Aggregator struct {
	backend   Backend
	bus       *events.Bus
	phrases   config.Phrases
	pollEvery time.Duration

	mu     sync.RWMutex
	items  []api.Notification // newest first
	unread int
}

func NewAggregator(backend Backend, bus *events.Bus, phrases config.Phrases, pollEvery time.Duration) *Aggregator {
	if pollEvery <= 0 {
		pollEvery = defaultPollEvery
	}
	return &Aggregator{
		backend:   backend,
		bus:       bus,
		phrases:   phrases,
		pollEvery: pollEvery,
	}
}

// Start subscribes the aggregator to pushed notifications.
func (a *Aggregator) Start() {
	a.bus.Subscribe(events.EventNotification, func(evt events.Event) {
		n, ok := evt.Payload.(events.NotificationEvent)
		if !ok {
			return
		}
		a.OnPush(n)
	})
}

// FetchAll replaces the list with the first page from the server. On failure
// the current list is kept.
func (a *Aggregator) FetchAll(ctx context.Context) error {
	items, err := a.backend.Notifications(ctx, 0, defaultPageSize)
	if err != nil {
		telemetry.Warnf("notify: fetch notifications: %v", err)
		return err
	}

	a.mu.Lock()
	a.items = items
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	a.unread = unread
	a.mu.Unlock()

	a.syncGauge()
	return nil
}

// FetchUnreadCount refreshes the badge from the server's authoritative count.
func (a *Aggregator) FetchUnreadCount(ctx context.Context) error {
	count, err := a.backend.UnreadCount(ctx)
	if err != nil {
		telemetry.Warnf("notify: fetch unread count: %v", err)
		return err
	}

	a.mu.Lock()
	a.unread = count
	a.mu.Unlock()

	a.syncGauge()
	return nil
}

// OnPush prepends a pushed notification. A duplicate id updates in place
// without touching the unread count.
func (a *Aggregator) OnPush(evt events.NotificationEvent) {
	n := api.Notification{
		ID:        evt.ID,
		Type:      evt.Type,
		Title:     evt.Title,
		Message:   evt.Message,
		Icon:      evt.Icon,
		LinkURL:   evt.LinkURL,
		Read:      evt.Read,
		CreatedAt: api.UTCTime{Time: evt.CreatedAt},
	}

	a.mu.Lock()
	replaced := false
	for i := range a.items {
		if a.items[i].ID == n.ID {
			a.items[i] = n
			replaced = true
			break
		}
	}
	if !replaced {
		a.items = append([]api.Notification{n}, a.items...)
		if !n.Read {
			a.unread++
		}
	}
	a.mu.Unlock()

	a.syncGauge()
}

// MarkRead marks one notification read: flip locally first, then tell the
// server. Already-read ids are a no-op. A server failure is not rolled back.
func (a *Aggregator) MarkRead(ctx context.Context, id int64) error {
	a.mu.Lock()
	flipped := false
	for i := range a.items {
		if a.items[i].ID != id {
			continue
		}
		if a.items[i].Read {
			a.mu.Unlock()
			return nil
		}
		a.items[i].Read = true
		flipped = true
		break
	}
	if flipped && a.unread > 0 {
		a.unread--
	}
	a.mu.Unlock()

	a.syncGauge()

	if err := a.backend.MarkNotificationRead(ctx, id); err != nil {
		telemetry.Metrics.MarkReadErrors.Inc()
		telemetry.Warnf("notify: mark read %d: %v", id, err)
		return err
	}
	return nil
}

// MarkAllRead flips everything locally and issues one bulk call.
func (a *Aggregator) MarkAllRead(ctx context.Context) error {
	a.mu.Lock()
	for i := range a.items {
		a.items[i].Read = true
	}
	a.unread = 0
	a.mu.Unlock()

	a.syncGauge()

	if err := a.backend.MarkAllNotificationsRead(ctx); err != nil {
		telemetry.Metrics.MarkReadErrors.Inc()
		telemetry.Warnf("notify: mark all read: %v", err)
		return err
	}
	return nil
}

// MarkSection marks every unread notification in one section. The server has
// no per-section endpoint, so this issues one call per item.
func (a *Aggregator) MarkSection(ctx context.Context, section string) error {
	a.mu.Lock()
	var ids []int64
	for i := range a.items {
		if a.items[i].Read || Section(a.items[i].LinkURL) != section {
			continue
		}
		a.items[i].Read = true
		ids = append(ids, a.items[i].ID)
		if a.unread > 0 {
			a.unread--
		}
	}
	a.mu.Unlock()

	a.syncGauge()

	var firstErr error
	for _, id := range ids {
		if err := a.backend.MarkNotificationRead(ctx, id); err != nil {
			telemetry.Metrics.MarkReadErrors.Inc()
			telemetry.Warnf("notify: mark read %d: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Unread returns the current badge count.
func (a *Aggregator) Unread() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.unread
}

// Items returns a copy of the list, newest first.
func (a *Aggregator) Items() []api.Notification {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]api.Notification, len(a.items))
	copy(out, a.items)
	return out
}

// SectionUnreadCounts buckets unread notifications by app section.
func (a *Aggregator) SectionUnreadCounts() map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]int)
	for _, n := range a.items {
		if !n.Read {
			out[Section(n.LinkURL)]++
		}
	}
	return out
}

// TextForSection summarizes a section's unread notifications: the phrase for
// the dominant type, a keyword guess when the type is unknown, or a plain
// count as a last resort. Empty when nothing is unread.
func (a *Aggregator) TextForSection(section string) string {
	a.mu.RLock()
	var unread []api.Notification
	for _, n := range a.items {
		if !n.Read && Section(n.LinkURL) == section {
			unread = append(unread, n)
		}
	}
	a.mu.RUnlock()

	count := len(unread)
	if count == 0 {
		return ""
	}

	byType := make(map[string]int)
	top := ""
	for _, n := range unread {
		byType[n.Type]++
		if top == "" || byType[n.Type] > byType[top] {
			top = n.Type
		}
	}
	if text, ok := a.phrases.ForType(top, count); ok {
		return text
	}

	// Unknown type: guess from the newest item's wording.
	text := strings.ToLower(unread[0].Title + " " + unread[0].Message)
	switch {
	case strings.Contains(text, "predict") || strings.Contains(text, "starting soon"):
		if count == 1 {
			return "1 match starting soon"
		}
		return fmt.Sprintf("%d matches starting soon", count)
	case strings.Contains(text, "finished") || strings.Contains(text, "final"):
		if count == 1 {
			return "1 new result"
		}
		return fmt.Sprintf("%d new results", count)
	}

	if count == 1 {
		return "1 notification"
	}
	return fmt.Sprintf("%d notifications", count)
}

// Run polls the unread count until ctx is cancelled. Poll failures keep the
// last known state.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = a.FetchUnreadCount(ctx)
		}
	}
}

func (a *Aggregator) syncGauge() {
	a.mu.RLock()
	unread := int64(a.unread)
	a.mu.RUnlock()
	telemetry.Metrics.UnreadNotifications.Set(unread)
}
