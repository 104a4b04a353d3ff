package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/config"
	"wcpredict/internal/events"
)

type fakeBackend struct {
	mu            sync.Mutex
	notifications []api.Notification
	unread        int
	fetchErr      error
	markErr       error
	markedIDs     []int64
	markAllCalls  int
}

func (f *fakeBackend) Notifications(_ context.Context, page, size int) ([]api.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]api.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out, nil
}

func (f *fakeBackend) UnreadCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	return f.unread, nil
}

func (f *fakeBackend) MarkNotificationRead(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.markedIDs = append(f.markedIDs, id)
	return nil
}

func (f *fakeBackend) MarkAllNotificationsRead(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllCalls++
	return nil
}

func (f *fakeBackend) marked() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.markedIDs))
	copy(out, f.markedIDs)
	return out
}

func notif(id int64, typ, link string, read bool) api.Notification {
	return api.Notification{
		ID: id, Type: typ, LinkURL: link, Read: read,
		Title: "t", Message: "m",
		CreatedAt: api.UTCTime{Time: time.Now().UTC()},
	}
}

func newTestAggregator(backend *fakeBackend) *Aggregator {
	return NewAggregator(backend, events.NewBus(), config.DefaultPhrases(), time.Minute)
}

func TestFetchAllCountsUnread(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{
		notif(1, "MATCH_RESULT", "/leaderboard", false),
		notif(2, "MATCH_RESULT", "/leaderboard", true),
		notif(3, "LEAGUE_INVITE", "/leagues/7", false),
	}}
	a := newTestAggregator(backend)

	if err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.Unread() != 2 {
		t.Errorf("unread = %d, want 2", a.Unread())
	}
}

func TestFetchAllFailureKeepsExistingList(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{
		notif(1, "MATCH_RESULT", "/leaderboard", false),
	}}
	a := newTestAggregator(backend)
	if err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	backend.mu.Lock()
	backend.fetchErr = errors.New("backend down")
	backend.mu.Unlock()

	if err := a.FetchAll(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(a.Items()) != 1 || a.Unread() != 1 {
		t.Errorf("failed fetch wiped state: items=%d unread=%d", len(a.Items()), a.Unread())
	}
}

func TestOnPushPrependsAndDedupes(t *testing.T) {
	a := newTestAggregator(&fakeBackend{})

	a.OnPush(events.NotificationEvent{ID: 1, Type: "MATCH_RESULT", LinkURL: "/leaderboard"})
	a.OnPush(events.NotificationEvent{ID: 2, Type: "LEAGUE_INVITE", LinkURL: "/leagues/7"})

	items := a.Items()
	if len(items) != 2 || items[0].ID != 2 {
		t.Fatalf("items = %+v, want newest first", items)
	}
	if a.Unread() != 2 {
		t.Errorf("unread = %d, want 2", a.Unread())
	}

	// Redelivery of the same id must not bump the count.
	a.OnPush(events.NotificationEvent{ID: 2, Type: "LEAGUE_INVITE", LinkURL: "/leagues/7"})
	if len(a.Items()) != 2 || a.Unread() != 2 {
		t.Errorf("duplicate push changed state: items=%d unread=%d", len(a.Items()), a.Unread())
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{
		notif(1, "MATCH_RESULT", "/leaderboard", false),
	}}
	a := newTestAggregator(backend)
	if err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := a.MarkRead(context.Background(), 1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := a.MarkRead(context.Background(), 1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if a.Unread() != 0 {
		t.Errorf("unread = %d, want 0", a.Unread())
	}
	if got := backend.marked(); len(got) != 1 {
		t.Errorf("backend calls = %v, want exactly one", got)
	}
}

func TestMarkReadFailureKeepsOptimisticState(t *testing.T) {
	backend := &fakeBackend{
		notifications: []api.Notification{notif(1, "MATCH_RESULT", "/leaderboard", false)},
		markErr:       errors.New("backend down"),
	}
	a := newTestAggregator(backend)
	if err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := a.MarkRead(context.Background(), 1); err == nil {
		t.Fatalf("expected error")
	}

	// No rollback: the next unread-count poll squares things with the server.
	if a.Unread() != 0 {
		t.Errorf("unread = %d, want 0", a.Unread())
	}
	if !a.Items()[0].Read {
		t.Errorf("item reverted to unread")
	}
}

func TestMarkAllRead(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{
		notif(1, "MATCH_RESULT", "/leaderboard", false),
		notif(2, "LEAGUE_INVITE", "/leagues/7", false),
	}}
	a := newTestAggregator(backend)
	if err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := a.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if a.Unread() != 0 {
		t.Errorf("unread = %d, want 0", a.Unread())
	}
	for _, n := range a.Items() {
		if !n.Read {
			t.Errorf("notification %d still unread", n.ID)
		}
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.markAllCalls != 1 {
		t.Errorf("markAll calls = %d, want 1", backend.markAllCalls)
	}
}

func TestMarkSectionOnlyTouchesItsSection(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{
		notif(1, "MATCH_RESULT", "/leaderboard", false),
		notif(2, "LEAGUE_INVITE", "/leagues/7", false),
		notif(3, "LEAGUE_MEMBER_JOINED", "/leagues/7/members", false),
		notif(4, "MATCH_RESULT", "/leaderboard", true),
	}}
	a := newTestAggregator(backend)
	if err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := a.MarkSection(context.Background(), "/leagues"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got := backend.marked()
	if len(got) != 2 {
		t.Fatalf("backend calls = %v, want ids 2 and 3", got)
	}
	if a.Unread() != 1 {
		t.Errorf("unread = %d, want 1 (the leaderboard one)", a.Unread())
	}
	counts := a.SectionUnreadCounts()
	if counts["/leagues"] != 0 || counts["/leaderboard"] != 1 {
		t.Errorf("section counts = %v", counts)
	}
}

func TestSectionUnreadCounts(t *testing.T) {
	backend := &fakeBackend{notifications: []api.Notification{
		notif(1, "MATCH_RESULT", "/leaderboard", false),
		notif(2, "MATCH_RESULT", "/leaderboard", false),
		notif(3, "LEAGUE_INVITE", "/leagues/7", false),
		notif(4, "ACHIEVEMENT", "", false),
	}}
	a := newTestAggregator(backend)
	if err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	counts := a.SectionUnreadCounts()
	if counts["/leaderboard"] != 2 || counts["/leagues"] != 1 || counts["/"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestTextForSection(t *testing.T) {
	cases := []struct {
		name  string
		items []api.Notification
		want  string
	}{
		{
			name: "phrase table singular",
			items: []api.Notification{
				notif(1, "MATCH_RESULT", "/leaderboard", false),
			},
			want: "1 new result",
		},
		{
			name: "phrase table plural",
			items: []api.Notification{
				notif(1, "MATCH_RESULT", "/leaderboard", false),
				notif(2, "MATCH_RESULT", "/leaderboard", false),
			},
			want: "2 new results",
		},
		{
			name: "dominant type wins",
			items: []api.Notification{
				notif(1, "MATCH_RESULT", "/leaderboard", false),
				notif(2, "MATCH_RESULT", "/leaderboard", false),
				notif(3, "LEADERBOARD_POSITION", "/leaderboard", false),
			},
			want: "3 new results",
		},
		{
			name: "unknown type falls back to keywords",
			items: []api.Notification{
				{ID: 1, Type: "MYSTERY", LinkURL: "/matches", Title: "Heads up", Message: "Brazil vs Germany starting soon"},
			},
			want: "1 match starting soon",
		},
		{
			name: "unknown type plain count",
			items: []api.Notification{
				{ID: 1, Type: "MYSTERY", LinkURL: "/matches", Title: "Hello", Message: "something happened"},
				{ID: 2, Type: "MYSTERY", LinkURL: "/matches", Title: "Hello", Message: "something happened"},
			},
			want: "2 notifications",
		},
		{
			name:  "nothing unread",
			items: []api.Notification{notif(1, "MATCH_RESULT", "/leaderboard", true)},
			want:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{notifications: tc.items}
			a := newTestAggregator(backend)
			if err := a.FetchAll(context.Background()); err != nil {
				t.Fatalf("unexpected err: %v", err)
			}

			section := "/leaderboard"
			if len(tc.items) > 0 {
				section = Section(tc.items[0].LinkURL)
			}
			if got := a.TextForSection(section); got != tc.want {
				t.Errorf("TextForSection = %q, want %q", got, tc.want)
			}
		})
	}
}
