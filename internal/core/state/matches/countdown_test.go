package matches

import (
	"context"
	"testing"
	"time"

	"wcpredict/internal/adapters/outbound/api"
)

func TestCountdown(t *testing.T) {
	now := time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		match   api.Match
		wantOK  bool
		want    Countdown
		wantStr string
	}{
		{
			name:    "days out",
			match:   api.Match{ID: 1, Status: api.StatusScheduled, MatchDate: at(now.Add(50*time.Hour + 30*time.Minute))},
			wantOK:  true,
			want:    Countdown{Days: 2, Hours: 2, Minutes: 30, Seconds: 0},
			wantStr: "2d 2h 30m",
		},
		{
			name:    "hours out",
			match:   api.Match{ID: 1, Status: api.StatusScheduled, MatchDate: at(now.Add(3*time.Hour + 15*time.Minute + 42*time.Second))},
			wantOK:  true,
			want:    Countdown{Hours: 3, Minutes: 15, Seconds: 42},
			wantStr: "3h 15m 42s",
		},
		{
			name:    "minutes out",
			match:   api.Match{ID: 1, Status: api.StatusScheduled, MatchDate: at(now.Add(90 * time.Second))},
			wantOK:  true,
			want:    Countdown{Minutes: 1, Seconds: 30},
			wantStr: "1m 30s",
		},
		{
			name:    "kickoff passed",
			match:   api.Match{ID: 1, Status: api.StatusScheduled, MatchDate: at(now.Add(-time.Second))},
			wantOK:  true,
			want:    Countdown{Expired: true},
			wantStr: "starting...",
		},
		{
			name:   "live match has no countdown",
			match:  api.Match{ID: 1, Status: api.StatusLive, MatchDate: at(now.Add(time.Hour))},
			wantOK: false,
		},
		{
			name:   "no kickoff date",
			match:  api.Match{ID: 1, Status: api.StatusScheduled},
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lister := &fakeLister{matches: []api.Match{tc.match}}
			table, _ := newTestTable(lister, now)
			if err := table.Refresh(context.Background()); err != nil {
				t.Fatalf("unexpected err: %v", err)
			}

			got, ok := table.Countdown(1)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if got.Days != tc.want.Days || got.Hours != tc.want.Hours ||
				got.Minutes != tc.want.Minutes || got.Seconds != tc.want.Seconds ||
				got.Expired != tc.want.Expired {
				t.Errorf("countdown = %+v, want %+v", got, tc.want)
			}
			if got.String() != tc.wantStr {
				t.Errorf("String() = %q, want %q", got.String(), tc.wantStr)
			}
		})
	}
}

func TestCountdownUnknownMatch(t *testing.T) {
	table, _ := newTestTable(&fakeLister{}, time.Now())
	if _, ok := table.Countdown(42); ok {
		t.Errorf("expected ok=false for unknown match")
	}
}
