package notify

import "testing"

func TestSection(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/leagues/42", "/leagues"},
		{"/leagues/42?tab=members", "/leagues"},
		{"/matches", "/matches"},
		{"/matches#upcoming", "/matches"},
		{"/leaderboard/", "/leaderboard"},
		{"/", "/"},
		{"", "/"},
		{"profile", "/profile"},
		{"%zz?x=1", "/%zz"}, // unparseable, best-effort split
	}

	for _, tc := range cases {
		if got := Section(tc.in); got != tc.want {
			t.Errorf("Section(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
