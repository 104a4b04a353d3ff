package notify

import (
	"net/url"
	"strings"
)

// DefaultSection is where notifications without a usable link land.
const DefaultSection = "/"

// Section reduces a notification's link to its app section: the first path
// segment with a leading slash. Query and fragment are ignored.
//
//	/leagues/42?tab=members -> /leagues
//	/matches               -> /matches
//	""                     -> /
func Section(linkURL string) string {
	if linkURL == "" {
		return DefaultSection
	}

	path := linkURL
	if u, err := url.Parse(linkURL); err == nil {
		path = u.Path
	} else {
		// Malformed links still get a best-effort split.
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
	}

	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return DefaultSection
	}
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[:i]
	}
	return "/" + path
}
