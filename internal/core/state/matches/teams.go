package matches

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTeam lowercases, strips diacritics, and collapses whitespace so
// team names coming from pushes, polls, and the flag table compare equal.
func NormalizeTeam(s string) string {
	if s == "" {
		return ""
	}
	s = stripDiacritics(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return collapseWhitespace(s)
}

func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing (combining accents)
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// countryCodes maps normalized team names to ISO country codes for the flag
// fallback used when a match carries no crest URL.
var countryCodes = map[string]string{
	"qatar":        "qa",
	"ecuador":      "ec",
	"senegal":      "sn",
	"netherlands":  "nl",
	"england":      "gb-eng",
	"iran":         "ir",
	"usa":          "us",
	"wales":        "gb-wls",
	"argentina":    "ar",
	"saudi arabia": "sa",
	"mexico":       "mx",
	"poland":       "pl",
	"france":       "fr",
	"australia":    "au",
	"denmark":      "dk",
	"tunisia":      "tn",
	"spain":        "es",
	"costa rica":   "cr",
	"germany":      "de",
	"japan":        "jp",
	"belgium":      "be",
	"canada":       "ca",
	"morocco":      "ma",
	"croatia":      "hr",
	"brazil":       "br",
	"serbia":       "rs",
	"switzerland":  "ch",
	"cameroon":     "cm",
	"portugal":     "pt",
	"ghana":        "gh",
	"uruguay":      "uy",
	"south korea":  "kr",
	"turkiye":      "tr",
	"cote d'ivoire": "ci",
}

// FlagURL returns a flag image URL for a team, falling back to the UN flag
// when the team is unknown.
func FlagURL(teamName string) string {
	code, ok := countryCodes[NormalizeTeam(teamName)]
	if !ok {
		code = "un"
	}
	return "https://flagcdn.com/80x60/" + code + ".png"
}

// CrestURL prefers the server-supplied crest and falls back to the flag table.
func CrestURL(crest, teamName string) string {
	if crest != "" {
		return crest
	}
	return FlagURL(teamName)
}
