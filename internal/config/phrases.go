package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Phrase holds the singular and plural templates for one notification type.
// Many may contain a single %d verb for the count.
type Phrase struct {
	One  string `yaml:"one"`
	Many string `yaml:"many"`
}

// Phrases maps a notification type (e.g. "MATCH_RESULT") to its summary phrase.
type Phrases struct {
	Types map[string]Phrase `yaml:"types"`
}

// DefaultPhrases is the hardcoded fallback when no phrase file is found.
func DefaultPhrases() Phrases {
	return Phrases{Types: map[string]Phrase{
		"MATCH_RESULT":         {One: "1 new result", Many: "%d new results"},
		"LEAGUE_MEMBER_JOINED": {One: "1 new member", Many: "%d new members"},
		"LEAGUE_INVITE":        {One: "1 new invite", Many: "%d new invites"},
		"LEADERBOARD_POSITION": {One: "1 position update", Many: "%d position updates"},
		"ACHIEVEMENT":          {One: "1 new achievement", Many: "%d new achievements"},
	}}
}

// LoadPhrases reads the phrase table from a yaml file.
func LoadPhrases(path string) (Phrases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Phrases{}, fmt.Errorf("read phrases: %w", err)
	}

	var p Phrases
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Phrases{}, fmt.Errorf("parse phrases: %w", err)
	}
	if len(p.Types) == 0 {
		return Phrases{}, fmt.Errorf("phrases %s: empty types table", path)
	}
	return p, nil
}

// ForType formats the phrase for a notification type, or returns false when
// the type has no entry.
func (p Phrases) ForType(typ string, count int) (string, bool) {
	ph, ok := p.Types[typ]
	if !ok {
		return "", false
	}
	if count == 1 {
		return ph.One, true
	}
	return fmt.Sprintf(ph.Many, count), true
}
