package api

import (
	"context"
	"fmt"
	"net/url"
)

func (c *Client) ListMatches(ctx context.Context) ([]Match, error) {
	var matches []Match
	if err := c.get(ctx, "/matches", nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// CreateMatchRequest is the admin payload for POST /admin/matches.
type CreateMatchRequest struct {
	HomeTeam  string  `json:"homeTeam"`
	AwayTeam  string  `json:"awayTeam"`
	MatchDate UTCTime `json:"matchDate"`
	Venue     string  `json:"venue,omitempty"`
	Group     string  `json:"group,omitempty"`
}

func (c *Client) CreateMatch(ctx context.Context, req CreateMatchRequest) (*Match, error) {
	var match Match
	if err := c.post(ctx, "/admin/matches", req, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (c *Client) SetMatchResult(ctx context.Context, matchID int64, homeScore, awayScore int) error {
	body := struct {
		HomeScore int `json:"homeScore"`
		AwayScore int `json:"awayScore"`
	}{homeScore, awayScore}

	return c.put(ctx, fmt.Sprintf("/admin/matches/%d/result", matchID), nil, body, nil)
}

func (c *Client) SetMatchStatus(ctx context.Context, matchID int64, status string) error {
	query := url.Values{"status": {status}}
	return c.put(ctx, fmt.Sprintf("/admin/matches/%d/status", matchID), query, nil, nil)
}

func (c *Client) DeleteMatch(ctx context.Context, matchID int64) error {
	return c.delete(ctx, fmt.Sprintf("/admin/matches/%d", matchID))
}
