package api

import (
	"context"
	"fmt"
)

func (c *Client) MyLeagues(ctx context.Context) ([]League, error) {
	var leagues []League
	if err := c.get(ctx, "/leagues/mine", nil, &leagues); err != nil {
		return nil, err
	}
	return leagues, nil
}

// CreateLeagueRequest is the payload for POST /leagues. StartDate and EndDate
// bound the scoring window; only matches kicking off inside it count.
type CreateLeagueRequest struct {
	Name        string  `json:"name"`
	StartDate   UTCTime `json:"startDate"`
	EndDate     UTCTime `json:"endDate"`
	BettingType string  `json:"bettingType"`
	StakeAmount float64 `json:"stakeAmount,omitempty"`
}

func (c *Client) CreateLeague(ctx context.Context, req CreateLeagueRequest) (*League, error) {
	var league League
	if err := c.post(ctx, "/leagues", req, &league); err != nil {
		return nil, err
	}
	return &league, nil
}

func (c *Client) JoinLeague(ctx context.Context, joinCode string) (*League, error) {
	body := struct {
		JoinCode string `json:"joinCode"`
	}{joinCode}

	var league League
	if err := c.post(ctx, "/leagues/join", body, &league); err != nil {
		return nil, err
	}
	return &league, nil
}

func (c *Client) LeagueMembers(ctx context.Context, leagueID int64) ([]LeagueMember, error) {
	var members []LeagueMember
	if err := c.get(ctx, fmt.Sprintf("/leagues/%d/members", leagueID), nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) LeagueLeaderboard(ctx context.Context, leagueID int64) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	if err := c.get(ctx, fmt.Sprintf("/leagues/%d/leaderboard", leagueID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
