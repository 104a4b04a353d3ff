package api

import (
	"context"
	"fmt"
)

func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.get(ctx, "/users/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UpdateScreenName(ctx context.Context, screenName string) (*UserProfile, error) {
	body := struct {
		ScreenName string `json:"screenName"`
	}{screenName}

	var profile UserProfile
	if err := c.put(ctx, "/users/me/screen-name", nil, body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}{currentPassword, newPassword}

	return c.put(ctx, "/users/me/password", nil, body, nil)
}

func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	if err := c.get(ctx, "/users/leaderboard", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) PublicProfile(ctx context.Context, userID int64) (*PublicProfile, error) {
	var profile PublicProfile
	if err := c.get(ctx, fmt.Sprintf("/users/%d/public-profile", userID), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpcomingWithoutPrediction lists matches starting soon that the user has not
// predicted yet.
func (c *Client) UpcomingWithoutPrediction(ctx context.Context) ([]Match, error) {
	var matches []Match
	if err := c.get(ctx, "/users/me/upcoming-matches-without-prediction", nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (c *Client) PredictionStatistics(ctx context.Context) (*PredictionStatistics, error) {
	var stats PredictionStatistics
	if err := c.get(ctx, "/users/me/prediction-statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) PerformanceHistory(ctx context.Context) ([]PerformanceEntry, error) {
	var entries []PerformanceEntry
	if err := c.get(ctx, "/users/me/performance-history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Achievements(ctx context.Context) ([]UserAchievement, error) {
	var achievements []UserAchievement
	if err := c.get(ctx, "/users/me/achievements", nil, &achievements); err != nil {
		return nil, err
	}
	return achievements, nil
}
