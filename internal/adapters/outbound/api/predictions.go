package api

import (
	"context"
	"fmt"
)

func (c *Client) MyPredictions(ctx context.Context) ([]Prediction, error) {
	var predictions []Prediction
	if err := c.get(ctx, "/predictions/my-predictions", nil, &predictions); err != nil {
		return nil, err
	}
	return predictions, nil
}

// SavePrediction upserts the user's prediction for a match. The server is the
// authority on whether the match still accepts predictions.
func (c *Client) SavePrediction(ctx context.Context, matchID int64, home, away int) (*Prediction, error) {
	body := struct {
		MatchID            int64 `json:"matchId"`
		PredictedHomeScore int   `json:"predictedHomeScore"`
		PredictedAwayScore int   `json:"predictedAwayScore"`
	}{matchID, home, away}

	var prediction Prediction
	if err := c.post(ctx, "/predictions", body, &prediction); err != nil {
		return nil, err
	}
	return &prediction, nil
}

// CalculatePoints asks the server to compute points for every prediction on a
// finished match. The server-side computation is idempotent.
func (c *Client) CalculatePoints(ctx context.Context, matchID int64) error {
	return c.post(ctx, fmt.Sprintf("/matches/%d/calculate-points", matchID), nil, nil)
}
