package api

import (
	"fmt"
	"strings"
	"time"
)

// Match statuses as reported by the server. The client never invents one.
const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
)

// UTCTime parses the backend's LocalDateTime serialization. Timestamps arrive
// without a timezone suffix and must be treated as UTC even when the Z is absent.
type UTCTime struct {
	time.Time
}

const localDateTimeLayout = "2006-01-02T15:04:05"

func (t *UTCTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	// LocalDateTime may carry fractional seconds.
	for _, layout := range []string{localDateTimeLayout, "2006-01-02T15:04:05.999999999"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse time %q", s)
}

func (t UTCTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

type Match struct {
	ID            int64   `json:"id"`
	HomeTeam      string  `json:"homeTeam"`
	HomeTeamCrest string  `json:"homeTeamCrest"`
	AwayTeam      string  `json:"awayTeam"`
	AwayTeamCrest string  `json:"awayTeamCrest"`
	MatchDate     UTCTime `json:"matchDate"`
	Venue         string  `json:"venue"`
	Group         string  `json:"group"`
	Status        string  `json:"status"`
	HomeScore     *int    `json:"homeScore"`
	AwayScore     *int    `json:"awayScore"`
}

type Prediction struct {
	ID                 int64   `json:"id"`
	MatchID            int64   `json:"matchId"`
	HomeTeam           string  `json:"homeTeam"`
	AwayTeam           string  `json:"awayTeam"`
	MatchDate          UTCTime `json:"matchDate"`
	PredictedHomeScore int     `json:"predictedHomeScore"`
	PredictedAwayScore int     `json:"predictedAwayScore"`
	Points             *int    `json:"points"`
	CreatedAt          UTCTime `json:"createdAt"`
	UpdatedAt          UTCTime `json:"updatedAt"`
}

type Notification struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Icon      string  `json:"icon"`
	LinkURL   string  `json:"linkUrl"`
	Read      bool    `json:"read"`
	CreatedAt UTCTime `json:"createdAt"`
}

type UserProfile struct {
	ID              int64   `json:"id"`
	Email           string  `json:"email"`
	ScreenName      string  `json:"screenName"`
	Role            string  `json:"role"`
	TotalPoints     int     `json:"totalPoints"`
	PredictionCount int     `json:"predictionCount"`
	CreatedAt       UTCTime `json:"createdAt"`
}

type LeaderboardEntry struct {
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	ScreenName      string `json:"screenName"`
	TotalPoints     int    `json:"totalPoints"`
	PredictionCount int    `json:"predictionCount"`
}

type League struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	JoinCode        string  `json:"joinCode"`
	StartDate       UTCTime `json:"startDate"`
	EndDate         UTCTime `json:"endDate"`
	LockedAt        UTCTime `json:"lockedAt"`
	OwnerID         int64   `json:"ownerId"`
	OwnerScreenName string  `json:"ownerScreenName"`
	BettingType     string  `json:"bettingType"`
	StakeAmount     float64 `json:"stakeAmount"`
	MemberCount     int     `json:"memberCount"`
}

type LeagueMember struct {
	UserID     int64   `json:"userId"`
	Email      string  `json:"email"`
	ScreenName string  `json:"screenName"`
	Role       string  `json:"role"` // "OWNER" or "MEMBER"
	JoinedAt   UTCTime `json:"joinedAt"`
}

type PredictionStatistics struct {
	TotalPredictions   int     `json:"totalPredictions"`
	ExactScores        int     `json:"exactScores"`
	CorrectWinners     int     `json:"correctWinners"`
	WrongPredictions   int     `json:"wrongPredictions"`
	AccuracyPercentage float64 `json:"accuracyPercentage"`
	TotalPoints        int     `json:"totalPoints"`
}

type PerformanceEntry struct {
	MatchID            int64   `json:"matchId"`
	HomeTeam           string  `json:"homeTeam"`
	AwayTeam           string  `json:"awayTeam"`
	MatchDate          UTCTime `json:"matchDate"`
	PredictedHomeScore *int    `json:"predictedHomeScore"`
	PredictedAwayScore *int    `json:"predictedAwayScore"`
	ActualHomeScore    *int    `json:"actualHomeScore"`
	ActualAwayScore    *int    `json:"actualAwayScore"`
	Points             *int    `json:"points"`
	ResultType         string  `json:"resultType"` // "EXACT", "CORRECT_WINNER", "WRONG"
	CumulativePoints   int     `json:"cumulativePoints"`
}

type Achievement struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type UserAchievement struct {
	ID          int64       `json:"id"`
	Achievement Achievement `json:"achievement"`
	EarnedAt    UTCTime     `json:"earnedAt"`
}

type PublicProfile struct {
	UserID              int64                `json:"userId"`
	ScreenName          string               `json:"screenName"`
	TotalPoints         int                  `json:"totalPoints"`
	PredictionCount     int                  `json:"predictionCount"`
	Statistics          PredictionStatistics `json:"statistics"`
	FinishedPredictions []PerformanceEntry   `json:"finishedPredictions"`
}
