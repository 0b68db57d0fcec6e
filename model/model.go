package model

import "time"

// Submission is the body of a survey submission. All three sub-documents are
// required; their contents are opaque to the store.
type Submission struct {
	Responses map[string]int     `json:"responses"`
	Scores    map[string]float64 `json:"scores"`
	Metadata  map[string]any     `json:"metadata"`
}

type SurveyResponse struct {
	ID        int64              `json:"id"`
	Timestamp string             `json:"timestamp"`
	Responses map[string]int     `json:"responses"`
	Scores    map[string]float64 `json:"scores"`
	Metadata  map[string]any     `json:"metadata"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Version   int                `json:"version"`
}

type Stats struct {
	TotalResponses  int                `json:"total_responses"`
	LatestResponse  *string            `json:"latest_response"`
	ResponsesByDate map[string]int     `json:"responses_by_date"`
	AverageScores   map[string]float64 `json:"average_scores"`
}
