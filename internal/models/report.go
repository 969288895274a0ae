package models

import (
	"fmt"

	"github.com/yoockh/mockview/internal/utils"
)

const (
	ScoreMin = 0.0
	ScoreMax = 10.0
)

type Recommendation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report is the scored summary produced once per ended session.
type Report struct {
	SessionID string `json:"session_id"`

	OverallRating      float64 `json:"overall_rating"`
	TechnicalScore     float64 `json:"technical_score"`
	CommunicationScore float64 `json:"communication_score"`
	ProblemSolving     float64 `json:"problem_solving"`
	CultureFit         float64 `json:"culture_fit"`

	Strengths       []string         `json:"strengths"`
	Improvements    []string         `json:"improvements"`
	NextSteps       []string         `json:"next_steps"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Validate checks every score lies in [ScoreMin, ScoreMax].
func (r *Report) Validate() error {
	const op = "Report.Validate"

	scores := []struct {
		name  string
		value float64
	}{
		{"overall_rating", r.OverallRating},
		{"technical_score", r.TechnicalScore},
		{"communication_score", r.CommunicationScore},
		{"problem_solving", r.ProblemSolving},
		{"culture_fit", r.CultureFit},
	}
	for _, s := range scores {
		if s.value < ScoreMin || s.value > ScoreMax {
			return utils.E(utils.CodeUnavailable, op, fmt.Sprintf("%s out of range: %v", s.name, s.value), nil)
		}
	}
	for i, rec := range r.Recommendations {
		if rec.Title == "" {
			return utils.E(utils.CodeUnavailable, op, fmt.Sprintf("recommendation %d has no title", i), nil)
		}
	}
	return nil
}

// Label buckets a score the way the feedback page does.
func Label(score float64) string {
	switch {
	case score >= 8:
		return "Excellent"
	case score >= 6:
		return "Good"
	default:
		return "Needs Improvement"
	}
}
