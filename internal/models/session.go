package models

import "time"

// Phase is the lifecycle stage of an interview session on this client.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseActive  Phase = "active"
	PhaseEnding  Phase = "ending"
	PhaseEnded   Phase = "ended"
	PhaseError   Phase = "error"
)

// Session is the interview metadata returned by the remote service. It does
// not change after load; the phase lives with the controller.
type Session struct {
	ID       string `json:"id"`
	Position string `json:"position"`
	Company  string `json:"company,omitempty"`

	StartedAt time.Time `json:"started_at"`

	DurationMinutes *int `json:"duration_minutes,omitempty"`
	QuestionsAsked  *int `json:"questions_asked,omitempty"`
}

// Title renders "position at company" the way the interview header does.
func (s *Session) Title() string {
	if s == nil {
		return ""
	}
	if s.Company == "" {
		return s.Position
	}
	return s.Position + " at " + s.Company
}
