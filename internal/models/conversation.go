package models

import (
	"strings"
	"time"
)

type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// TurnStatus tags where a turn is in the optimistic send cycle.
type TurnStatus string

const (
	TurnPending   TurnStatus = "pending"   // candidate answer sent, reply not yet received
	TurnCommitted TurnStatus = "committed" // acknowledged by the remote service
	TurnFailed    TurnStatus = "failed"    // delivery failed, kept only as a draft
)

// Turn is one utterance in the interview. Committed turns carry the id the
// remote service assigned; a pending turn carries a provisional local id.
type Turn struct {
	ID        string     `json:"id"`
	Speaker   Speaker    `json:"speaker"`
	Text      string     `json:"text"`
	Status    TurnStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t Turn) IsPending() bool { return t.Status == TurnPending }

func (t Turn) valid() bool {
	if t.ID == "" || strings.TrimSpace(t.Text) == "" {
		return false
	}
	switch t.Speaker {
	case SpeakerCandidate:
		return t.Status == TurnPending || t.Status == TurnCommitted || t.Status == TurnFailed
	case SpeakerInterviewer:
		return t.Status == TurnCommitted
	default:
		return false
	}
}

// Exchange is the pair produced by one successful answer: the canonical
// candidate turn followed by the interviewer's reply.
type Exchange struct {
	Candidate   Turn `json:"candidate"`
	Interviewer Turn `json:"interviewer"`
}
