package models

import (
	"github.com/yoockh/mockview/internal/utils"
)

// Transcript is the ordered log of turns for one session.
//
// It is not safe for concurrent use; the owning session serializes access.
type Transcript struct {
	turns []Turn
}

// NewTranscript builds a transcript from turns loaded from the remote service.
// Loaded turns must all be committed.
func NewTranscript(turns ...Turn) (*Transcript, error) {
	const op = "Transcript.Load"

	t := &Transcript{turns: make([]Turn, 0, len(turns))}
	for _, turn := range turns {
		if turn.Status != TurnCommitted {
			return nil, utils.E(utils.CodeInvariantViolation, op, "loaded turn "+turn.ID+" is not committed", nil)
		}
		if err := t.Append(turn); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Append inserts turn at the end.
func (t *Transcript) Append(turn Turn) error {
	const op = "Transcript.Append"

	if !turn.valid() {
		return utils.E(utils.CodeInvariantViolation, op, "malformed turn", nil)
	}
	if t.indexOf(turn.ID) >= 0 {
		return utils.E(utils.CodeInvariantViolation, op, "duplicate turn id "+turn.ID, nil)
	}
	if turn.IsPending() {
		if _, ok := t.Pending(); ok {
			return utils.E(utils.CodeInvariantViolation, op, "a pending turn already exists", nil)
		}
	}
	t.turns = append(t.turns, turn)
	return nil
}

// Replace swaps the turn with the given id in place.
func (t *Transcript) Replace(id string, turn Turn) error {
	const op = "Transcript.Replace"

	i := t.indexOf(id)
	if i < 0 {
		return utils.E(utils.CodeInvariantViolation, op, "no turn with id "+id, nil)
	}
	if !turn.valid() {
		return utils.E(utils.CodeInvariantViolation, op, "malformed turn", nil)
	}
	if turn.ID != id && t.indexOf(turn.ID) >= 0 {
		return utils.E(utils.CodeInvariantViolation, op, "duplicate turn id "+turn.ID, nil)
	}
	if turn.IsPending() {
		if p, ok := t.Pending(); ok && p.ID != id {
			return utils.E(utils.CodeInvariantViolation, op, "a pending turn already exists", nil)
		}
	}
	t.turns[i] = turn
	return nil
}

// Remove deletes the turn with the given id and returns it.
func (t *Transcript) Remove(id string) (Turn, bool) {
	i := t.indexOf(id)
	if i < 0 {
		return Turn{}, false
	}
	removed := t.turns[i]
	t.turns = append(t.turns[:i], t.turns[i+1:]...)
	return removed, true
}

// CommitExchange replaces the pending placeholder with the canonical candidate
// turn and appends the interviewer reply. Both turns land or neither does.
func (t *Transcript) CommitExchange(pendingID string, ex Exchange) error {
	const op = "Transcript.CommitExchange"

	i := t.indexOf(pendingID)
	if i < 0 || !t.turns[i].IsPending() {
		return utils.E(utils.CodeInvariantViolation, op, "no pending turn with id "+pendingID, nil)
	}
	if ex.Candidate.Speaker != SpeakerCandidate || ex.Interviewer.Speaker != SpeakerInterviewer {
		return utils.E(utils.CodeInvariantViolation, op, "exchange speakers out of order", nil)
	}
	if ex.Candidate.Status != TurnCommitted || !ex.Candidate.valid() || !ex.Interviewer.valid() {
		return utils.E(utils.CodeInvariantViolation, op, "malformed exchange", nil)
	}
	if ex.Candidate.ID == ex.Interviewer.ID {
		return utils.E(utils.CodeInvariantViolation, op, "exchange turns share id "+ex.Candidate.ID, nil)
	}
	for j, turn := range t.turns {
		if j != i && (turn.ID == ex.Candidate.ID || turn.ID == ex.Interviewer.ID) {
			return utils.E(utils.CodeInvariantViolation, op, "duplicate turn id "+turn.ID, nil)
		}
	}

	t.turns[i] = ex.Candidate
	t.turns = append(t.turns, ex.Interviewer)
	return nil
}

// Pending returns the in-flight candidate turn, if any.
func (t *Transcript) Pending() (Turn, bool) {
	for _, turn := range t.turns {
		if turn.IsPending() {
			return turn, true
		}
	}
	return Turn{}, false
}

func (t *Transcript) Len() int { return len(t.turns) }

// Snapshot returns an ordered copy safe to hand to renderers.
func (t *Transcript) Snapshot() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) indexOf(id string) int {
	for i, turn := range t.turns {
		if turn.ID == id {
			return i
		}
	}
	return -1
}
