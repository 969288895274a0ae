// Package events carries transcript and phase changes from the session
// controllers to whoever renders them (the WebSocket handler).
package events

import (
	"context"
	"time"

	"github.com/yoockh/mockview/internal/models"
)

type Type string

const (
	TypeTranscript Type = "transcript"
	TypePhase      Type = "phase"
)

// Reason explains a phase transition.
type Reason string

const (
	ReasonSessionLoaded   Reason = "session_loaded"
	ReasonLoadFailed      Reason = "load_failed"
	ReasonReloadRequested Reason = "reload_requested"
	ReasonEndRequested    Reason = "end_requested"
	ReasonSessionEnded    Reason = "session_ended"
	ReasonEndFailed       Reason = "end_failed"
	ReasonAnswerPending   Reason = "answer_pending"
	ReasonAnswerCommitted Reason = "answer_committed"
	ReasonAnswerFailed    Reason = "answer_failed"
)

// Event is one renderable change. Transcript events carry a full snapshot so
// a subscriber that missed earlier events still converges.
//
// Seq is assigned under the session lock but events are published after it
// is released, so two operations can publish out of order. Consumers must drop
// an event whose Seq is not above the last one they applied (see SeqFilter).
type Event struct {
	Type      Type          `json:"type"`
	SessionID string        `json:"session_id"`
	Phase     models.Phase  `json:"phase,omitempty"`
	Reason    Reason        `json:"reason,omitempty"`
	Message   string        `json:"message,omitempty"`
	Turns     []models.Turn `json:"turns,omitempty"`
	Seq       uint64        `json:"seq"`
	At        time.Time     `json:"at"`
}

// SeqFilter drops events that arrive after a newer one for the same session.
// The zero value accepts everything above Seq 0.
type SeqFilter struct {
	last uint64
}

func NewSeqFilter(applied uint64) *SeqFilter { return &SeqFilter{last: applied} }

// Fresh reports whether ev is newer than everything seen so far and records it.
func (f *SeqFilter) Fresh(ev Event) bool {
	if ev.Seq <= f.last {
		return false
	}
	f.last = ev.Seq
	return true
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber streams events for one session until cancel is called.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (events <-chan Event, cancel func(), err error)
}

type Bus interface {
	Publisher
	Subscriber
}

func TranscriptChannel(sessionID string) string { return "session:" + sessionID + ":transcript" }
func StatusChannel(sessionID string) string     { return "session:" + sessionID + ":status" }

func channelFor(ev Event) string {
	if ev.Type == TypeTranscript {
		return TranscriptChannel(ev.SessionID)
	}
	return StatusChannel(ev.SessionID)
}
