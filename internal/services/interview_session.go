package services

import (
	"context"
	"sync"
	"time"

	"github.com/yoockh/mockview/internal/events"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/utils"
)

// Options tune the network behaviour shared by the session services.
type Options struct {
	RequestTimeout time.Duration // load, end and report calls
	AnswerTimeout  time.Duration // one answer/reply round trip
	Clock          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.AnswerTimeout <= 0 {
		o.AnswerTimeout = 60 * time.Second
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Draft is an answer whose delivery failed. It is kept so the candidate can
// resend it without retyping.
type Draft struct {
	ClientTurnID string `json:"client_turn_id"`
	Text         string `json:"text"`
}

// InterviewSession is the client-side state of one interview: its phase,
// transcript and cached report. All mutation happens under mu; network calls
// are made with mu released.
type InterviewSession struct {
	id string

	// base is cancelled by Close and bounds every network call of the session
	base   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	phase      models.Phase
	err        error
	meta       *models.Session
	transcript *models.Transcript
	leftActive time.Time
	draft      *Draft
	report     *models.Report
	closed     bool
	seq        uint64
}

func NewInterviewSession(sessionID string) *InterviewSession {
	base, cancel := context.WithCancel(context.Background())
	transcript, _ := models.NewTranscript()
	return &InterviewSession{
		id:         sessionID,
		base:       base,
		cancel:     cancel,
		phase:      models.PhaseLoading,
		transcript: transcript,
	}
}

func (s *InterviewSession) ID() string { return s.id }

func (s *InterviewSession) Phase() models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err is the error that moved the session into PhaseError.
func (s *InterviewSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *InterviewSession) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil
	}
	cp := *s.meta
	return &cp
}

func (s *InterviewSession) Snapshot() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Snapshot()
}

func (s *InterviewSession) FailedDraft() (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return Draft{}, false
	}
	return *s.draft, true
}

// Elapsed grows while the session is active and freezes once it leaves
// PhaseActive.
func (s *InterviewSession) Elapsed(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil || s.meta.StartedAt.IsZero() {
		return 0
	}

	end := now
	if s.phase != models.PhaseActive {
		if s.leftActive.IsZero() {
			return 0
		}
		end = s.leftActive
	}
	if d := end.Sub(s.meta.StartedAt); d > 0 {
		return d
	}
	return 0
}

// Seq is the sequence number of the last event built for the session.
func (s *InterviewSession) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *InterviewSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close abandons the session: in-flight calls are cancelled and their
// results discarded. The remote side is not told.
func (s *InterviewSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// SessionView is what the UI renders for the session header.
type SessionView struct {
	Session        *models.Session `json:"session,omitempty"`
	Phase          models.Phase    `json:"phase"`
	ElapsedSeconds int64           `json:"elapsed_seconds"`
	ErrorCode      utils.Code      `json:"error_code,omitempty"`
	Error          string          `json:"error,omitempty"`
}

func (s *InterviewSession) View(now time.Time) SessionView {
	v := SessionView{
		Session:        s.Session(),
		ElapsedSeconds: int64(s.Elapsed(now) / time.Second),
	}
	s.mu.Lock()
	v.Phase = s.phase
	if s.err != nil {
		v.ErrorCode = utils.CodeOf(s.err)
		v.Error = utils.Message(s.err)
	}
	s.mu.Unlock()
	return v
}

// callContext bounds a network call by the caller's context, timeout and
// the session's own lifetime.
func (s *InterviewSession) callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	stop := context.AfterFunc(s.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// eventLocked builds the next event for the session. Caller holds mu.
func (s *InterviewSession) eventLocked(typ events.Type, reason events.Reason, at time.Time) events.Event {
	s.seq++
	ev := events.Event{
		Type:      typ,
		SessionID: s.id,
		Phase:     s.phase,
		Reason:    reason,
		Seq:       s.seq,
		At:        at,
	}
	switch typ {
	case events.TypeTranscript:
		ev.Turns = s.transcript.Snapshot()
	case events.TypePhase:
		if s.phase == models.PhaseError && s.err != nil {
			ev.Message = utils.Message(s.err)
		}
	}
	return ev
}
