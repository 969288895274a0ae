package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockview/internal/events"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/providers/interview"
	"github.com/yoockh/mockview/internal/utils"
)

const provisionalIDPrefix = "local-"

// TurnService runs one candidate answer through the optimistic send cycle.
// At most one answer per session is in flight; extra submissions are
// rejected, never queued.
type TurnService interface {
	Submit(ctx context.Context, s *InterviewSession, text string) (*models.Exchange, error)
	Retry(ctx context.Context, s *InterviewSession) (*models.Exchange, error)
}

// SubmitError is returned when an answer could not be delivered. The
// transcript has already been rolled back; Draft holds what was typed.
type SubmitError struct {
	Draft Draft
	Err   error
}

func (e *SubmitError) Error() string { return e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }

type turnService struct {
	client interview.Client
	events events.Publisher
	log    *logrus.Logger
	opts   Options
}

func NewTurnService(client interview.Client, pub events.Publisher, log *logrus.Logger, opts Options) TurnService {
	return &turnService{
		client: client,
		events: pub,
		log:    defaultLogger(log),
		opts:   opts.withDefaults(),
	}
}

func (t *turnService) Submit(ctx context.Context, s *InterviewSession, text string) (*models.Exchange, error) {
	const op = "TurnService.Submit"

	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer text is required", nil)
	}
	return t.send(ctx, s, Draft{ClientTurnID: provisionalIDPrefix + uuid.NewString(), Text: text}, op)
}

// Retry resends the last failed answer under the same client turn id, so
// a server that deduplicates by that id records it at most once.
func (t *turnService) Retry(ctx context.Context, s *InterviewSession) (*models.Exchange, error) {
	const op = "TurnService.Retry"

	d, ok := s.FailedDraft()
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no failed answer to retry", nil)
	}
	return t.send(ctx, s, d, op)
}

func (t *turnService) send(ctx context.Context, s *InterviewSession, d Draft, op string) (*models.Exchange, error) {
	pending := models.Turn{
		ID:        d.ClientTurnID,
		Speaker:   models.SpeakerCandidate,
		Text:      strings.TrimSpace(d.Text),
		Status:    models.TurnPending,
		CreatedAt: t.opts.Clock(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, utils.E(utils.CodeSessionNotActive, op, "session is closed", nil)
	}
	if s.phase != models.PhaseActive {
		phase := s.phase
		s.mu.Unlock()
		return nil, utils.E(utils.CodeSessionNotActive, op, "session is "+string(phase), nil)
	}
	if _, busy := s.transcript.Pending(); busy {
		s.mu.Unlock()
		return nil, utils.E(utils.CodeConflict, op, "an answer is already in flight", nil)
	}
	if err := s.transcript.Append(pending); err != nil {
		s.mu.Unlock()
		return nil, utils.Rewrap(op, err)
	}
	s.draft = nil
	ev := s.eventLocked(events.TypeTranscript, events.ReasonAnswerPending, pending.CreatedAt)
	s.mu.Unlock()
	emit(t.events, t.log, ev)

	cctx, cancel := s.callContext(ctx, t.opts.AnswerTimeout)
	ex, err := t.client.PostAnswer(cctx, s.id, interview.AnswerRequest{
		ClientTurnID: d.ClientTurnID,
		Text:         pending.Text,
	})
	cancel()

	s.mu.Lock()
	if s.closed {
		// abandoned: the result is discarded, the remote side stays authoritative
		s.mu.Unlock()
		return nil, utils.E(utils.CodeSessionNotActive, op, "session was closed before the answer resolved", err)
	}
	if err == nil {
		err = s.transcript.CommitExchange(pending.ID, *ex)
	}
	if err != nil {
		s.transcript.Remove(pending.ID)
		s.draft = &d
		ev = s.eventLocked(events.TypeTranscript, events.ReasonAnswerFailed, t.opts.Clock())
		s.mu.Unlock()

		err = utils.Rewrap(op, err)
		entry := t.log.WithError(err).WithFields(logrus.Fields{
			"session_id":     s.id,
			"op":             op,
			"code":           utils.CodeOf(err),
			"client_turn_id": d.ClientTurnID,
		})
		if utils.IsTransient(err) {
			entry.Warn("answer not delivered")
		} else {
			entry.Error("answer not delivered")
		}
		emit(t.events, t.log, ev)
		return nil, &SubmitError{Draft: d, Err: err}
	}
	ev = s.eventLocked(events.TypeTranscript, events.ReasonAnswerCommitted, t.opts.Clock())
	s.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"session_id":     s.id,
		"op":             op,
		"candidate_turn": ex.Candidate.ID,
		"reply_turn":     ex.Interviewer.ID,
	}).Debug("exchange committed")
	emit(t.events, t.log, ev)
	return ex, nil
}
