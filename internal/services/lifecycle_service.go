package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockview/internal/events"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/providers/interview"
	"github.com/yoockh/mockview/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// LifecycleService drives a session through
// loading -> active -> ending -> ended, with error reachable from loading,
// active and ending. Leaving error requires an explicit Reload.
type LifecycleService interface {
	Load(ctx context.Context, s *InterviewSession) error
	Reload(ctx context.Context, s *InterviewSession) error
	End(ctx context.Context, s *InterviewSession) error
}

type lifecycleService struct {
	client interview.Client
	events events.Publisher
	log    *logrus.Logger
	opts   Options

	// shared by every session of the process, keyed by session id
	flight *singleflight.Group
}

func NewLifecycleService(client interview.Client, pub events.Publisher, log *logrus.Logger, flight *singleflight.Group, opts Options) LifecycleService {
	if flight == nil {
		flight = &singleflight.Group{}
	}
	return &lifecycleService{
		client: client,
		events: pub,
		log:    defaultLogger(log),
		opts:   opts.withDefaults(),
		flight: flight,
	}
}

// Load fetches metadata and transcript for a session in PhaseLoading.
// It is a no-op once the session is past loading; a session in PhaseError
// returns its stored error until Reload is called.
func (l *lifecycleService) Load(ctx context.Context, s *InterviewSession) error {
	const op = "LifecycleService.Load"

	_, err, _ := l.flight.Do("load:"+s.id, func() (any, error) {
		return nil, l.load(ctx, s, op)
	})
	return err
}

func (l *lifecycleService) load(ctx context.Context, s *InterviewSession, op string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return utils.E(utils.CodeSessionNotActive, op, "session is closed", nil)
	}
	switch s.phase {
	case models.PhaseLoading:
	case models.PhaseError:
		err := s.err
		s.mu.Unlock()
		return err
	default:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// shared by every caller joined on the flight, so one caller leaving
	// must not fail the load for the others
	cctx, cancel := s.callContext(context.WithoutCancel(ctx), l.opts.RequestTimeout)
	defer cancel()

	var (
		meta  *models.Session
		turns []models.Turn
	)
	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		var err error
		meta, err = l.client.GetSession(gctx, s.id)
		return err
	})
	g.Go(func() error {
		var err error
		turns, err = l.client.GetTranscript(gctx, s.id)
		return err
	})
	err := g.Wait()

	var transcript *models.Transcript
	if err == nil {
		transcript, err = models.NewTranscript(turns...)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return utils.E(utils.CodeSessionNotActive, op, "session was closed while loading", err)
	}
	if err != nil {
		err = utils.Rewrap(op, err)
		s.phase = models.PhaseError
		s.err = err
		ev := s.eventLocked(events.TypePhase, events.ReasonLoadFailed, l.opts.Clock())
		s.mu.Unlock()

		l.log.WithError(err).WithFields(logrus.Fields{
			"session_id": s.id,
			"op":         op,
			"code":       utils.CodeOf(err),
		}).Error("session load failed")
		emit(l.events, l.log, ev)
		return err
	}

	s.meta = meta
	s.transcript = transcript
	s.phase = models.PhaseActive
	s.err = nil
	s.leftActive = time.Time{}
	now := l.opts.Clock()
	phaseEv := s.eventLocked(events.TypePhase, events.ReasonSessionLoaded, now)
	transcriptEv := s.eventLocked(events.TypeTranscript, events.ReasonSessionLoaded, now)
	s.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"session_id": s.id,
		"op":         op,
		"turns":      len(turns),
	}).Info("session loaded")
	emit(l.events, l.log, phaseEv, transcriptEv)
	return nil
}

// Reload moves a failed session back to PhaseLoading and loads it again.
func (l *lifecycleService) Reload(ctx context.Context, s *InterviewSession) error {
	const op = "LifecycleService.Reload"

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return utils.E(utils.CodeSessionNotActive, op, "session is closed", nil)
	}
	if s.phase != models.PhaseError {
		phase := s.phase
		s.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "only a failed session can be reloaded, session is "+string(phase), nil)
	}
	s.phase = models.PhaseLoading
	s.err = nil
	ev := s.eventLocked(events.TypePhase, events.ReasonReloadRequested, l.opts.Clock())
	s.mu.Unlock()

	emit(l.events, l.log, ev)
	return l.Load(ctx, s)
}

// End closes the remote session exactly once. Concurrent callers share one
// remote call; calls after the session reached ending or ended are no-ops.
func (l *lifecycleService) End(ctx context.Context, s *InterviewSession) error {
	const op = "LifecycleService.End"

	_, err, _ := l.flight.Do("end:"+s.id, func() (any, error) {
		return nil, l.end(ctx, s, op)
	})
	return err
}

func (l *lifecycleService) end(ctx context.Context, s *InterviewSession, op string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return utils.E(utils.CodeSessionNotActive, op, "session is closed", nil)
	}
	switch s.phase {
	case models.PhaseEnding, models.PhaseEnded:
		s.mu.Unlock()
		return nil
	case models.PhaseActive:
	default:
		phase := s.phase
		s.mu.Unlock()
		return utils.E(utils.CodeSessionNotActive, op, "cannot end a session that is "+string(phase), nil)
	}
	now := l.opts.Clock()
	s.phase = models.PhaseEnding
	s.leftActive = now
	ev := s.eventLocked(events.TypePhase, events.ReasonEndRequested, now)
	s.mu.Unlock()
	emit(l.events, l.log, ev)

	// the end call outlives the request that asked for it; only the
	// timeout or closing the session abandons it
	cctx, cancel := s.callContext(context.WithoutCancel(ctx), l.opts.RequestTimeout)
	err := l.client.EndSession(cctx, s.id)
	cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return utils.E(utils.CodeSessionNotActive, op, "session was closed while ending", err)
	}
	if err != nil {
		err = utils.Rewrap(op, err)
		s.phase = models.PhaseError
		s.err = err
		ev = s.eventLocked(events.TypePhase, events.ReasonEndFailed, l.opts.Clock())
		s.mu.Unlock()

		l.log.WithError(err).WithFields(logrus.Fields{
			"session_id": s.id,
			"op":         op,
			"code":       utils.CodeOf(err),
		}).Error("session end failed")
		emit(l.events, l.log, ev)
		return err
	}

	s.phase = models.PhaseEnded
	ev = s.eventLocked(events.TypePhase, events.ReasonSessionEnded, l.opts.Clock())
	s.mu.Unlock()

	l.log.WithFields(logrus.Fields{"session_id": s.id, "op": op}).Info("session ended")
	emit(l.events, l.log, ev)
	return nil
}
