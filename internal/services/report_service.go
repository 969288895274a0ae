package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockview/internal/cache"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/providers/interview"
	"github.com/yoockh/mockview/internal/utils"
	"golang.org/x/sync/singleflight"
)

// ReportService hands out the scored report of an ended session. The first
// successful fetch is kept on the session and returned from then on.
type ReportService interface {
	Fetch(ctx context.Context, s *InterviewSession) (*models.Report, error)
}

type reportService struct {
	client interview.Client
	cache  cache.ReportCache
	log    *logrus.Logger
	opts   Options
	flight *singleflight.Group
}

func NewReportService(client interview.Client, rc cache.ReportCache, log *logrus.Logger, flight *singleflight.Group, opts Options) ReportService {
	if rc == nil {
		rc = cache.Nop{}
	}
	if flight == nil {
		flight = &singleflight.Group{}
	}
	return &reportService{
		client: client,
		cache:  rc,
		log:    defaultLogger(log),
		opts:   opts.withDefaults(),
		flight: flight,
	}
}

func (r *reportService) Fetch(ctx context.Context, s *InterviewSession) (*models.Report, error) {
	const op = "ReportService.Fetch"

	s.mu.Lock()
	phase, cached := s.phase, s.report
	s.mu.Unlock()

	if phase != models.PhaseEnded {
		return nil, utils.E(utils.CodePreconditionFailed, op, "report is available once the session has ended, session is "+string(phase), nil)
	}
	if cached != nil {
		return cached, nil
	}

	v, err, _ := r.flight.Do("report:"+s.id, func() (any, error) {
		return r.fetch(ctx, s, op)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Report), nil
}

func (r *reportService) fetch(ctx context.Context, s *InterviewSession, op string) (*models.Report, error) {
	s.mu.Lock()
	if s.report != nil {
		rep := s.report
		s.mu.Unlock()
		return rep, nil
	}
	s.mu.Unlock()

	entry := r.log.WithFields(logrus.Fields{"session_id": s.id, "op": op})
	// callers joined on the flight share this fetch
	ctx = context.WithoutCancel(ctx)

	rep, hit, err := r.cache.GetReport(ctx, s.id)
	if err != nil {
		entry.WithError(err).Warn("report cache read failed")
	}
	if !hit {
		cctx, cancel := s.callContext(ctx, r.opts.RequestTimeout)
		rep, err = r.client.GetReport(cctx, s.id)
		cancel()
		if err != nil {
			return nil, utils.Rewrap(op, err)
		}
		if rep.SessionID == "" {
			rep.SessionID = s.id
		}
		if err := rep.Validate(); err != nil {
			return nil, utils.Rewrap(op, err)
		}
		if err := r.cache.SetReport(ctx, rep); err != nil {
			entry.WithError(err).Warn("report cache write failed")
		}
	}

	s.mu.Lock()
	if s.report == nil {
		s.report = rep
	}
	rep = s.report
	s.mu.Unlock()

	entry.WithField("cache_hit", hit).Info("report fetched")
	return rep, nil
}
