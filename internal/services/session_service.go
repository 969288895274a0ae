package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockview/internal/providers/interview"
	"github.com/yoockh/mockview/internal/utils"
)

// SessionService keeps the open interview sessions of this process. Each
// session is independent; only the session id links a request to its state.
type SessionService interface {
	Start(ctx context.Context, req interview.StartRequest) (sessionID string, err error)
	Open(ctx context.Context, sessionID string) (*InterviewSession, error)
	Get(sessionID string) (*InterviewSession, error)
	Close(sessionID string) bool
}

type sessionService struct {
	client    interview.Client
	lifecycle LifecycleService
	log       *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*InterviewSession
}

func NewSessionService(client interview.Client, lifecycle LifecycleService, log *logrus.Logger) SessionService {
	return &sessionService{
		client:    client,
		lifecycle: lifecycle,
		log:       defaultLogger(log),
		sessions:  make(map[string]*InterviewSession),
	}
}

// Start hands the resume form to the interview service and returns the id of
// the session it created.
func (s *sessionService) Start(ctx context.Context, req interview.StartRequest) (string, error) {
	const op = "SessionService.Start"

	id, err := s.client.StartInterview(ctx, req)
	if err != nil {
		return "", utils.Rewrap(op, err)
	}
	s.log.WithFields(logrus.Fields{"session_id": id, "op": op, "position": req.Position}).Info("interview started")
	return id, nil
}

// Open returns the session for sessionID, creating and loading it on first
// use. A session whose load failed stays in the error phase and is returned
// together with its error.
func (s *sessionService) Open(ctx context.Context, sessionID string) (*InterviewSession, error) {
	const op = "SessionService.Open"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = NewInterviewSession(sessionID)
		s.sessions[sessionID] = sess
	}
	s.mu.Unlock()

	if err := s.lifecycle.Load(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

func (s *sessionService) Get(sessionID string) (*InterviewSession, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "session is not open", nil)
	}
	return sess, nil
}

// Close drops the session and abandons its in-flight calls.
func (s *sessionService) Close(sessionID string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		sess.Close()
		s.log.WithField("session_id", sessionID).Info("session closed")
	}
	return ok
}
