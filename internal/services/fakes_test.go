package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockview/internal/events"
	"github.com/yoockh/mockview/internal/logger"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/providers/interview"
	"github.com/yoockh/mockview/internal/utils"
)

var testStart = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fakeClient struct {
	mu sync.Mutex

	session    *models.Session
	turns      []models.Turn
	getErr     error
	getFn      func(ctx context.Context) error
	answerFn   func(ctx context.Context, req interview.AnswerRequest) (*models.Exchange, error)
	endFn      func(ctx context.Context) error
	reportFn   func(ctx context.Context) (*models.Report, error)
	startID    string
	answers    []interview.AnswerRequest
	nextID     int
	getCalls   atomic.Int32
	endCalls   atomic.Int32
	postCalls  atomic.Int32
	repCalls   atomic.Int32
	startCalls atomic.Int32
}

var _ interview.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		session: &models.Session{ID: "s1", Position: "Backend Engineer", Company: "Acme", StartedAt: testStart},
		turns: []models.Turn{
			{ID: "1", Speaker: models.SpeakerInterviewer, Text: "Tell me about yourself", Status: models.TurnCommitted},
		},
		nextID: 100,
	}
}

func (f *fakeClient) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	f.getCalls.Add(1)
	if f.getFn != nil {
		if err := f.getFn(ctx); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	cp := *f.session
	cp.ID = sessionID
	return &cp, nil
}

func (f *fakeClient) GetTranscript(ctx context.Context, sessionID string) ([]models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]models.Turn(nil), f.turns...), nil
}

// PostAnswer echoes the answer and replies with a numbered question unless
// answerFn overrides it.
func (f *fakeClient) PostAnswer(ctx context.Context, sessionID string, req interview.AnswerRequest) (*models.Exchange, error) {
	f.postCalls.Add(1)
	f.mu.Lock()
	f.answers = append(f.answers, req)
	fn := f.answerFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return f.exchange(req.Text), nil
}

func (f *fakeClient) exchange(text string) *models.Exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID += 2
	return &models.Exchange{
		Candidate:   models.Turn{ID: strconv.Itoa(f.nextID - 1), Speaker: models.SpeakerCandidate, Text: text, Status: models.TurnCommitted},
		Interviewer: models.Turn{ID: strconv.Itoa(f.nextID), Speaker: models.SpeakerInterviewer, Text: fmt.Sprintf("follow-up to %q", text), Status: models.TurnCommitted},
	}
}

func (f *fakeClient) EndSession(ctx context.Context, sessionID string) error {
	f.endCalls.Add(1)
	if f.endFn != nil {
		return f.endFn(ctx)
	}
	return nil
}

func (f *fakeClient) GetReport(ctx context.Context, sessionID string) (*models.Report, error) {
	f.repCalls.Add(1)
	if f.reportFn != nil {
		return f.reportFn(ctx)
	}
	return &models.Report{SessionID: sessionID, OverallRating: 7, TechnicalScore: 8, CommunicationScore: 6, ProblemSolving: 7, CultureFit: 9}, nil
}

func (f *fakeClient) StartInterview(ctx context.Context, req interview.StartRequest) (string, error) {
	f.startCalls.Add(1)
	if f.startID == "" {
		return "", utils.E(utils.CodeUnavailable, "fake", "down", nil)
	}
	return f.startID, nil
}

func (f *fakeClient) sentAnswers() []interview.AnswerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interview.AnswerRequest(nil), f.answers...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) snapshot() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func (p *recordingPublisher) reasons() []events.Reason {
	var out []events.Reason
	for _, ev := range p.snapshot() {
		out = append(out, ev.Reason)
	}
	return out
}

type fixture struct {
	client    *fakeClient
	pub       *recordingPublisher
	lifecycle LifecycleService
	turns     TurnService
	reports   ReportService
	opts      Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := newFakeClient()
	pub := &recordingPublisher{}
	log := logger.Discard()
	opts := Options{
		RequestTimeout: time.Second,
		AnswerTimeout:  time.Second,
		Clock:          func() time.Time { return testStart.Add(5 * time.Minute) },
	}
	return &fixture{
		client:    client,
		pub:       pub,
		lifecycle: NewLifecycleService(client, pub, log, nil, opts),
		turns:     NewTurnService(client, pub, log, opts),
		reports:   NewReportService(client, nil, log, nil, opts),
		opts:      opts,
	}
}

// active returns a loaded session in PhaseActive.
func (f *fixture) active(t *testing.T) *InterviewSession {
	t.Helper()
	s := NewInterviewSession("s1")
	require.NoError(t, f.lifecycle.Load(context.Background(), s))
	require.Equal(t, models.PhaseActive, s.Phase())
	return s
}

func requireAlternating(t *testing.T, turns []models.Turn) {
	t.Helper()
	ids := map[string]bool{}
	for i, turn := range turns {
		require.False(t, ids[turn.ID], "duplicate id %s", turn.ID)
		ids[turn.ID] = true
		if i > 0 {
			require.NotEqual(t, turns[i-1].Speaker, turn.Speaker, "speakers do not alternate at %d", i)
		}
	}
}
