package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockview/internal/logger"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/utils"
)

type memoryCache struct {
	mu      sync.Mutex
	reports map[string]*models.Report
	sets    int
}

func (m *memoryCache) GetReport(_ context.Context, id string) (*models.Report, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	return r, ok, nil
}

func (m *memoryCache) SetReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reports == nil {
		m.reports = map[string]*models.Report{}
	}
	m.sets++
	m.reports[r.SessionID] = r
	return nil
}

func ended(t *testing.T, f *fixture) *InterviewSession {
	t.Helper()
	s := f.active(t)
	require.NoError(t, f.lifecycle.End(context.Background(), s))
	return s
}

func TestFetchBeforeEndIsRejectedLocally(t *testing.T) {
	f := newFixture(t)
	s := f.active(t)

	_, err := f.reports.Fetch(context.Background(), s)
	assert.Equal(t, utils.CodePreconditionFailed, utils.CodeOf(err))
	assert.Equal(t, int32(0), f.client.repCalls.Load())
}

func TestFetchAfterEndIsCachedOnSession(t *testing.T) {
	f := newFixture(t)
	s := ended(t, f)

	first, err := f.reports.Fetch(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 7.0, first.OverallRating)
	assert.Equal(t, "s1", first.SessionID)

	second, err := f.reports.Fetch(context.Background(), s)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), f.client.repCalls.Load())
}

func TestConcurrentFetchesShareOneCall(t *testing.T) {
	f := newFixture(t)
	s := ended(t, f)

	release := make(chan struct{})
	f.client.reportFn = func(ctx context.Context) (*models.Report, error) {
		<-release
		return &models.Report{OverallRating: 9}, nil
	}

	const n = 6
	var wg sync.WaitGroup
	reports := make([]*models.Report, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.reports.Fetch(context.Background(), s)
			assert.NoError(t, err)
			reports[i] = r
		}(i)
	}
	require.Eventually(t, func() bool { return f.client.repCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), f.client.repCalls.Load())
	for _, r := range reports {
		assert.Same(t, reports[0], r)
	}
}

func TestOutOfRangeReportIsNotKept(t *testing.T) {
	f := newFixture(t)
	s := ended(t, f)

	f.client.reportFn = func(ctx context.Context) (*models.Report, error) {
		return &models.Report{OverallRating: 11}, nil
	}
	_, err := f.reports.Fetch(context.Background(), s)
	assert.Equal(t, utils.CodeUnavailable, utils.CodeOf(err))

	f.client.reportFn = nil
	r, err := f.reports.Fetch(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 7.0, r.OverallRating)
	assert.Equal(t, int32(2), f.client.repCalls.Load())
}

func TestReportNotReadyCanBeRetried(t *testing.T) {
	f := newFixture(t)
	s := ended(t, f)

	f.client.reportFn = func(ctx context.Context) (*models.Report, error) {
		return nil, utils.E(utils.CodePreconditionFailed, "fake", "report is not available yet", nil)
	}
	_, err := f.reports.Fetch(context.Background(), s)
	assert.Equal(t, utils.CodePreconditionFailed, utils.CodeOf(err))
	assert.Equal(t, models.PhaseEnded, s.Phase())
}

func TestFetchUsesSharedCache(t *testing.T) {
	f := newFixture(t)
	rc := &memoryCache{}
	f.reports = NewReportService(f.client, rc, logger.Discard(), nil, f.opts)

	s := ended(t, f)
	_, err := f.reports.Fetch(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.sets)

	// another gateway instance with its own session object hits the cache
	other := ended(t, f)
	r, err := f.reports.Fetch(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, 7.0, r.OverallRating)
	assert.Equal(t, int32(1), f.client.repCalls.Load())
}

func TestReportWhileEndIsInFlight(t *testing.T) {
	f := newFixture(t)
	s := f.active(t)

	release := make(chan struct{})
	f.client.endFn = func(context.Context) error {
		<-release
		return nil
	}

	endDone := make(chan error, 1)
	go func() { endDone <- f.lifecycle.End(context.Background(), s) }()
	require.Eventually(t, func() bool { return s.Phase() == models.PhaseEnding }, 2*time.Second, 5*time.Millisecond)

	_, err := f.reports.Fetch(context.Background(), s)
	assert.Equal(t, utils.CodePreconditionFailed, utils.CodeOf(err))
	assert.Equal(t, int32(0), f.client.repCalls.Load())

	close(release)
	require.NoError(t, <-endDone)

	first, err := f.reports.Fetch(context.Background(), s)
	require.NoError(t, err)
	second, err := f.reports.Fetch(context.Background(), s)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), f.client.repCalls.Load())
}

func TestFetchSurvivesFirstCallerLeaving(t *testing.T) {
	f := newFixture(t)
	s := ended(t, f)

	release := make(chan struct{})
	callErr := make(chan error, 1)
	f.client.reportFn = func(ctx context.Context) (*models.Report, error) {
		<-release
		callErr <- ctx.Err()
		return &models.Report{OverallRating: 6}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := f.reports.Fetch(ctx, s)
		first <- err
	}()
	require.Eventually(t, func() bool { return f.client.repCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	close(release)

	assert.NoError(t, <-callErr)
	assert.NoError(t, <-first)

	r, err := f.reports.Fetch(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 6.0, r.OverallRating)
	assert.Equal(t, int32(1), f.client.repCalls.Load())
}
