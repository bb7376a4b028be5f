package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/utils"
)

// ----------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------

type fakeCache struct {
	mu    sync.Mutex
	store map[string]*models.AnalysisResult
	gets  int32
	puts  int32
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]*models.AnalysisResult{}}
}

func (c *fakeCache) Get(_ context.Context, fingerprint string) (*models.AnalysisResult, bool) {
	atomic.AddInt32(&c.gets, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.store[fingerprint]
	return r, ok
}

func (c *fakeCache) Put(_ context.Context, fingerprint string, result *models.AnalysisResult) {
	atomic.AddInt32(&c.puts, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[fingerprint] = result
}

type fakeMarket struct {
	calls int32
	delay time.Duration
	err   error
}

func (m *fakeMarket) FetchMarketData(ctx context.Context, _ models.PropertyInput) (*models.MarketData, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, utils.ErrProviderTimeout
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &models.MarketData{MonthlyRentEstimate: 2600, AverageNightlyRate: 210, DataSource: "test"}, nil
}

type fakeComparables struct {
	calls int32
	delay time.Duration
	err   error
}

func (c *fakeComparables) FetchComparables(ctx context.Context, _ models.PropertyInput) (*models.ComparableListings, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, utils.ErrProviderTimeout
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &models.ComparableListings{
		Listings: []models.ComparableListing{
			{NightlyRate: 200, Occupancy: 0.70},
			{NightlyRate: 220, Occupancy: 0.72},
			{NightlyRate: 210, Occupancy: 0.71},
		},
		AverageRate:      210,
		AverageOccupancy: 0.71,
	}, nil
}

func newTestAnalysisService(cache *fakeCache, market *fakeMarket, comps *fakeComparables) *AnalysisService {
	return NewAnalysisService(
		NewJobRegistry(),
		cache,
		market,
		comps,
		testFinanceService(),
	)
}

func waitTerminal(t *testing.T, s *AnalysisService, outcome *SubmitOutcome) models.AnalysisJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetStatus(outcome.Job.ID)
		require.NoError(t, err)
		if job.State.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return models.AnalysisJob{}
}

// ----------------------------------------------------------------
// Tests
// ----------------------------------------------------------------

func TestSubmitAnalysisHappyPath(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{}
	comps := &fakeComparables{}
	s := newTestAnalysisService(cache, market, comps)

	outcome, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)
	assert.False(t, outcome.CacheHit)
	assert.False(t, outcome.Deduplicated)

	job := waitTerminal(t, s, outcome)
	assert.Equal(t, models.JobStateSucceeded, job.State)
	assert.Equal(t, models.StageComplete, job.Stage)
	require.NotNil(t, job.Result)
	assert.Equal(t, 3, job.Result.ComparableCount)

	// Result was cached before the job went terminal.
	assert.Equal(t, int32(1), atomic.LoadInt32(&cache.puts))
}

func TestSubmitAnalysisCacheHitSkipsProviders(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{}
	comps := &fakeComparables{}
	s := newTestAnalysisService(cache, market, comps)

	fp := utils.Fingerprint(utils.NormalizeProperty(testProperty()))
	cache.store[fp] = &models.AnalysisResult{InvestmentScore: 8.1}

	outcome, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)
	assert.True(t, outcome.CacheHit)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 8.1, outcome.Result.InvestmentScore)
	assert.Equal(t, models.JobStateSucceeded, outcome.Job.State)

	assert.Equal(t, int32(0), atomic.LoadInt32(&market.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&comps.calls))
}

func TestSubmitAnalysisDeduplicatesInFlight(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{delay: 100 * time.Millisecond}
	comps := &fakeComparables{delay: 100 * time.Millisecond}
	s := newTestAnalysisService(cache, market, comps)

	first, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)
	require.False(t, first.Deduplicated)

	second, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Job.ID, second.Job.ID)

	waitTerminal(t, s, first)

	// Exactly one provider fan-out and one cache write for N submits.
	assert.Equal(t, int32(1), atomic.LoadInt32(&market.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&comps.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&cache.puts))
}

func TestSubmitAnalysisEquivalentInputsShareJob(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{delay: 100 * time.Millisecond}
	comps := &fakeComparables{delay: 100 * time.Millisecond}
	s := newTestAnalysisService(cache, market, comps)

	first, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)

	variant := testProperty()
	variant.Street = "  123  MAIN ST "
	variant.City = "TORONTO"
	second, err := s.SubmitAnalysis(context.Background(), variant)
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Job.ID, second.Job.ID)
	waitTerminal(t, s, first)
}

func TestSubmitAnalysisMarketFailureFailsJob(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{err: utils.ErrProviderUnavailable}
	comps := &fakeComparables{}
	s := newTestAnalysisService(cache, market, comps)

	outcome, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)

	job := waitTerminal(t, s, outcome)
	assert.Equal(t, models.JobStateFailed, job.State)
	assert.Equal(t, "provider_unavailable", job.ErrorCode)
	assert.Nil(t, job.Result)

	// Failed analyses are never cached.
	assert.Equal(t, int32(0), atomic.LoadInt32(&cache.puts))
}

func TestSubmitAnalysisComparablesFailureFailsJob(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{}
	comps := &fakeComparables{err: utils.ErrProviderRateLimited}
	s := newTestAnalysisService(cache, market, comps)

	outcome, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)

	job := waitTerminal(t, s, outcome)
	assert.Equal(t, models.JobStateFailed, job.State)
	assert.Equal(t, "provider_rate_limited", job.ErrorCode)
	assert.Equal(t, int32(0), atomic.LoadInt32(&cache.puts))
}

func TestSubmitAnalysisAfterFailureRetriesFresh(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{err: utils.ErrProviderUnavailable}
	comps := &fakeComparables{}
	s := newTestAnalysisService(cache, market, comps)

	first, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)
	waitTerminal(t, s, first)

	// Provider recovers; a resubmission starts a fresh job.
	market.err = nil
	second, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)
	assert.False(t, second.Deduplicated)
	assert.NotEqual(t, first.Job.ID, second.Job.ID)

	job := waitTerminal(t, s, second)
	assert.Equal(t, models.JobStateSucceeded, job.State)
}

func TestJobTimeoutCeiling(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{delay: 2 * time.Second}
	comps := &fakeComparables{delay: 2 * time.Second}
	s := newTestAnalysisService(cache, market, comps)
	s.jobTimeout = 50 * time.Millisecond

	outcome, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)

	job := waitTerminal(t, s, outcome)
	assert.Equal(t, models.JobStateFailed, job.State)
	assert.Equal(t, utils.ErrCodeJobTimeout, job.ErrorCode)
	assert.Nil(t, job.Result)

	// Partial provider data is discarded; nothing reaches the cache.
	assert.Equal(t, int32(0), atomic.LoadInt32(&cache.puts))
}

func TestCancelJobMarksCancelled(t *testing.T) {
	cache := newFakeCache()
	market := &fakeMarket{delay: 2 * time.Second}
	comps := &fakeComparables{delay: 2 * time.Second}
	s := newTestAnalysisService(cache, market, comps)

	outcome, err := s.SubmitAnalysis(context.Background(), testProperty())
	require.NoError(t, err)

	// Let the job goroutine start before cancelling.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.CancelJob(outcome.Job.ID))

	job := waitTerminal(t, s, outcome)
	assert.Equal(t, models.JobStateFailed, job.State)
	assert.Equal(t, utils.ErrCodeJobCancelled, job.ErrorCode)
	assert.Equal(t, int32(0), atomic.LoadInt32(&cache.puts))
}

func TestGetStatusUnknownJob(t *testing.T) {
	s := newTestAnalysisService(newFakeCache(), &fakeMarket{}, &fakeComparables{})

	_, err := s.GetStatus(uuid.New())
	assert.ErrorIs(t, err, utils.ErrJobNotFound)

	err = s.CancelJob(uuid.New())
	assert.ErrorIs(t, err, utils.ErrJobNotFound)
}
