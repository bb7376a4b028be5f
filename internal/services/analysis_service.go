package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/utils"
)

// MarketDataProvider fetches rent and rate aggregates for a property.
type MarketDataProvider interface {
	FetchMarketData(ctx context.Context, input models.PropertyInput) (*models.MarketData, error)
}

// ComparablesProvider fetches short-term rental comps for a property.
type ComparablesProvider interface {
	FetchComparables(ctx context.Context, input models.PropertyInput) (*models.ComparableListings, error)
}

/*
   AnalysisService orchestrates one analysis job end to end: normalize
   and fingerprint the input, short-circuit on a cache hit, dedup
   against the in-flight registry, then drive the provider fan-out and
   the computation engine from a goroutine that owns the job.
*/
type AnalysisService struct {
	registry *JobRegistry
	cache    AnalysisCache
	market   MarketDataProvider
	comps    ComparablesProvider
	finance  *FinanceService

	// Ceiling on one job's run, constants.JobTimeout unless overridden.
	jobTimeout time.Duration
}

func NewAnalysisService(
	registry *JobRegistry,
	cache AnalysisCache,
	market MarketDataProvider,
	comps ComparablesProvider,
	finance *FinanceService,
) *AnalysisService {
	return &AnalysisService{
		registry:   registry,
		cache:      cache,
		market:     market,
		comps:      comps,
		finance:    finance,
		jobTimeout: constants.JobTimeout,
	}
}

// SubmitOutcome tells the controller how a submission resolved.
type SubmitOutcome struct {
	Job    models.AnalysisJob
	Result *models.AnalysisResult
	// CacheHit: Result is set and the job is already terminal.
	CacheHit bool
	// Deduplicated: an equivalent job was already in flight; Job is
	// that job.
	Deduplicated bool
}

// SubmitAnalysis validates nothing itself (the controller already
// did); it normalizes, fingerprints, consults the cache, and either
// joins an in-flight job or starts a new one.
func (s *AnalysisService) SubmitAnalysis(ctx context.Context, input models.PropertyInput) (*SubmitOutcome, error) {
	normalized := utils.NormalizeProperty(input)
	fingerprint := utils.Fingerprint(normalized)

	log := utils.Logger.WithField("fingerprint", fingerprint)

	if cached, ok := s.cache.Get(ctx, fingerprint); ok {
		job, created := s.registry.CreateOrJoin(normalized, fingerprint)
		if created {
			s.registry.Complete(job.ID, cached)
			job, _ = s.registry.Snapshot(job.ID)
		}
		log.WithField("job_id", job.ID).Info("Analysis served from cache")
		return &SubmitOutcome{Job: job, Result: cached, CacheHit: true}, nil
	}

	job, created := s.registry.CreateOrJoin(normalized, fingerprint)
	if !created {
		log.WithField("job_id", job.ID).Info("Joined in-flight analysis job")
		return &SubmitOutcome{Job: job, Deduplicated: true}, nil
	}

	// The job outlives the submit request, so it runs under its own
	// context bounded by the job ceiling rather than the request's.
	jobCtx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	s.registry.BindCancel(job.ID, cancel)

	log.WithField("job_id", job.ID).Info("Starting analysis job")
	go s.runAnalysis(jobCtx, cancel, job.ID, normalized, fingerprint)

	return &SubmitOutcome{Job: job}, nil
}

// GetStatus returns a read-only snapshot for polling clients.
func (s *AnalysisService) GetStatus(jobID uuid.UUID) (models.AnalysisJob, error) {
	job, ok := s.registry.Snapshot(jobID)
	if !ok {
		return models.AnalysisJob{}, utils.ErrJobNotFound
	}
	return job, nil
}

// CancelJob aborts an in-flight job; its goroutine observes the
// cancellation, aborts provider calls, and finalizes the state.
func (s *AnalysisService) CancelJob(jobID uuid.UUID) error {
	if _, ok := s.registry.Snapshot(jobID); !ok {
		return utils.ErrJobNotFound
	}
	s.registry.Cancel(jobID)
	return nil
}

type marketFetch struct {
	data *models.MarketData
	err  error
}

type comparablesFetch struct {
	comps *models.ComparableListings
	err   error
}

func (s *AnalysisService) runAnalysis(
	ctx context.Context,
	cancel context.CancelFunc,
	jobID uuid.UUID,
	input models.PropertyInput,
	fingerprint string,
) {
	defer cancel()

	log := utils.Logger.WithField("job_id", jobID)

	s.registry.MarkRunning(jobID)
	s.registry.AdvanceStage(jobID, models.StagePropertyFetch)
	s.registry.AdvanceStage(jobID, models.StageAddressValidate)

	// Fan out to both providers; block on joint completion or the job
	// ceiling, whichever comes first.
	marketCh := make(chan marketFetch, 1)
	compsCh := make(chan comparablesFetch, 1)

	go func() {
		data, err := s.market.FetchMarketData(ctx, input)
		marketCh <- marketFetch{data: data, err: err}
	}()
	go func() {
		comps, err := s.comps.FetchComparables(ctx, input)
		compsCh <- comparablesFetch{comps: comps, err: err}
	}()

	var market marketFetch
	var comps comparablesFetch
	for i := 0; i < 2; i++ {
		select {
		case market = <-marketCh:
			s.registry.AdvanceStage(jobID, models.StageMarketData)
		case comps = <-compsCh:
			s.registry.AdvanceStage(jobID, models.StageComparables)
			s.registry.AdvanceStage(jobID, models.StageAirbnbData)
		case <-ctx.Done():
			s.finalizeAborted(ctx, jobID, log)
			return
		}
	}

	if ctx.Err() != nil {
		s.finalizeAborted(ctx, jobID, log)
		return
	}

	// A provider failure that survives its retry fails the job with
	// the classification; partial data is discarded, nothing cached.
	if market.err != nil {
		log.WithError(market.err).Error("Market data fetch failed; failing job")
		s.registry.Fail(jobID, utils.ClassificationCode(market.err))
		return
	}
	if comps.err != nil {
		log.WithError(comps.err).Error("Comparables fetch failed; failing job")
		s.registry.Fail(jobID, utils.ClassificationCode(comps.err))
		return
	}

	s.registry.AdvanceStage(jobID, models.StageRentalAnalysis)
	s.registry.AdvanceStage(jobID, models.StageOccupancyCalc)
	s.registry.AdvanceStage(jobID, models.StageFinancialModel)

	// The engine is total; it cannot fail, only produce zeros the
	// insights call out.
	result := s.finance.Analyze(input, *market.data, *comps.comps)

	s.registry.AdvanceStage(jobID, models.StageROICalculation)
	s.registry.AdvanceStage(jobID, models.StageReportGeneration)

	if ctx.Err() != nil {
		s.finalizeAborted(ctx, jobID, log)
		return
	}

	// Cache write happens-before the terminal transition so a client
	// observing succeeded can always retrieve the result. The write
	// context is fresh: the job context may be near its deadline.
	s.cache.Put(context.Background(), fingerprint, result)
	s.registry.Complete(jobID, result)
	log.Info("Analysis job succeeded")
}

func (s *AnalysisService) finalizeAborted(ctx context.Context, jobID uuid.UUID, log *logrus.Entry) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.registry.Fail(jobID, utils.ErrCodeJobTimeout)
		log.Info("Analysis job timed out")
		return
	}
	s.registry.Fail(jobID, utils.ErrCodeJobCancelled)
	log.Info("Analysis job cancelled")
}
