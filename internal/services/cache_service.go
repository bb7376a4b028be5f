package services

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/repositories"
	"github.com/investorprops/analysis-service/internal/utils"
)

// AnalysisCache is the cache contract the orchestrator depends on.
// Implementations must fail open: a broken store behaves like a miss
// on read and a no-op on write, never an error.
type AnalysisCache interface {
	Get(ctx context.Context, fingerprint string) (*models.AnalysisResult, bool)
	Put(ctx context.Context, fingerprint string, result *models.AnalysisResult)
}

/*
   CacheService layers a process-local tier over the durable Postgres
   cache so a hot fingerprint costs no round-trip. The local tier's TTL
   is much shorter than the repository's; entries are immutable, so the
   two tiers can never disagree on content, only on presence.
*/
type CacheService struct {
	repo  repositories.AnalysisCacheRepository
	local *gocache.Cache
	ttl   time.Duration
}

func NewCacheService(repo repositories.AnalysisCacheRepository) *CacheService {
	return &CacheService{
		repo:  repo,
		local: gocache.New(constants.LocalCacheTTL, constants.LocalCacheSweepInterval),
		ttl:   constants.CacheTTL,
	}
}

func (c *CacheService) Get(ctx context.Context, fingerprint string) (*models.AnalysisResult, bool) {
	if v, ok := c.local.Get(fingerprint); ok {
		return v.(*models.AnalysisResult), true
	}

	result, err := c.repo.Get(ctx, fingerprint, c.ttl)
	if err != nil {
		// Fail-open read: a cache error is a miss, never a failure.
		utils.Logger.WithError(err).Warn("Analysis cache read failed; treating as miss")
		return nil, false
	}
	if result == nil {
		return nil, false
	}

	c.local.SetDefault(fingerprint, result)
	return result, true
}

func (c *CacheService) Put(ctx context.Context, fingerprint string, result *models.AnalysisResult) {
	c.local.SetDefault(fingerprint, result)

	if err := c.repo.Put(ctx, fingerprint, result); err != nil {
		// Best-effort write; the analysis still succeeds.
		utils.Logger.WithError(err).Warn("Analysis cache write failed; result not persisted")
	}
}

// PurgeExpired removes stale rows from the durable tier. Called from
// the maintenance cron.
func (c *CacheService) PurgeExpired(ctx context.Context) error {
	removed, err := c.repo.PurgeExpired(ctx, c.ttl)
	if err != nil {
		return err
	}
	if removed > 0 {
		utils.Logger.Infof("Purged %d expired analysis cache rows", removed)
	}
	return nil
}
