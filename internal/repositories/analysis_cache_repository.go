package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/investorprops/analysis-service/internal/models"
)

/*
   analysis_cache holds one row per property fingerprint:

       CREATE TABLE analysis_cache (
           fingerprint TEXT PRIMARY KEY,
           result      JSONB NOT NULL,
           computed_at TIMESTAMPTZ NOT NULL
       );

   Rows are immutable once written; concurrent writers for the same
   fingerprint are safe because the computation is deterministic and
   the last writer wins with an equivalent value.
*/

type AnalysisCacheRepository interface {
	// Get returns the cached result for fingerprint, or (nil, nil) when
	// absent or older than ttl.
	Get(ctx context.Context, fingerprint string, ttl time.Duration) (*models.AnalysisResult, error)

	// Put overwrites any existing entry and stamps it with now.
	Put(ctx context.Context, fingerprint string, result *models.AnalysisResult) error

	// PurgeExpired removes rows older than ttl; returns rows removed.
	PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error)
}

type analysisCacheRepo struct {
	db DB
}

func NewAnalysisCacheRepository(db DB) AnalysisCacheRepository {
	return &analysisCacheRepo{db: db}
}

func (r *analysisCacheRepo) Get(
	ctx context.Context,
	fingerprint string,
	ttl time.Duration,
) (*models.AnalysisResult, error) {
	row := r.db.QueryRow(ctx, `
        SELECT result
        FROM analysis_cache
        WHERE fingerprint = $1
          AND computed_at > $2
    `, fingerprint, time.Now().UTC().Add(-ttl))

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("cache get unmarshal: %w", err)
	}
	return &result, nil
}

func (r *analysisCacheRepo) Put(
	ctx context.Context,
	fingerprint string,
	result *models.AnalysisResult,
) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache put marshal: %w", err)
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO analysis_cache (fingerprint, result, computed_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (fingerprint)
        DO UPDATE SET result = EXCLUDED.result, computed_at = NOW()
    `, fingerprint, raw)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (r *analysisCacheRepo) PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
        DELETE FROM analysis_cache WHERE computed_at <= $1
    `, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return cmd.RowsAffected(), nil
}
