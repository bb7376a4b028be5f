package utils

import "errors"

/*
   Sentinel errors for the analysis pipeline.
   Callers do: if errors.Is(err, ErrXYZ) { ... }
*/
var (
	// Gateway classifications, assigned after the per-call retry is exhausted.
	ErrProviderTimeout         = errors.New("provider_timeout")
	ErrProviderRateLimited     = errors.New("provider_rate_limited")
	ErrProviderUnavailable     = errors.New("provider_unavailable")
	ErrProviderInvalidResponse = errors.New("provider_invalid_response")

	// Cache failures are never fatal; logged and treated as a miss.
	ErrCacheUnavailable = errors.New("cache_unavailable")

	// Orchestrator-enforced ceiling on a running job.
	ErrJobTimeout = errors.New("job_timeout")

	ErrJobCancelled = errors.New("job_cancelled")
	ErrJobNotFound  = errors.New("job_not_found")

	// Defensive catch-all; the engine's totality contract should make
	// this unreachable.
	ErrInternalComputation = errors.New("internal_computation_error")
)

// IsProviderError reports whether err carries one of the gateway
// classifications.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, ErrProviderRateLimited) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderInvalidResponse)
}

// ClassificationCode returns the stable code for a pipeline error, for
// storage on the job. Provider specifics stay in server-side logs; the
// client-facing message is generic.
func ClassificationCode(err error) string {
	switch {
	case errors.Is(err, ErrProviderTimeout):
		return "provider_timeout"
	case errors.Is(err, ErrProviderRateLimited):
		return "provider_rate_limited"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrProviderInvalidResponse):
		return "provider_invalid_response"
	case errors.Is(err, ErrJobTimeout):
		return ErrCodeJobTimeout
	case errors.Is(err, ErrJobCancelled):
		return ErrCodeJobCancelled
	default:
		return ErrCodeInternal
	}
}
