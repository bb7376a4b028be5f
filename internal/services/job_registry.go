package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/utils"
)

/*
   JobRegistry owns every AnalysisJob in the process. The orchestrator
   is its only writer; the status endpoint reads copies through
   Snapshot. The fingerprint index provides the atomic check-and-insert
   the dedup invariant requires: two concurrent submissions with the
   same fingerprint can never both observe "no job running".
*/
type JobRegistry struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*registryEntry
	inflight map[string]uuid.UUID
}

type registryEntry struct {
	job    models.AnalysisJob
	cancel context.CancelFunc
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{
		jobs:     make(map[uuid.UUID]*registryEntry),
		inflight: make(map[string]uuid.UUID),
	}
}

// CreateOrJoin either registers a new pending job for the fingerprint
// or, when one is already in flight, returns that job. The check and
// the insert happen under one lock acquisition.
func (r *JobRegistry) CreateOrJoin(input models.PropertyInput, fingerprint string) (models.AnalysisJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.inflight[fingerprint]; ok {
		if entry, ok := r.jobs[existingID]; ok && !entry.job.State.Terminal() {
			return entry.job, false
		}
	}

	now := time.Now().UTC()
	job := models.AnalysisJob{
		ID:          uuid.New(),
		Fingerprint: fingerprint,
		State:       models.JobStatePending,
		Stage:       models.StageInit,
		Input:       input,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.jobs[job.ID] = &registryEntry{job: job}
	r.inflight[fingerprint] = job.ID
	return job, true
}

// BindCancel attaches the job's context cancel func so client-initiated
// cancellation can abort in-flight provider calls.
func (r *JobRegistry) BindCancel(id uuid.UUID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.jobs[id]; ok {
		entry.cancel = cancel
	}
}

// MarkRunning transitions pending -> running.
func (r *JobRegistry) MarkRunning(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok || entry.job.State != models.JobStatePending {
		return
	}
	entry.job.State = models.JobStateRunning
	entry.job.UpdatedAt = time.Now().UTC()
}

// AdvanceStage moves the job forward. Transitions are monotonic: a
// stage at or before the current one is ignored.
func (r *JobRegistry) AdvanceStage(id uuid.UUID, stage models.ProgressStage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok || entry.job.State.Terminal() {
		return
	}
	if stage.Order() <= entry.job.Stage.Order() {
		return
	}
	entry.job.Stage = stage
	entry.job.UpdatedAt = time.Now().UTC()
}

// Complete marks the job succeeded at the complete stage. The caller
// must have written the result to the cache first, so any client that
// observes succeeded can always retrieve it.
func (r *JobRegistry) Complete(id uuid.UUID, result *models.AnalysisResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok || entry.job.State.Terminal() {
		return
	}
	entry.job.State = models.JobStateSucceeded
	entry.job.Stage = models.StageComplete
	entry.job.Result = result
	entry.job.UpdatedAt = time.Now().UTC()
	r.releaseInflight(entry)
}

// Fail marks the job failed with a stored error classification, never
// a raw error message.
func (r *JobRegistry) Fail(id uuid.UUID, errorCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok || entry.job.State.Terminal() {
		return
	}
	entry.job.State = models.JobStateFailed
	entry.job.ErrorCode = errorCode
	entry.job.UpdatedAt = time.Now().UTC()
	r.releaseInflight(entry)
}

// Snapshot returns a copy of the job for read-only consumers. Safe at
// any polling frequency.
func (r *JobRegistry) Snapshot(id uuid.UUID) (models.AnalysisJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok {
		return models.AnalysisJob{}, false
	}
	return entry.job, true
}

// Cancel aborts a non-terminal job's context. The owning goroutine
// observes the cancellation and finalizes the job state itself.
func (r *JobRegistry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	entry, ok := r.jobs[id]
	if !ok || entry.job.State.Terminal() || entry.cancel == nil {
		r.mu.Unlock()
		return false
	}
	cancel := entry.cancel
	r.mu.Unlock()

	cancel()
	return true
}

// Sweep expires terminal jobs past the retention window and deletes
// the ones that have sat expired for another full window. Run from the
// maintenance cron.
func (r *JobRegistry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var expired, removed int
	for id, entry := range r.jobs {
		age := now.Sub(entry.job.UpdatedAt)
		switch {
		case entry.job.State == models.JobStateExpired && age >= constants.JobRetention:
			delete(r.jobs, id)
			removed++
		case entry.job.State.Terminal() && entry.job.State != models.JobStateExpired && age >= constants.JobRetention:
			entry.job.State = models.JobStateExpired
			entry.job.Result = nil
			entry.job.UpdatedAt = now
			expired++
		}
	}
	if expired > 0 || removed > 0 {
		utils.Logger.Infof("Job registry sweep: %d expired, %d removed", expired, removed)
	}
}

// releaseInflight drops the fingerprint index entry if it still points
// at this job. Caller holds the lock.
func (r *JobRegistry) releaseInflight(entry *registryEntry) {
	if id, ok := r.inflight[entry.job.Fingerprint]; ok && id == entry.job.ID {
		delete(r.inflight, entry.job.Fingerprint)
	}
}
