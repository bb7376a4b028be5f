package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/dtos"
	"github.com/investorprops/analysis-service/internal/services"
	"github.com/investorprops/analysis-service/internal/utils"
)

type AnalysisController struct {
	analysisService *services.AnalysisService
	validate        *validator.Validate
}

func NewAnalysisController(as *services.AnalysisService) *AnalysisController {
	return &AnalysisController{
		analysisService: as,
		validate:        validator.New(),
	}
}

// ----------------------------------------------------------------
// POST /api/v1/analysis
// ----------------------------------------------------------------
func (c *AnalysisController) SubmitAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dtos.AnalyzePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeInvalidPayload,
			"Invalid request body",
			nil,
			err,
		)
		return
	}

	if err := c.validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeValidation,
			"Validation failed",
			validationDetails(err),
			err,
		)
		return
	}

	outcome, err := c.analysisService.SubmitAnalysis(ctx, req.ToModel())
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to submit analysis")
		utils.RespondErrorWithCode(
			w,
			http.StatusInternalServerError,
			utils.ErrCodeInternal,
			"Failed to submit analysis",
			nil,
			err,
		)
		return
	}

	resp := dtos.SubmitAnalysisResponse{
		JobID:  outcome.Job.ID,
		State:  string(outcome.Job.State),
		Result: outcome.Result,
	}

	// Cache hits resolve synchronously; everything else is accepted
	// for background processing and polled via the status endpoint.
	if outcome.CacheHit {
		utils.RespondWithJSON(w, http.StatusOK, resp)
		return
	}
	resp.PollIntervalSeconds = constants.PollIntervalSeconds
	resp.PollMaxAttempts = constants.PollMaxAttempts
	utils.RespondWithJSON(w, http.StatusAccepted, resp)
}

// ----------------------------------------------------------------
// GET /api/v1/analysis/jobs/{job_id}/status
// ----------------------------------------------------------------
func (c *AnalysisController) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["job_id"])
	if err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeInvalidPayload,
			"Invalid job id",
			nil,
			err,
		)
		return
	}

	job, err := c.analysisService.GetStatus(jobID)
	if err != nil {
		if errors.Is(err, utils.ErrJobNotFound) {
			utils.RespondErrorWithCode(
				w,
				http.StatusNotFound,
				utils.ErrCodeNotFound,
				"Job not found",
				nil,
				nil,
			)
			return
		}
		utils.RespondErrorWithCode(
			w,
			http.StatusInternalServerError,
			utils.ErrCodeInternal,
			"Failed to fetch job status",
			nil,
			err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.FromJob(job))
}

// ----------------------------------------------------------------
// DELETE /api/v1/analysis/jobs/{job_id}
// ----------------------------------------------------------------
func (c *AnalysisController) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(mux.Vars(r)["job_id"])
	if err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusBadRequest,
			utils.ErrCodeInvalidPayload,
			"Invalid job id",
			nil,
			err,
		)
		return
	}

	if err := c.analysisService.CancelJob(jobID); err != nil {
		if errors.Is(err, utils.ErrJobNotFound) {
			utils.RespondErrorWithCode(
				w,
				http.StatusNotFound,
				utils.ErrCodeNotFound,
				"Job not found",
				nil,
				nil,
			)
			return
		}
		utils.RespondErrorWithCode(
			w,
			http.StatusInternalServerError,
			utils.ErrCodeInternal,
			"Failed to cancel job",
			nil,
			err,
		)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+": failed '"+fe.Tag()+"'")
	}
	return fields
}
