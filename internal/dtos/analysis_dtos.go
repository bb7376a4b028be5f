package dtos

import (
	"strings"

	"github.com/google/uuid"

	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/utils"
)

/*
   AnalyzePropertyRequest is the submit payload for POST
   /api/v1/analysis. Validation tags reject malformed input before a
   job is created, so bad submissions never incur provider cost.
*/
type AnalyzePropertyRequest struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	Region     string `json:"region" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`

	Price        float64 `json:"price" validate:"required,gt=0"`
	Bedrooms     int     `json:"bedrooms" validate:"gte=0,lte=20"`
	Bathrooms    float64 `json:"bathrooms" validate:"gte=0,lte=20"`
	SquareFeet   float64 `json:"square_feet" validate:"gte=0"`
	PropertyType string  `json:"property_type" validate:"required"`
	AnnualTaxes  float64 `json:"annual_taxes" validate:"gte=0"`

	MonthlyHOAFee float64 `json:"monthly_hoa_fee" validate:"gte=0"`
	YearBuilt     int     `json:"year_built" validate:"omitempty,gte=1800,lte=2100"`
}

// ToModel maps the request onto the immutable pipeline input.
func (r AnalyzePropertyRequest) ToModel() models.PropertyInput {
	return models.PropertyInput{
		Street:        r.Street,
		City:          r.City,
		Region:        r.Region,
		PostalCode:    r.PostalCode,
		Country:       r.Country,
		Price:         r.Price,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		SquareFeet:    r.SquareFeet,
		PropertyType:  strings.ToLower(strings.TrimSpace(r.PropertyType)),
		AnnualTaxes:   r.AnnualTaxes,
		MonthlyHOAFee: r.MonthlyHOAFee,
		YearBuilt:     r.YearBuilt,
	}
}

/*
   SubmitAnalysisResponse: 202-style acceptance carrying the job id,
   or an immediate result on a cache hit. The poll fields tell clients
   how to pace the status endpoint; both are zero on a cache hit.
*/
type SubmitAnalysisResponse struct {
	JobID  uuid.UUID              `json:"job_id"`
	State  string                 `json:"state"`
	Result *models.AnalysisResult `json:"result,omitempty"`

	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"`
	PollMaxAttempts     int `json:"poll_max_attempts,omitempty"`
}

/*
   JobStatusResponse is the polling snapshot. Progress is 0-100 and
   non-decreasing for a given job.
*/
type JobStatusResponse struct {
	JobID    uuid.UUID              `json:"job_id"`
	State    string                 `json:"state"`
	Progress int                    `json:"progress"`
	Stage    string                 `json:"stage"`
	Message  string                 `json:"message"`
	Result   *models.AnalysisResult `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// FromJob builds the polling snapshot from a registry copy.
func FromJob(job models.AnalysisJob) JobStatusResponse {
	resp := JobStatusResponse{
		JobID:    job.ID,
		State:    string(job.State),
		Progress: job.Stage.Progress(),
		Stage:    string(job.Stage),
		Message:  job.Stage.Message(),
		Result:   job.Result,
		Error:    clientErrorCode(job.ErrorCode),
	}
	if resp.Error == utils.ErrCodeExternalServiceFailure {
		resp.Message = "Analysis temporarily unavailable; please retry later."
	}
	return resp
}

// clientErrorCode maps the stored classification to the code a client
// sees. Provider specifics stay in server-side logs and on the job;
// clients get one generic retryable code for all of them.
func clientErrorCode(code string) string {
	switch code {
	case "provider_timeout",
		"provider_rate_limited",
		"provider_unavailable",
		"provider_invalid_response":
		return utils.ErrCodeExternalServiceFailure
	default:
		return code
	}
}
