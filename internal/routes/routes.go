package routes

const (
	// Health
	Health = "/health"

	// Analysis pipeline
	AnalysisSubmit = "/api/v1/analysis"
	JobStatus      = "/api/v1/analysis/jobs/{job_id}/status"
	JobCancel      = "/api/v1/analysis/jobs/{job_id}"
)
