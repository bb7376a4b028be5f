package models

import (
	"time"

	"github.com/google/uuid"
)

type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateExpired   JobState = "expired"
)

// Terminal reports whether a job in this state will never change again.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed || s == JobStateExpired
}

// ProgressStage enumerates the ordered stages a running job walks
// through. Transitions are monotonic; no stage is revisited.
type ProgressStage string

const (
	StageInit             ProgressStage = "init"
	StagePropertyFetch    ProgressStage = "property_fetch"
	StageAddressValidate  ProgressStage = "address_validation"
	StageMarketData       ProgressStage = "market_data"
	StageComparables      ProgressStage = "comparables_search"
	StageRentalAnalysis   ProgressStage = "rental_analysis"
	StageAirbnbData       ProgressStage = "airbnb_data"
	StageOccupancyCalc    ProgressStage = "occupancy_calc"
	StageFinancialModel   ProgressStage = "financial_model"
	StageROICalculation   ProgressStage = "roi_calculation"
	StageReportGeneration ProgressStage = "report_generation"
	StageComplete         ProgressStage = "complete"
)

type stageInfo struct {
	order    int
	progress int
	message  string
}

var stageTable = map[ProgressStage]stageInfo{
	StageInit:             {0, 5, "Starting analysis..."},
	StagePropertyFetch:    {1, 10, "Fetching property details..."},
	StageAddressValidate:  {2, 15, "Validating property address..."},
	StageMarketData:       {3, 25, "Retrieving market data..."},
	StageComparables:      {4, 35, "Finding comparable properties..."},
	StageRentalAnalysis:   {5, 45, "Analyzing rental potential..."},
	StageAirbnbData:       {6, 55, "Fetching short-term rental data..."},
	StageOccupancyCalc:    {7, 65, "Calculating occupancy rates..."},
	StageFinancialModel:   {8, 75, "Running financial projections..."},
	StageROICalculation:   {9, 85, "Calculating ROI metrics..."},
	StageReportGeneration: {10, 95, "Generating investment report..."},
	StageComplete:         {11, 100, "Analysis complete!"},
}

// Order returns the stage's position in the pipeline, -1 if unknown.
func (s ProgressStage) Order() int {
	info, ok := stageTable[s]
	if !ok {
		return -1
	}
	return info.order
}

// Progress returns the stage's completion percentage (0-100).
func (s ProgressStage) Progress() int {
	return stageTable[s].progress
}

// Message returns the human-readable description for the stage.
func (s ProgressStage) Message() string {
	return stageTable[s].message
}

// AnalysisJob tracks the lifecycle of one analysis request. It is
// created by the orchestrator on submission and mutated only by the
// goroutine that owns it; everyone else reads snapshots through the
// registry.
type AnalysisJob struct {
	ID          uuid.UUID       `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	State       JobState        `json:"state"`
	Stage       ProgressStage   `json:"stage"`
	Input       PropertyInput   `json:"input"`
	Result      *AnalysisResult `json:"result,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
