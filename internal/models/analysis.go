package models

import "time"

// RentalProjection holds the financial block for one rental strategy.
type RentalProjection struct {
	MonthlyRevenue  float64 `json:"monthly_revenue"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
	CashFlow        float64 `json:"cash_flow"`
	CapRate         float64 `json:"cap_rate"`
	AnnualROI       float64 `json:"annual_roi"`

	// STR-only detail; zero for LTR.
	NightlyRate   float64 `json:"nightly_rate,omitempty"`
	OccupancyRate float64 `json:"occupancy_rate,omitempty"`
}

// Strategy labels used in the comparison block.
const (
	StrategyLongTerm  = "long_term_rental"
	StrategyShortTerm = "short_term_rental"
)

// Comparison pits the two strategies against each other.
type Comparison struct {
	BetterOption        string  `json:"better_option"`
	MonthlyRevenueDelta float64 `json:"monthly_revenue_delta"`
	AnnualCashFlowDelta float64 `json:"annual_cash_flow_delta"`
	// False when the two strategies are within the materiality
	// threshold of each other; the recommendation then defaults to
	// the lower-risk option (LTR).
	Material bool `json:"material"`
}

// AnalysisResult is the immutable outcome of one analysis run, stored
// in the cache by fingerprint.
type AnalysisResult struct {
	LongTermRental  RentalProjection `json:"long_term_rental"`
	ShortTermRental RentalProjection `json:"short_term_rental"`
	Comparison      Comparison       `json:"comparison"`
	InvestmentScore float64          `json:"investment_score"`
	Insights        []string         `json:"insights"`
	ComparableCount int              `json:"comparable_count"`
	ComputedAt      time.Time        `json:"computed_at"`
}
