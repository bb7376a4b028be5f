package constants

import "time"

// Cache freshness
const (
	// A cached analysis older than this is treated as absent.
	CacheTTL = 7 * 24 * time.Hour

	// Process-local read-through tier in front of the durable cache.
	LocalCacheTTL           = 10 * time.Minute
	LocalCacheSweepInterval = 15 * time.Minute
)

// Job lifecycle
const (
	// Ceiling on a running job; beyond this it is force-failed and any
	// partial provider data is discarded.
	JobTimeout = 5 * time.Minute

	// Terminal jobs stay pollable for this long before the registry
	// sweep removes them.
	JobRetention = 30 * time.Minute
)

// Gateway timeouts and cost controls
const (
	MarketDataTimeout  = 60 * time.Second
	ComparablesTimeout = 45 * time.Second

	// At most one retry per provider call, transient failures only.
	ProviderMaxRetries = 1

	// Cap on comparable listings fetched per analysis.
	MaxComparableListings = 20
)

// Financing defaults (overridable through config)
const (
	DefaultDownPaymentRate    = 0.20
	DefaultAnnualMortgageRate = 0.055
	DefaultAmortizationYears  = 25
)

// Expense model rates, annual fractions of property value unless noted.
// Condos carry lower structure costs because the building covers the
// exterior.
const (
	InsuranceRateDefault = 0.0035
	InsuranceRateCondo   = 0.0025

	MaintenanceRateDefault   = 0.010
	MaintenanceRateCondo     = 0.005
	MaintenanceRateTownhouse = 0.008

	// STR operating fees, fractions of STR revenue.
	STRPlatformFeeRate   = 0.03
	STRManagementFeeRate = 0.10
)

// STR revenue model
const (
	NightsPerMonth = 30

	// Occupancy fallbacks when the comparables carry no occupancy data.
	DefaultOccupancyRate          = 0.70
	DefaultOccupancyRateCondo     = 0.75
	DefaultOccupancyRateTownhouse = 0.72
	DefaultOccupancyRateApartment = 0.75
)

// Recommendation and scoring
const (
	// One strategy must beat the other by this fraction of the lower
	// annual cash flow to be recommended outright.
	MaterialityThreshold = 0.05

	// Investment-score weights; the three components are each clamped
	// to [0,1] before blending, keeping the score monotonic per input.
	ScoreWeightCapRate     = 0.4
	ScoreWeightCashFlow    = 0.4
	ScoreWeightCompDensity = 0.2

	// Normalization ceilings for the score components.
	ScoreCapRateCeiling   = 8.0    // percent
	ScoreCashFlowCeiling  = 1000.0 // dollars per month
	ScoreCompCountCeiling = 10
)

// Polling guidance surfaced to clients.
const (
	PollIntervalSeconds = 2
	PollMaxAttempts     = 60
)
