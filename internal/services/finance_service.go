package services

import (
	"fmt"
	"math"
	"time"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/models"
)

// FinanceConfig carries the financing assumptions the engine applies
// to every analysis.
type FinanceConfig struct {
	DownPaymentRate    float64
	AnnualMortgageRate float64
	AmortizationYears  int
}

/*
   FinanceService is the pure computation engine: deterministic,
   side-effect free, and total. No input combination (zero price, zero
   bedrooms, missing market data) raises or returns a non-finite
   number; ratios with zero denominators come back as 0 and the
   orchestrator decides whether that constitutes a usable analysis.
*/
type FinanceService struct {
	cfg FinanceConfig
}

func NewFinanceService(cfg FinanceConfig) *FinanceService {
	if cfg.AmortizationYears <= 0 {
		cfg.AmortizationYears = constants.DefaultAmortizationYears
	}
	return &FinanceService{cfg: cfg}
}

// MonthlyMortgagePayment computes the standard amortized payment.
// A zero annual rate degenerates to straight division, which the
// amortization formula cannot express.
func (s *FinanceService) MonthlyMortgagePayment(principal, annualRate float64, termYears int) float64 {
	if principal <= 0 || termYears <= 0 {
		return 0
	}
	months := float64(termYears * 12)
	if annualRate == 0 {
		return principal / months
	}
	monthlyRate := annualRate / 12
	factor := math.Pow(1+monthlyRate, months)
	payment := principal * monthlyRate * factor / (factor - 1)
	return finite(payment)
}

// AnnualROI returns (annual cash flow / total cash invested) * 100,
// and exactly 0 when nothing was invested.
func (s *FinanceService) AnnualROI(annualCashFlow, totalCashInvested float64) float64 {
	if totalCashInvested == 0 {
		return 0
	}
	return finite(annualCashFlow / totalCashInvested * 100)
}

// CapRate returns (annual net operating income / price) * 100, and
// exactly 0 for a zero price.
func (s *FinanceService) CapRate(annualNOI, price float64) float64 {
	if price == 0 {
		return 0
	}
	return finite(annualNOI / price * 100)
}

// OccupancyRate derives STR occupancy from the comparables when any
// of them report it, then from the market-data provider's estimate,
// falling back to the per-property-type default (0.70 unless the type
// carries its own).
func (s *FinanceService) OccupancyRate(input models.PropertyInput, market models.MarketData, comps models.ComparableListings) float64 {
	var sum float64
	var n int
	for _, c := range comps.Listings {
		if c.Occupancy > 0 {
			sum += c.Occupancy
			n++
		}
	}
	if n > 0 {
		return sum / float64(n)
	}
	if market.OccupancyEstimate > 0 && market.OccupancyEstimate <= 1 {
		return market.OccupancyEstimate
	}
	switch input.PropertyType {
	case models.PropertyTypeCondo:
		return constants.DefaultOccupancyRateCondo
	case models.PropertyTypeApartment:
		return constants.DefaultOccupancyRateApartment
	case models.PropertyTypeTownhouse:
		return constants.DefaultOccupancyRateTownhouse
	default:
		return constants.DefaultOccupancyRate
	}
}

// STRMonthlyRevenue is nightly rate x 30 nights x occupancy.
func (s *FinanceService) STRMonthlyRevenue(nightlyRate, occupancy float64) float64 {
	if nightlyRate <= 0 || occupancy <= 0 {
		return 0
	}
	return finite(nightlyRate * constants.NightsPerMonth * occupancy)
}

// Analyze combines the property, market data, and comparables into the
// full result: both rental projections, the comparison, the score, and
// the insight list.
func (s *FinanceService) Analyze(
	input models.PropertyInput,
	market models.MarketData,
	comps models.ComparableListings,
) *models.AnalysisResult {
	principal := input.Price * (1 - s.cfg.DownPaymentRate)
	cashInvested := input.Price * s.cfg.DownPaymentRate
	mortgage := s.MonthlyMortgagePayment(principal, s.cfg.AnnualMortgageRate, s.cfg.AmortizationYears)

	operating := s.monthlyOperatingExpenses(input)

	// Long-term rental block.
	ltrRevenue := math.Max(market.MonthlyRentEstimate, 0)
	ltrExpenses := mortgage + operating
	ltrCashFlow := ltrRevenue - ltrExpenses
	ltr := models.RentalProjection{
		MonthlyRevenue:  round2(ltrRevenue),
		MonthlyExpenses: round2(ltrExpenses),
		CashFlow:        round2(ltrCashFlow),
		CapRate:         round2(s.CapRate((ltrRevenue-operating)*12, input.Price)),
		AnnualROI:       round2(s.AnnualROI(ltrCashFlow*12, cashInvested)),
	}

	// Short-term rental block.
	nightly := comps.AverageRate
	if nightly <= 0 {
		nightly = market.AverageNightlyRate
	}
	occupancy := s.OccupancyRate(input, market, comps)
	strRevenue := s.STRMonthlyRevenue(nightly, occupancy)
	strFees := strRevenue * (constants.STRPlatformFeeRate + constants.STRManagementFeeRate)
	strExpenses := mortgage + operating + strFees
	strCashFlow := strRevenue - strExpenses
	str := models.RentalProjection{
		MonthlyRevenue:  round2(strRevenue),
		MonthlyExpenses: round2(strExpenses),
		CashFlow:        round2(strCashFlow),
		CapRate:         round2(s.CapRate((strRevenue-operating-strFees)*12, input.Price)),
		AnnualROI:       round2(s.AnnualROI(strCashFlow*12, cashInvested)),
		NightlyRate:     round2(nightly),
		OccupancyRate:   occupancy,
	}

	comparison := s.compare(ltr, str)

	winner := ltr
	if comparison.BetterOption == models.StrategyShortTerm {
		winner = str
	}
	score := s.InvestmentScore(winner.CapRate, winner.CashFlow, len(comps.Listings))

	return &models.AnalysisResult{
		LongTermRental:  ltr,
		ShortTermRental: str,
		Comparison:      comparison,
		InvestmentScore: score,
		Insights:        s.insights(comparison, winner, len(comps.Listings)),
		ComparableCount: len(comps.Listings),
		ComputedAt:      time.Now().UTC(),
	}
}

// monthlyOperatingExpenses sums taxes, insurance, maintenance, and HOA
// fees; financing is excluded so callers can derive NOI.
func (s *FinanceService) monthlyOperatingExpenses(input models.PropertyInput) float64 {
	insuranceRate := constants.InsuranceRateDefault
	maintenanceRate := constants.MaintenanceRateDefault
	switch input.PropertyType {
	case models.PropertyTypeCondo, models.PropertyTypeApartment:
		insuranceRate = constants.InsuranceRateCondo
		maintenanceRate = constants.MaintenanceRateCondo
	case models.PropertyTypeTownhouse:
		maintenanceRate = constants.MaintenanceRateTownhouse
	}

	// Older stock costs more to keep up, new builds less.
	if input.YearBuilt > 0 {
		age := time.Now().Year() - input.YearBuilt
		switch {
		case age > 40:
			maintenanceRate *= 1.5
		case age > 20:
			maintenanceRate *= 1.25
		case age < 5:
			maintenanceRate *= 0.5
		}
	}

	return input.AnnualTaxes/12 +
		input.Price*insuranceRate/12 +
		input.Price*maintenanceRate/12 +
		input.MonthlyHOAFee
}

// compare recommends the strategy whose annual cash flow beats the
// other's by more than the materiality threshold; otherwise the two
// are comparable and the lower-risk option (LTR) wins.
func (s *FinanceService) compare(ltr, str models.RentalProjection) models.Comparison {
	ltrAnnual := ltr.CashFlow * 12
	strAnnual := str.CashFlow * 12
	delta := strAnnual - ltrAnnual

	lower := math.Min(math.Abs(ltrAnnual), math.Abs(strAnnual))
	material := math.Abs(delta) > lower*constants.MaterialityThreshold

	better := models.StrategyLongTerm
	if material && delta > 0 {
		better = models.StrategyShortTerm
	}

	return models.Comparison{
		BetterOption:        better,
		MonthlyRevenueDelta: round2(str.MonthlyRevenue - ltr.MonthlyRevenue),
		AnnualCashFlowDelta: round2(delta),
		Material:            material,
	}
}

// InvestmentScore blends normalized cap rate, cash flow, and
// comparable density into a 0-10 score. Each component is clamped to
// [0,1] before weighting, so the score is monotonically non-decreasing
// in every input.
func (s *FinanceService) InvestmentScore(capRate, monthlyCashFlow float64, comparableCount int) float64 {
	capComponent := clamp01(capRate / constants.ScoreCapRateCeiling)
	cashComponent := clamp01((monthlyCashFlow + constants.ScoreCashFlowCeiling) / (2 * constants.ScoreCashFlowCeiling))
	densityComponent := clamp01(float64(comparableCount) / constants.ScoreCompCountCeiling)

	score := 10 * (constants.ScoreWeightCapRate*capComponent +
		constants.ScoreWeightCashFlow*cashComponent +
		constants.ScoreWeightCompDensity*densityComponent)
	return round2(math.Min(10, math.Max(0, score)))
}

func (s *FinanceService) insights(
	cmp models.Comparison,
	winner models.RentalProjection,
	comparableCount int,
) []string {
	var out []string

	if cmp.Material {
		label := "long-term rental"
		if cmp.BetterOption == models.StrategyShortTerm {
			label = "short-term rental"
		}
		out = append(out, fmt.Sprintf(
			"The %s strategy leads by $%.0f per year in projected cash flow.",
			label, math.Abs(cmp.AnnualCashFlowDelta)))
	} else {
		out = append(out,
			"Both strategies produce comparable cash flow; the lower-risk long-term rental is recommended.")
	}

	if winner.CashFlow >= 0 {
		out = append(out, fmt.Sprintf(
			"Projected monthly cash flow is $%.0f under the recommended strategy.", winner.CashFlow))
	} else {
		out = append(out, fmt.Sprintf(
			"The property is projected to run $%.0f negative per month under the recommended strategy.",
			math.Abs(winner.CashFlow)))
	}

	out = append(out, fmt.Sprintf("Cap rate for the recommended strategy is %.2f%%.", winner.CapRate))

	if comparableCount < 3 {
		out = append(out, fmt.Sprintf(
			"Only %d comparable short-term listings were found; STR projections carry low confidence.",
			comparableCount))
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(finite(v)*100) / 100
}
