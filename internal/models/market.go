package models

// MarketData is the normalized output of the market-data provider:
// rent and nightly-rate aggregates for the subject property's area.
// Consumed read-only by the computation engine.
type MarketData struct {
	MonthlyRentEstimate float64 `json:"monthly_rent_estimate"`
	AverageNightlyRate  float64 `json:"average_nightly_rate"`
	OccupancyEstimate   float64 `json:"occupancy_estimate,omitempty"`
	DataSource          string  `json:"data_source,omitempty"`
}

// ComparableListing is one short-term-rental comp returned by the
// comparables provider, normalized from its raw payload.
type ComparableListing struct {
	Address     string  `json:"address"`
	NightlyRate float64 `json:"nightly_rate"`
	Bedrooms    int     `json:"bedrooms"`
	DistanceKM  float64 `json:"distance_km"`
	Occupancy   float64 `json:"occupancy,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// ComparableListings wraps the comp set with its aggregate stats.
type ComparableListings struct {
	Listings         []ComparableListing `json:"listings"`
	AverageRate      float64             `json:"average_rate"`
	AverageOccupancy float64             `json:"average_occupancy,omitempty"`
}
