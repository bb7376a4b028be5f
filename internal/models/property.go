package models

// PropertyInput is the single, strongly-typed description of the
// property under analysis. It is immutable once a job is created;
// every stage of the pipeline reads the same value.
type PropertyInput struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`

	Price        float64 `json:"price"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms"`
	SquareFeet   float64 `json:"square_feet"`
	PropertyType string  `json:"property_type"`
	AnnualTaxes  float64 `json:"annual_taxes"`

	// Optional monthly HOA / condo fee.
	MonthlyHOAFee float64 `json:"monthly_hoa_fee,omitempty"`

	// Optional; feeds the maintenance estimate when known.
	YearBuilt int `json:"year_built,omitempty"`
}

// Normalized property types used for expense and occupancy defaults.
const (
	PropertyTypeHouse     = "house"
	PropertyTypeCondo     = "condo"
	PropertyTypeTownhouse = "townhouse"
	PropertyTypeApartment = "apartment"
)
