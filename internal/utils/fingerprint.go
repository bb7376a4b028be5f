package utils

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/investorprops/analysis-service/internal/models"
)

// NormalizeText lower-cases a free-form field and collapses all runs
// of whitespace to a single space, so cosmetically different inputs
// fingerprint identically.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeProperty returns a copy of in with address fields
// normalized and numeric fields rounded to fingerprint precision:
// whole units for money, one decimal for bathrooms, nearest 10 for
// square footage.
func NormalizeProperty(in models.PropertyInput) models.PropertyInput {
	out := in
	out.Street = NormalizeText(in.Street)
	out.City = NormalizeText(in.City)
	out.Region = NormalizeText(in.Region)
	out.PostalCode = strings.ReplaceAll(NormalizeText(in.PostalCode), " ", "")
	out.Country = NormalizeText(in.Country)
	out.PropertyType = NormalizeText(in.PropertyType)

	out.Price = math.Round(in.Price)
	out.AnnualTaxes = math.Round(in.AnnualTaxes)
	out.MonthlyHOAFee = math.Round(in.MonthlyHOAFee)
	out.Bathrooms = math.Round(in.Bathrooms*10) / 10
	out.SquareFeet = math.Round(in.SquareFeet/10) * 10
	return out
}

// Fingerprint derives the stable cache / dedup key for a property.
// Two inputs that are semantically identical after normalization
// always produce the same fingerprint.
func Fingerprint(in models.PropertyInput) string {
	n := NormalizeProperty(in)
	canonical := fmt.Sprintf(
		"%s|%s|%s|%s|%s|%.0f|%d|%.1f|%.0f|%s|%.0f|%.0f",
		n.Street, n.City, n.Region, n.PostalCode, n.Country,
		n.Price, n.Bedrooms, n.Bathrooms, n.SquareFeet,
		n.PropertyType, n.AnnualTaxes, n.MonthlyHOAFee,
	)
	hasher := sha256.New()
	hasher.Write([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(hasher.Sum(nil))
}
