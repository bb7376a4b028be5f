package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"nightlyRate":      "nightly_rate",
		"averageNightly":   "average_nightly",
		"occupancy":        "occupancy",
		"already_snake":    "already_snake",
		"distanceKm":       "distance_km",
		"monthlyHoaFee":    "monthly_hoa_fee",
		"a":                "a",
		"":                 "",
		"ratingCountTotal": "rating_count_total",
	}
	for in, want := range cases {
		assert.Equal(t, want, CamelToSnake(in), "input %q", in)
	}
}

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"nightly_rate":       "nightlyRate",
		"occupancy":          "occupancy",
		"monthly_hoa_fee":    "monthlyHoaFee",
		"rating_count_total": "ratingCountTotal",
	}
	for in, want := range cases {
		assert.Equal(t, want, SnakeToCamel(in), "input %q", in)
	}
}

func TestCasingRoundTrip(t *testing.T) {
	identifiers := []string{
		"nightly_rate",
		"average_occupancy",
		"monthly_rent_estimate",
		"price",
		"square_feet",
	}
	for _, id := range identifiers {
		assert.Equal(t, id, CamelToSnake(SnakeToCamel(id)), "identifier %q", id)
	}
	camels := []string{"nightlyRate", "averageOccupancy", "price"}
	for _, id := range camels {
		assert.Equal(t, id, SnakeToCamel(CamelToSnake(id)), "identifier %q", id)
	}
}

func TestNormalizeKeysRecursive(t *testing.T) {
	in := map[string]any{
		"nightlyRate": 210.0,
		"listingInfo": map[string]any{
			"distanceKm": 1.4,
		},
		"reviews": []any{
			map[string]any{"ratingValue": 4.8},
		},
	}
	out := NormalizeKeys(in)

	assert.Equal(t, 210.0, out["nightly_rate"])

	info, ok := out["listing_info"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 1.4, info["distance_km"])

	reviews, ok := out["reviews"].([]any)
	assert.True(t, ok)
	first, ok := reviews[0].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 4.8, first["rating_value"])
}
