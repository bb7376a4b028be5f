package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/utils"
)

/*
   ComparablesService calls the comparable-listings provider, a REST
   API returning short-term rental comps near a location. Provider
   payloads are inconsistent about key casing and field names, so every
   item is normalized to one canonical snake_case shape before mapping.

   Cost controls: the requested result-set size is capped, each call is
   bounded by ComparablesTimeout, and in-flight requests abort as soon
   as the job context is cancelled.
*/
type ComparablesService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewComparablesService(baseURL, apiKey string) *ComparablesService {
	return &ComparablesService{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: constants.ComparablesTimeout},
	}
}

// FetchComparables retrieves at most MaxComparableListings comps for
// the property's location. Retried once on transient failure; 4xx
// rejections are surfaced immediately. The returned error is always a
// provider classification.
func (s *ComparablesService) FetchComparables(
	ctx context.Context,
	input models.PropertyInput,
) (*models.ComparableListings, error) {
	var lastErr error
	for attempt := 0; attempt <= constants.ProviderMaxRetries; attempt++ {
		if attempt > 0 {
			utils.Logger.WithError(lastErr).Warn("Retrying comparables provider call")
		}

		comps, err := s.fetchOnce(ctx, input)
		if err == nil {
			return comps, nil
		}
		lastErr = err

		if errors.Is(err, utils.ErrProviderInvalidResponse) ||
			errors.Is(err, utils.ErrProviderRateLimited) ||
			ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *ComparablesService) fetchOnce(
	ctx context.Context,
	input models.PropertyInput,
) (*models.ComparableListings, error) {
	callCtx, cancel := context.WithTimeout(ctx, constants.ComparablesTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%s, %s, %s", input.City, input.Region, input.Country))
	q.Set("bedrooms", strconv.Itoa(input.Bedrooms))
	q.Set("property_type", input.PropertyType)
	q.Set("limit", strconv.Itoa(constants.MaxComparableListings))

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, s.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build comparables request: %w", utils.ErrProviderInvalidResponse)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("comparables call timed out: %w", utils.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("comparables transport error: %w", utils.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("comparables provider rate limited: %w", utils.ErrProviderRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("comparables request rejected (%d): %w", resp.StatusCode, utils.ErrProviderInvalidResponse)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("comparables provider returned %d: %w", resp.StatusCode, utils.ErrProviderUnavailable)
	}

	var body struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode comparables payload: %w", utils.ErrProviderInvalidResponse)
	}

	listings := make([]models.ComparableListing, 0, len(body.Results))
	for _, raw := range body.Results {
		item := utils.NormalizeKeys(raw)
		listing := models.ComparableListing{
			Address:     asString(item["address"]),
			NightlyRate: firstNumber(item, "nightly_rate", "nightly_price", "price"),
			Bedrooms:    int(firstNumber(item, "bedrooms")),
			DistanceKM:  firstNumber(item, "distance_km", "distance"),
			Occupancy:   firstNumber(item, "occupancy_rate", "occupancy"),
			Rating:      firstNumber(item, "rating"),
		}
		if listing.NightlyRate <= 0 {
			continue
		}
		listings = append(listings, listing)
		if len(listings) >= constants.MaxComparableListings {
			break
		}
	}

	return aggregateComparables(listings), nil
}

func aggregateComparables(listings []models.ComparableListing) *models.ComparableListings {
	out := &models.ComparableListings{Listings: listings}
	if len(listings) == 0 {
		return out
	}

	var rateSum, occSum float64
	var occCount int
	for _, l := range listings {
		rateSum += l.NightlyRate
		if l.Occupancy > 0 {
			occSum += l.Occupancy
			occCount++
		}
	}
	out.AverageRate = rateSum / float64(len(listings))
	if occCount > 0 {
		out.AverageOccupancy = occSum / float64(occCount)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// firstNumber returns the first numeric value found under the given
// canonical keys. The keys are already snake_case; camelCase aliases
// were folded in by NormalizeKeys.
func firstNumber(item map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch tv := item[k].(type) {
		case float64:
			return tv
		case json.Number:
			f, err := tv.Float64()
			if err == nil {
				return f
			}
		case string:
			f, err := strconv.ParseFloat(tv, 64)
			if err == nil {
				return f
			}
		}
	}
	return 0
}
