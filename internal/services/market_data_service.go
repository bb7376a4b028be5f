package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/utils"
)

// marketDataPayload mirrors the strict JSON schema the provider is
// forced to return through the function call.
type marketDataPayload struct {
	MonthlyRentEstimate float64 `json:"monthly_rent_estimate"`
	AverageNightlyRate  float64 `json:"average_nightly_rate"`
	OccupancyEstimate   float64 `json:"occupancy_estimate"`
}

// MarketDataService queries the market-data provider, an
// OpenAI-compatible chat-completions endpoint, for rent and nightly
// rate aggregates around the subject property. A nil client means the
// provider is disabled (no API key configured).
type MarketDataService struct {
	client *openai.Client
	model  string
}

func NewMarketDataService(apiKey, baseURL, model string) *MarketDataService {
	if apiKey == "" {
		return &MarketDataService{client: nil}
	}
	// The SDK's built-in retries are disabled; the retry budget is
	// owned by FetchMarketData.
	c := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &MarketDataService{client: &c, model: model}
}

// FetchMarketData asks the provider for structured market aggregates.
// The call is bounded by MarketDataTimeout and retried once on
// transient failure; the returned error is always one of the provider
// classifications.
func (s *MarketDataService) FetchMarketData(
	ctx context.Context,
	input models.PropertyInput,
) (*models.MarketData, error) {
	if s.client == nil {
		return nil, fmt.Errorf("market-data provider disabled: %w", utils.ErrProviderUnavailable)
	}

	var lastErr error
	for attempt := 0; attempt <= constants.ProviderMaxRetries; attempt++ {
		if attempt > 0 {
			utils.Logger.WithError(lastErr).Warn("Retrying market-data provider call")
		}

		data, err := s.fetchOnce(ctx, input)
		if err == nil {
			return data, nil
		}
		lastErr = err

		// Client-side problems, rate limits, and cancellations don't
		// get a retry.
		if errors.Is(err, utils.ErrProviderInvalidResponse) ||
			errors.Is(err, utils.ErrProviderRateLimited) ||
			ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *MarketDataService) fetchOnce(
	ctx context.Context,
	input models.PropertyInput,
) (*models.MarketData, error) {
	callCtx, cancel := context.WithTimeout(ctx, constants.MarketDataTimeout)
	defer cancel()

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"monthly_rent_estimate": map[string]string{"type": "number"},
			"average_nightly_rate":  map[string]string{"type": "number"},
			"occupancy_estimate":    map[string]string{"type": "number"},
		},
		"required": []string{
			"monthly_rent_estimate",
			"average_nightly_rate",
			"occupancy_estimate",
		},
		"additionalProperties": false,
	}

	fn := shared.FunctionDefinitionParam{
		Name:        "report_market_data",
		Description: openai.String("Report rental market aggregates for the subject property's area."),
		Strict:      openai.Bool(true),
		Parameters:  schema,
	}

	prompt := fmt.Sprintf(`Research the residential rental market around %s, %s, %s %s, %s.

Subject property: %d bedroom, %.1f bathroom %s, %.0f sq ft, listed at $%.0f.

Call report_market_data with:
1. monthly_rent_estimate = realistic long-term monthly rent for this property.
2. average_nightly_rate = average short-term (nightly) rate for similar properties nearby.
3. occupancy_estimate = typical short-term occupancy as a fraction (0-1); use 0 if unknown.`,
		input.Street, input.City, input.Region, input.PostalCode, input.Country,
		input.Bedrooms, input.Bathrooms, input.PropertyType, input.SquareFeet, input.Price,
	)

	req := openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Tools: []openai.ChatCompletionToolParam{{
			Function: fn,
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: "report_market_data",
				},
			},
		},
	}

	resp, err := s.client.Chat.Completions.New(callCtx, req)
	if err != nil {
		return nil, classifyMarketDataErr(callCtx, err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no function call returned: %w", utils.ErrProviderInvalidResponse)
	}

	var payload marketDataPayload
	if err := json.Unmarshal(
		[]byte(resp.Choices[0].Message.ToolCalls[0].Function.Arguments),
		&payload,
	); err != nil {
		return nil, fmt.Errorf("unmarshal market data: %w", utils.ErrProviderInvalidResponse)
	}
	if payload.MonthlyRentEstimate <= 0 {
		return nil, fmt.Errorf("non-positive rent estimate: %w", utils.ErrProviderInvalidResponse)
	}

	return &models.MarketData{
		MonthlyRentEstimate: payload.MonthlyRentEstimate,
		AverageNightlyRate:  payload.AverageNightlyRate,
		OccupancyEstimate:   payload.OccupancyEstimate,
		DataSource:          s.model,
	}, nil
}

func classifyMarketDataErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("market-data call timed out: %w", utils.ErrProviderTimeout)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return fmt.Errorf("market-data provider rate limited: %w", utils.ErrProviderRateLimited)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return fmt.Errorf("market-data request rejected (%d): %w", apiErr.StatusCode, utils.ErrProviderInvalidResponse)
		}
	}
	return fmt.Errorf("market-data provider error: %w", utils.ErrProviderUnavailable)
}
