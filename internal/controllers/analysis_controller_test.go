package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/dtos"
	"github.com/investorprops/analysis-service/internal/models"
	"github.com/investorprops/analysis-service/internal/routes"
	"github.com/investorprops/analysis-service/internal/services"
	"github.com/investorprops/analysis-service/internal/utils"
)

type stubCache struct{}

func (stubCache) Get(context.Context, string) (*models.AnalysisResult, bool) { return nil, false }
func (stubCache) Put(context.Context, string, *models.AnalysisResult)       {}

type stubMarket struct{}

func (stubMarket) FetchMarketData(context.Context, models.PropertyInput) (*models.MarketData, error) {
	return &models.MarketData{MonthlyRentEstimate: 2500, AverageNightlyRate: 200}, nil
}

type stubComparables struct{}

func (stubComparables) FetchComparables(context.Context, models.PropertyInput) (*models.ComparableListings, error) {
	return &models.ComparableListings{
		Listings: []models.ComparableListing{
			{NightlyRate: 190, Occupancy: 0.7},
			{NightlyRate: 210, Occupancy: 0.7},
			{NightlyRate: 200, Occupancy: 0.7},
		},
		AverageRate:      200,
		AverageOccupancy: 0.7,
	}, nil
}

func newTestRouter() *mux.Router {
	analysisService := services.NewAnalysisService(
		services.NewJobRegistry(),
		stubCache{},
		stubMarket{},
		stubComparables{},
		services.NewFinanceService(services.FinanceConfig{
			DownPaymentRate:    0.20,
			AnnualMortgageRate: 0.05,
			AmortizationYears:  25,
		}),
	)
	controller := NewAnalysisController(analysisService)

	router := mux.NewRouter()
	router.HandleFunc(routes.AnalysisSubmit, controller.SubmitAnalysisHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.JobStatus, controller.JobStatusHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.JobCancel, controller.CancelJobHandler).Methods(http.MethodDelete)
	return router
}

func validSubmitBody() []byte {
	b, _ := json.Marshal(map[string]any{
		"street":       "123 Main St",
		"city":         "Toronto",
		"region":       "ON",
		"postal_code":  "M5V 2T6",
		"country":      "Canada",
		"price":        650000,
		"bedrooms":     3,
		"bathrooms":    2,
		"square_feet":  1500,
		"property_type": "house",
		"annual_taxes": 5200,
	})
	return b
}

func TestSubmitAnalysisAcceptedAndPollable(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, routes.AnalysisSubmit, bytes.NewReader(validSubmitBody())))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submit dtos.SubmitAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submit))
	require.NotEqual(t, uuid.Nil, submit.JobID)
	assert.Equal(t, constants.PollIntervalSeconds, submit.PollIntervalSeconds)
	assert.Equal(t, constants.PollMaxAttempts, submit.PollMaxAttempts)

	statusURL := fmt.Sprintf("/api/v1/analysis/jobs/%s/status", submit.JobID)
	deadline := time.Now().Add(5 * time.Second)
	var status dtos.JobStatusResponse
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, statusURL, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		if status.State == string(models.JobStateSucceeded) || status.State == string(models.JobStateFailed) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.Equal(t, string(models.JobStateSucceeded), status.State)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.Result)
	assert.Equal(t, 3, status.Result.ComparableCount)
	assert.Empty(t, status.Error)
}

func TestSubmitAnalysisRejectsMalformedJSON(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, routes.AnalysisSubmit, bytes.NewReader([]byte(`{"price":`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, utils.ErrCodeInvalidPayload, errResp.Code)
}

func TestSubmitAnalysisRejectsInvalidFields(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(map[string]any{
		"street":        "123 Main St",
		"city":          "Toronto",
		"region":        "ON",
		"postal_code":   "M5V 2T6",
		"country":       "Canada",
		"price":         -5,
		"property_type": "house",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, routes.AnalysisSubmit, bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, utils.ErrCodeValidation, errResp.Code)
}

func TestJobStatusUnknownJob(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/jobs/"+uuid.NewString()+"/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobStatusMalformedID(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/jobs/not-a-uuid/status", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelUnknownJob(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/analysis/jobs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
