package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-intelligence/internal/service/intelligence/application"
	"promo-intelligence/internal/service/intelligence/domain"
	"promo-intelligence/internal/service/intelligence/engine"
)

// fakeAPI 记录最近一次调用的参数，返回预设的结果
type fakeAPI struct {
	err error

	venueID       string
	userID        string
	days          int
	threshold     float64
	promotionType domain.PromotionType
	timeframe     domain.Timeframe
	criteria      engine.TargetCriteria
	suggestions   []domain.Suggestion
}

func (f *fakeAPI) GetSuggestions(_ context.Context, venueID string) (*application.SuggestionsResponse, error) {
	f.venueID = venueID
	if f.err != nil {
		return nil, f.err
	}
	return &application.SuggestionsResponse{VenueID: venueID, Suggestions: []domain.Suggestion{{Type: domain.SuggestionDayOptimization}}}, nil
}

func (f *fakeAPI) GetPerformance(_ context.Context, venueID string) (*application.PerformanceResponse, error) {
	f.venueID = venueID
	return &application.PerformanceResponse{VenueID: venueID, WindowDays: 30}, f.err
}

func (f *fakeAPI) GetDemographics(_ context.Context, venueID string) (*engine.DemographicProfile, error) {
	f.venueID = venueID
	return &engine.DemographicProfile{}, f.err
}

func (f *fakeAPI) ForecastRevenue(_ context.Context, venueID string, daysAhead int) (*engine.RevenueForecast, error) {
	f.venueID, f.days = venueID, daysAhead
	return &engine.RevenueForecast{Status: engine.ForecastInsufficientData, DaysAhead: daysAhead}, f.err
}

func (f *fakeAPI) PredictOptimalTiming(_ context.Context, venueID string, promotionType domain.PromotionType, timeframe domain.Timeframe) (*engine.TimingPrediction, error) {
	f.venueID, f.promotionType, f.timeframe = venueID, promotionType, timeframe
	return &engine.TimingPrediction{}, f.err
}

func (f *fakeAPI) GenerateAutomationSuggestions(_ context.Context, venueID string) ([]domain.Suggestion, error) {
	f.venueID = venueID
	return []domain.Suggestion{}, f.err
}

func (f *fakeAPI) RunAutomation(_ context.Context, venueID string, threshold float64) (*application.AutoPostResult, error) {
	f.venueID, f.threshold = venueID, threshold
	if f.err != nil {
		return nil, f.err
	}
	return &application.AutoPostResult{VenueID: venueID, Threshold: threshold}, nil
}

func (f *fakeAPI) AutoPost(_ context.Context, venueID string, suggestions []domain.Suggestion, threshold float64) (*application.AutoPostResult, error) {
	f.venueID, f.suggestions, f.threshold = venueID, suggestions, threshold
	return &application.AutoPostResult{VenueID: venueID, Threshold: threshold}, f.err
}

func (f *fakeAPI) FindTargetUsers(_ context.Context, venueID string, criteria engine.TargetCriteria) (*application.TargetUsersResponse, error) {
	f.venueID, f.criteria = venueID, criteria
	return &application.TargetUsersResponse{VenueID: venueID, Criteria: criteria}, f.err
}

func (f *fakeAPI) ForecastCLV(_ context.Context, venueID, userID string) (*engine.CLVForecast, error) {
	f.venueID, f.userID = venueID, userID
	return &engine.CLVForecast{}, f.err
}

func serve(api *fakeAPI, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewIntelligenceHandler(api).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHandler_Suggestions(t *testing.T) {
	api := &fakeAPI{}
	rec := serve(api, http.MethodGet, "/venues/v1/suggestions", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "v1", api.venueID)

	var resp application.SuggestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "v1", resp.VenueID)
	assert.Len(t, resp.Suggestions, 1)
}

func TestHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"venue not found", errors.Wrap(domain.ErrVenueNotFound, "v1"), http.StatusNotFound},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"invalid criteria", errors.Wrap(domain.ErrInvalidCriteria, "minVisits"), http.StatusBadRequest},
		{"lock busy", errors.Wrapf(domain.ErrLockNotAcquired, "venue %s", "v1"), http.StatusConflict},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(&fakeAPI{err: tc.err}, http.MethodGet, "/venues/v1/suggestions", "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHandler_ForecastDays(t *testing.T) {
	api := &fakeAPI{}
	rec := serve(api, http.MethodGet, "/venues/v1/forecast?days=14", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, api.days)

	rec = serve(api, http.MethodGet, "/venues/v1/forecast", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, api.days)

	rec = serve(api, http.MethodGet, "/venues/v1/forecast?days=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_TimingParsesFilters(t *testing.T) {
	api := &fakeAPI{}
	rec := serve(api, http.MethodGet, "/venues/v1/timing?type=Happy-Hour&timeframe=EVENING", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PromotionHappyHour, api.promotionType)
	assert.Equal(t, domain.TimeframeEvening, api.timeframe)

	rec = serve(api, http.MethodGet, "/venues/v1/timing?timeframe=brunch", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RunAutomation(t *testing.T) {
	api := &fakeAPI{}
	rec := serve(api, http.MethodPost, "/venues/v1/automation?threshold=0.9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.9, api.threshold)

	rec = serve(api, http.MethodPost, "/venues/v1/automation?threshold=1.5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(api, http.MethodGet, "/venues/v1/automation", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_AutoPost(t *testing.T) {
	api := &fakeAPI{}
	body := `{"threshold":0.8,"suggestions":[{"type":"retention","confidence":0.9,"autoPost":true}]}`
	rec := serve(api, http.MethodPost, "/venues/v1/autopost", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.8, api.threshold)
	require.Len(t, api.suggestions, 1)
	assert.Equal(t, domain.SuggestionRetention, api.suggestions[0].Type)

	rec = serve(api, http.MethodPost, "/venues/v1/autopost", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Audience(t *testing.T) {
	api := &fakeAPI{}
	rec := serve(api, http.MethodPost, "/venues/v1/audience", `{"promotionType":"happy-hour","minVisits":3,"activeOnly":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.TargetCriteria{PromotionType: domain.PromotionHappyHour, MinVisits: 3, ActiveOnly: true}, api.criteria)
}

func TestHandler_CLV(t *testing.T) {
	api := &fakeAPI{}
	rec := serve(api, http.MethodGet, "/venues/v1/users/u9/clv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", api.venueID)
	assert.Equal(t, "u9", api.userID)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	rec := serve(&fakeAPI{}, http.MethodPost, "/venues/v1/suggestions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_Healthz(t *testing.T) {
	rec := serve(&fakeAPI{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
