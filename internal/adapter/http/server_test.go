package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/city-risk-service/internal/adapter/http"
	"github.com/couchcryptid/city-risk-service/internal/advisory"
	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockPredictor struct {
	scores domain.RiskScoreSet
	err    error
	got    domain.CityState
}

func (m *mockPredictor) PredictCity(_ context.Context, city domain.CityState) (domain.RiskScoreSet, error) {
	m.got = city
	return m.scores, m.err
}

type mockWeather struct{}

func (mockWeather) CurrentWeather(context.Context) domain.WeatherOut { return domain.FallbackWeather() }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, ready httpadapter.ReadinessChecker, predictor *mockPredictor) *httpadapter.Server {
	t.Helper()
	if predictor == nil {
		predictor = &mockPredictor{}
	}
	return httpadapter.NewServer(":0", httpadapter.Deps{
		Predictor:      predictor,
		Advisor:        advisory.NewOrchestrator(nil, testLogger(), observability.NewMetricsForTesting()),
		Weather:        mockWeather{},
		Ready:          ready,
		GeneratorState: func() string { return "failed" },
	}, testLogger())
}

func do(srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const validCity = `{
	"weather": {"currentTemperature": 31.5, "humidity": 71, "windSpeed": 12.6, "currentRainfall": 3.2,
		"rainfallLast12Months": [10,20,30,40,50,60,70,80,90,100,110,120], "recentStormOrFlood": true, "aqi": 142},
	"transportation": {"busesOperating": 210, "totalBuses": 260, "busRoutesCongested": ["east", "central"],
		"avgVehiclesPerHour": 6400, "peakHourMultiplier": 1.8},
	"agriculture": {"cropYieldLastYear": 82, "currentStockLevel": 55, "supplyChainEfficiency": 0.74, "importDependency": 0.31},
	"energy": {"currentUsageMW": 1250, "avgUsageLastYear": 1100, "peakDemandMW": 1480, "gridStability": 0.91, "renewablePercentage": 22},
	"publicServices": {"roadsNeedingRepair": 27, "waterSupplyLevel": 48, "sewerSystemHealth": 71,
		"emergencyResponseTime": 16, "pendingMaintenanceTasks": 38}
}`

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(t, nil, nil), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(newTestServer(t, &mockReadiness{}, nil), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "failed", body["generator"])
}

func TestReadyzReportsPipelineProgress(t *testing.T) {
	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		Predictor: &mockPredictor{},
		Advisor:   advisory.NewOrchestrator(nil, testLogger(), observability.NewMetricsForTesting()),
		Weather:   mockWeather{},
		Ready:     &mockReadiness{},
		Assessed:  func() int64 { return 42 },
	}, testLogger())

	rec := do(srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.InDelta(t, 42, body["assessed"], 0)
	assert.NotContains(t, body, "generator")
}

func TestReadyzWithoutCheckerIsReady(t *testing.T) {
	rec := do(newTestServer(t, nil, nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(newTestServer(t, &mockReadiness{err: fmt.Errorf("not ready yet")}, nil), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(t, nil, nil), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDAssignedAndEchoed(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(srv, http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestPredictAll(t *testing.T) {
	p := &mockPredictor{scores: domain.RiskScoreSet{
		WaterShortageLevel:     70,
		TrafficCongestionLevel: 40,
		PublicCleanupNeeded:    70,
		HealthStatus:           66,
	}}
	rec := do(newTestServer(t, nil, p), http.MethodPost, "/predict-all", validCity)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"waterShortageLevel": 70,
		"trafficCongestionLevel": 40,
		"foodPriceChangePercent": 0,
		"energyPriceChangePercent": 0,
		"publicCleanupNeeded": 70,
		"healthStatus": 66
	}`, rec.Body.String())
	assert.Equal(t, []string{"east", "central"}, p.got.Transportation.BusRoutesCongested)
	assert.InDelta(t, 142.0, p.got.Weather.AQI, 0)
}

func TestPredictAll_MalformedInput(t *testing.T) {
	shortRainfall := strings.Replace(validCity, "[10,20,30,40,50,60,70,80,90,100,110,120]", "[10,20]", 1)
	noSewer := strings.Replace(validCity, `"sewerSystemHealth": 71,`, "", 1)
	noRoutes := strings.Replace(validCity, `"busRoutesCongested": ["east", "central"],`, "", 1)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"not json", `{"weather":`, "malformed JSON"},
		{"wrong type", `{"weather": {"humidity": "wet"}}`, "malformed JSON"},
		{"short rainfall history", shortRainfall, "RainfallLast12Months"},
		{"empty object", `{}`, "CityInput.Weather"},
		{"only rainfall history", `{"weather": {"rainfallLast12Months": [1,2,3,4,5,6,7,8,9,10,11,12]}}`, "Weather.CurrentTemperature"},
		{"missing reading", noSewer, "PublicServices.SewerSystemHealth"},
		{"missing congested routes", noRoutes, "Transportation.BusRoutesCongested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPredictor{}
			rec := do(newTestServer(t, nil, p), http.MethodPost, "/predict-all", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			msg, _ := decodeBody(t, rec)["error"].(string)
			assert.Contains(t, msg, tt.wantMsg)
			assert.Zero(t, p.got, "predictor must not see a rejected snapshot")
		})
	}
}

func TestPredictAll_ZeroAndOutOfRangeReadingsAccepted(t *testing.T) {
	body := strings.NewReplacer(
		`"aqi": 142`, `"aqi": -1`,
		`"recentStormOrFlood": true`, `"recentStormOrFlood": false`,
		`"humidity": 71`, `"humidity": 120`,
		`"busRoutesCongested": ["east", "central"]`, `"busRoutesCongested": []`,
		`"roadsNeedingRepair": 27`, `"roadsNeedingRepair": 0`,
	).Replace(validCity)
	p := &mockPredictor{}
	rec := do(newTestServer(t, nil, p), http.MethodPost, "/predict-all", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, -1.0, p.got.Weather.AQI, 0)
	assert.InDelta(t, 120.0, p.got.Weather.Humidity, 0)
	assert.False(t, p.got.Weather.RecentStormOrFlood)
	assert.Empty(t, p.got.Transportation.BusRoutesCongested)
	assert.Zero(t, p.got.PublicServices.RoadsNeedingRepair)
}

func TestPredictAll_PredictionFailure(t *testing.T) {
	p := &mockPredictor{err: errors.New("slot water: tree walk failed")}
	rec := do(newTestServer(t, nil, p), http.MethodPost, "/predict-all", validCity)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "prediction failed", decodeBody(t, rec)["error"])
}

func TestPredictAll_WrongMethod(t *testing.T) {
	rec := do(newTestServer(t, nil, nil), http.MethodGet, "/predict-all", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecommendations_RuleBasedWithoutGenerator(t *testing.T) {
	body := `{"waterShortageLevel": 75, "trafficCongestionLevel": 75, "foodPriceChangePercent": 0,
		"energyPriceChangePercent": 0, "publicCleanupNeeded": 75, "healthStatus": 10}`
	rec := do(newTestServer(t, nil, nil), http.MethodPost, "/llm-recommendations", body)

	require.Equal(t, http.StatusOK, rec.Code)
	text, _ := decodeBody(t, rec)["recommendations"].(string)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "- WATER EMERGENCY"))
	assert.True(t, strings.HasPrefix(lines[1], "- TRAFFIC MANAGEMENT"))
	assert.True(t, strings.HasPrefix(lines[2], "- CITY CLEANUP DRIVE"))
}

func TestRecommendations_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"wrong type", `{"healthStatus": "bad"}`, "malformed JSON"},
		{"empty object", `{}`, "WaterShortageLevel"},
		{"only water", `{"waterShortageLevel": 80}`, "TrafficCongestionLevel"},
		{"health omitted", `{"waterShortageLevel": 80, "trafficCongestionLevel": 0, "foodPriceChangePercent": 0,
			"energyPriceChangePercent": 0, "publicCleanupNeeded": 0}`, "HealthStatus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(t, nil, nil), http.MethodPost, "/llm-recommendations", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			msg, _ := decodeBody(t, rec)["error"].(string)
			assert.Contains(t, msg, tt.wantMsg)
			assert.NotContains(t, rec.Body.String(), "PUBLIC HEALTH ALERT")
		})
	}
}

func TestRecommendations_ZeroIndicatorsAccepted(t *testing.T) {
	body := `{"waterShortageLevel": 0, "trafficCongestionLevel": 0, "foodPriceChangePercent": 0,
		"energyPriceChangePercent": 0, "publicCleanupNeeded": 0, "healthStatus": 0}`
	rec := do(newTestServer(t, nil, nil), http.MethodPost, "/llm-recommendations", body)

	require.Equal(t, http.StatusOK, rec.Code)
	text, _ := decodeBody(t, rec)["recommendations"].(string)
	assert.True(t, strings.HasPrefix(text, "- PUBLIC HEALTH ALERT"), "an explicit health index of 0 still alerts")
}

func TestCurrentWeather(t *testing.T) {
	rec := do(newTestServer(t, nil, nil), http.MethodGet, "/current-weather", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.WeatherOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.FallbackWeather(), got)
}
