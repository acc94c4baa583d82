package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-risk-service/internal/advisory"
	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/pipeline"
)

type fakePredictor struct {
	scores domain.RiskScoreSet
	err    error
	got    domain.CityState
}

func (f *fakePredictor) PredictCity(_ context.Context, city domain.CityState) (domain.RiskScoreSet, error) {
	f.got = city
	return f.scores, f.err
}

var severeScores = domain.RiskScoreSet{
	WaterShortageLevel:     75,
	TrafficCongestionLevel: 75,
	PublicCleanupNeeded:    75,
	HealthStatus:           10,
}

func ruleOnlyAdvisor() *advisory.Orchestrator {
	return advisory.NewOrchestrator(nil, testLogger(), newTestMetrics())
}

func sampleCity() domain.CityState {
	return domain.CityState{
		Weather: domain.Weather{
			CurrentTemperature:   31.5,
			Humidity:             64,
			WindSpeed:            12.6,
			CurrentRainfall:      3.2,
			RainfallLast12Months: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120},
			RecentStormOrFlood:   true,
			AQI:                  142,
		},
		Transportation: domain.Transportation{
			BusesOperating:     210,
			TotalBuses:         300,
			BusRoutesCongested: []string{"east", "central"},
			AvgVehiclesPerHour: 6400,
			PeakHourMultiplier: 1.8,
		},
		Energy: domain.Energy{CurrentUsageMW: 1250, AvgUsageLastYear: 1100, PeakDemandMW: 1480, GridStability: 0.91, RenewablePercentage: 22},
		PublicServices: domain.PublicServices{
			RoadsNeedingRepair:      27,
			WaterSupplyLevel:        48,
			SewerSystemHealth:       71,
			EmergencyResponseTime:   16,
			PendingMaintenanceTasks: 38,
		},
	}
}

func rawSnapshot(t *testing.T, city domain.CityState, ts time.Time) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(city)
	require.NoError(t, err)
	return domain.RawEvent{Key: []byte("city-1"), Value: data, Timestamp: ts, Offset: 7}
}

// rawSnapshotWithout encodes sampleCity with the field at path removed.
func rawSnapshotWithout(t *testing.T, path ...string) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(sampleCity())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	parent := doc
	for _, key := range path[:len(path)-1] {
		parent = parent[key].(map[string]any)
	}
	delete(parent, path[len(path)-1])

	data, err = json.Marshal(doc)
	require.NoError(t, err)
	return domain.RawEvent{Value: data}
}

func TestAssessmentTransformer_Transform(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	snapshotAt := now.Add(-time.Minute)
	pred := &fakePredictor{scores: severeScores}
	tfm := pipeline.NewTransformer(pred, ruleOnlyAdvisor(), testLogger())

	out, err := tfm.Transform(context.Background(), rawSnapshot(t, sampleCity(), snapshotAt))
	require.NoError(t, err)

	var got domain.Assessment
	require.NoError(t, json.Unmarshal(out.Value, &got))

	_, err = uuid.Parse(got.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte(got.ID), out.Key)

	want := domain.Assessment{
		ID:             got.ID,
		RiskScores:     severeScores,
		AdvisorySource: domain.SourceRuleBased,
		Advisories:     got.Advisories,
		SnapshotTime:   snapshotAt,
		AssessedAt:     now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assessment mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, got.Advisories, 3)
	assert.Contains(t, got.Advisories[0], "WATER EMERGENCY")

	assert.Equal(t, "rule_based", out.Headers["advisory_source"])
	assert.Equal(t, "2026-03-03T09:30:00Z", out.Headers["assessed_at"])
	assert.Equal(t, []string{"east", "central"}, pred.got.Transportation.BusRoutesCongested)
}

func TestAssessmentTransformer_Errors(t *testing.T) {
	shortHistory := sampleCity()
	shortHistory.Weather.RainfallLast12Months = []float64{1, 2, 3}

	tests := []struct {
		name string
		raw  func(t *testing.T) domain.RawEvent
		pred *fakePredictor
	}{
		{
			name: "invalid json",
			raw:  func(*testing.T) domain.RawEvent { return domain.RawEvent{Value: []byte("not-json{{{")} },
			pred: &fakePredictor{},
		},
		{
			name: "invalid snapshot",
			raw:  func(t *testing.T) domain.RawEvent { return rawSnapshot(t, shortHistory, time.Time{}) },
			pred: &fakePredictor{},
		},
		{
			name: "missing reading group",
			raw:  func(t *testing.T) domain.RawEvent { return rawSnapshotWithout(t, "energy") },
			pred: &fakePredictor{},
		},
		{
			name: "missing reading",
			raw:  func(t *testing.T) domain.RawEvent { return rawSnapshotWithout(t, "publicServices", "sewerSystemHealth") },
			pred: &fakePredictor{},
		},
		{
			name: "prediction failure",
			raw:  func(t *testing.T) domain.RawEvent { return rawSnapshot(t, sampleCity(), time.Time{}) },
			pred: &fakePredictor{err: errors.New("slot health: corrupt tree")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tfm := pipeline.NewTransformer(tt.pred, ruleOnlyAdvisor(), testLogger())
			_, err := tfm.Transform(context.Background(), tt.raw(t))
			require.Error(t, err)
		})
	}
}
