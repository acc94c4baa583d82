package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/observability"
	"github.com/couchcryptid/city-risk-service/internal/pipeline"
)

// --- mocks ---

// mockExtractor hands out its events in one batch, then behaves like an idle
// topic: empty batches until the context is cancelled.
type mockExtractor struct {
	events []domain.RawEvent
	err    error
	calls  atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.calls.Add(1) == 1 {
		if m.err != nil {
			return nil, m.err
		}
		if len(m.events) > 0 {
			return m.events, nil
		}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

type mockTransformer struct {
	failKeys map[string]bool
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.failKeys[string(raw.Key)] {
		return domain.OutputEvent{}, errors.New("bad snapshot")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	loaded []domain.OutputEvent
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// committedEvent returns a RawEvent whose Commit callback flips the returned flag.
func committedEvent(key string) (domain.RawEvent, *atomic.Bool) {
	var committed atomic.Bool
	return domain.RawEvent{
		Key:   []byte(key),
		Value: []byte(`{}`),
		Topic: "city-state-snapshots",
		Commit: func(context.Context) error {
			committed.Store(true)
			return nil
		},
	}, &committed
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	a, aCommitted := committedEvent("city-1")
	b, bCommitted := committedEvent("city-2")

	ext := &mockExtractor{events: []domain.RawEvent{a, b}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()
	p := pipeline.New(ext, &mockTransformer{}, ldr, testLogger(), metrics, 50)

	runFor(t, p, 200*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, []byte("city-1"), ldr.loaded[0].Key)
	assert.True(t, aCommitted.Load())
	assert.True(t, bCommitted.Load())
	assert.Equal(t, int64(2), p.Processed())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, testLogger(), newTestMetrics(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_PoisonSnapshotSkippedAndCommitted(t *testing.T) {
	bad, badCommitted := committedEvent("bad")
	good, goodCommitted := committedEvent("good")

	ldr := &mockLoader{}
	metrics := newTestMetrics()
	p := pipeline.New(
		&mockExtractor{events: []domain.RawEvent{bad, good}},
		&mockTransformer{failKeys: map[string]bool{"bad": true}},
		ldr, testLogger(), metrics, 50,
	)

	runFor(t, p, 200*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, []byte("good"), ldr.loaded[0].Key)
	assert.True(t, badCommitted.Load())
	assert.True(t, goodCommitted.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_NoCommitWhenLoadFails(t *testing.T) {
	raw, committed := committedEvent("city-1")

	ldr := &mockLoader{err: errors.New("broker unavailable")}
	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{}, ldr, testLogger(), newTestMetrics(), 50)

	runFor(t, p, 100*time.Millisecond)

	assert.False(t, committed.Load())
	assert.Equal(t, int64(0), p.Processed())
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := pipeline.New(&mockExtractor{err: errors.New("dial tcp: connection refused")}, &mockTransformer{}, &mockLoader{}, testLogger(), newTestMetrics(), 50)
	require.Error(t, p.CheckReadiness(context.Background()), "not ready before the first extract")

	// The extract error triggers a 200ms backoff; stop inside it.
	runFor(t, p, 100*time.Millisecond)
	require.Error(t, p.CheckReadiness(context.Background()))

	idle := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, testLogger(), newTestMetrics(), 50)
	runFor(t, idle, 50*time.Millisecond)
	require.NoError(t, idle.CheckReadiness(context.Background()), "an idle but reachable source is ready")
}

func TestPipeline_Run_UsesAssessmentTransformer(t *testing.T) {
	data, err := json.Marshal(sampleCity())
	require.NoError(t, err)
	raw, committed := committedEvent("city-1")
	raw.Value = data

	ldr := &mockLoader{}
	tfm := pipeline.NewTransformer(&fakePredictor{scores: severeScores}, ruleOnlyAdvisor(), testLogger())
	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, tfm, ldr, testLogger(), newTestMetrics(), 50)

	runFor(t, p, 200*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.True(t, committed.Load())

	var got domain.Assessment
	require.NoError(t, json.Unmarshal(ldr.loaded[0].Value, &got))
	assert.Equal(t, severeScores, got.RiskScores)
	assert.Equal(t, domain.SourceRuleBased, got.AdvisorySource)
	assert.Len(t, got.Advisories, 3)
}
