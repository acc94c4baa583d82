// Package pipeline runs the streaming assessment loop: city-state snapshots are
// extracted in batches, scored and advised, and loaded to the sink. Offsets are
// committed only after the batch is loaded; snapshots that cannot be assessed
// are skipped and committed.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

var tracer = otel.Tracer("city-risk.pipeline")

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw snapshot into a serialized assessment.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	processed   atomic.Int64
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the most recent extract from the source
// succeeded, or an error describing why the service is not ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline source not reachable yet")
	}
	return nil
}

// Processed returns the number of snapshots assessed and loaded so far.
func (p *Pipeline) Processed() int64 {
	return p.processed.Load()
}

// Run assesses batches until the context is cancelled. Source and sink
// failures back off and retry; they never stop the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	r := newRetry(200*time.Millisecond, 5*time.Second)
	for ctx.Err() == nil {
		if !p.cycle(ctx, r) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err(), "assessed", p.processed.Load())
	return nil
}

// cycle runs one extract, assess, load round. It reports false once the
// context is done.
func (p *Pipeline) cycle(ctx context.Context, r *retry) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.ready.Store(false)
		p.logger.Error("extract batch failed", "error", err, "retry_in", r.delay)
		return r.wait(ctx)
	}
	p.ready.Store(true)
	if len(batch) == 0 {
		return true
	}
	r.reset()

	ctx, span := tracer.Start(ctx, "pipeline.batch", trace.WithAttributes(
		attribute.Int("batch.size", len(batch)),
	))
	defer span.End()

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))

	assessments, sources := p.assess(ctx, batch)
	span.SetAttributes(attribute.Int("batch.assessed", len(assessments)))
	if len(assessments) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, assessments); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(assessments), "retry_in", r.delay)
		return r.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(assessments)))
	for _, raw := range sources {
		p.commit(ctx, raw)
	}

	p.processed.Add(int64(len(assessments)))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return true
}

// assess transforms every snapshot in the batch. Snapshots that fail are
// committed immediately so they are not redelivered. The returned slices are
// parallel: sources[i] produced assessments[i].
func (p *Pipeline) assess(ctx context.Context, batch []domain.RawEvent) (assessments []domain.OutputEvent, sources []domain.RawEvent) {
	assessments = make([]domain.OutputEvent, 0, len(batch))
	sources = make([]domain.RawEvent, 0, len(batch))

	for _, raw := range batch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("assessment failed, skipping snapshot",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		assessments = append(assessments, out)
		sources = append(sources, raw)
	}
	return assessments, sources
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// retry is a doubling backoff capped at limit.
type retry struct {
	initial, limit, delay time.Duration
}

func newRetry(initial, limit time.Duration) *retry {
	return &retry{initial: initial, limit: limit, delay: initial}
}

func (r *retry) reset() { r.delay = r.initial }

// wait sleeps for the current delay and doubles it. It reports false if the
// context ends first.
func (r *retry) wait(ctx context.Context) bool {
	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	r.delay = min(r.delay*2, r.limit)
	return true
}
