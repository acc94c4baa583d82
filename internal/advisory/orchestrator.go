// Package advisory turns risk indicators into at most three public advisory
// lines. A generative capability is tried once; its output is cleaned and
// validated, and anything unusable falls back to the deterministic rule engine.
// Advise always returns non-empty text.
package advisory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

var tracer = otel.Tracer("city-risk.advisory")

// ErrGenerationUnavailable is returned by a Generator that cannot be loaded.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// Generator produces free text from a chat prompt.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// State is a step of the advisory state machine.
type State string

const (
	StateStart    State = "START"
	StateGenerate State = "GENERATE"
	StateClean    State = "CLEAN"
	StateValidate State = "VALIDATE"
	StateAccept   State = "ACCEPT"
	StateFallback State = "FALLBACK"
)

// FailureKind tags why generated text was not used.
type FailureKind string

const (
	FailureNone                  FailureKind = ""
	FailureGenerationUnavailable FailureKind = "generation_unavailable"
	FailureGeneration            FailureKind = "generation_failed"
	FailureEmpty                 FailureKind = "empty"
	FailureValidation            FailureKind = "validation_failed"
)

// Outcome is the accepted advisory text and how it was reached.
type Outcome struct {
	Text    domain.AdvisoryText
	Source  domain.AdvisorySource
	Failure FailureKind
	Err     error
	Path    []State
}

// Orchestrator runs the generate, clean, validate, fallback state machine.
type Orchestrator struct {
	gen     Generator
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewOrchestrator creates an Orchestrator. A nil generator makes every request
// use the rule engine.
func NewOrchestrator(gen Generator, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{gen: gen, logger: logger, metrics: metrics}
}

// run carries one request through the state machine.
type run struct {
	req       domain.AdvisoryRequest
	prompt    []Message
	raw       string
	lines     []string
	candidate []string
	source    domain.AdvisorySource
	failure   FailureKind
	err       error
	path      []State
}

// Advise produces advisories for the request. It never fails.
func (o *Orchestrator) Advise(ctx context.Context, req domain.AdvisoryRequest) Outcome {
	ctx, span := tracer.Start(ctx, "advisory.Advise")
	defer span.End()

	r := &run{req: req}
	state := StateStart
	for {
		r.path = append(r.path, state)
		if state == StateAccept {
			break
		}
		state = o.step(ctx, state, r)
	}

	out := Outcome{
		Text:    domain.NewAdvisoryText(r.candidate),
		Source:  r.source,
		Failure: r.failure,
		Err:     r.err,
		Path:    r.path,
	}
	span.SetAttributes(
		attribute.String("advisory.source", string(out.Source)),
		attribute.String("advisory.failure", string(out.Failure)),
	)
	o.metrics.Advisories.WithLabelValues(string(out.Source)).Inc()
	return out
}

func (o *Orchestrator) step(ctx context.Context, state State, r *run) State {
	switch state {
	case StateStart:
		r.prompt = BuildPrompt(r.req)
		if o.gen == nil {
			return o.fail(r, FailureGenerationUnavailable, ErrGenerationUnavailable)
		}
		return StateGenerate

	case StateGenerate:
		text, err := o.generate(ctx, r.prompt)
		if errors.Is(err, ErrGenerationUnavailable) {
			return o.fail(r, FailureGenerationUnavailable, err)
		}
		if err != nil {
			return o.fail(r, FailureGeneration, err)
		}
		r.raw = text
		return StateClean

	case StateClean:
		r.lines = Clean(r.raw)
		if domain.NewAdvisoryText(r.lines).Empty() {
			return o.fail(r, FailureEmpty, nil)
		}
		return StateValidate

	case StateValidate:
		if err := Validate(r.lines); err != nil {
			return o.fail(r, FailureValidation, err)
		}
		r.candidate = r.lines
		r.source = domain.SourceGenerated
		return StateAccept

	case StateFallback:
		r.candidate = RuleBased(r.req).Lines()
		r.source = domain.SourceRuleBased
		return StateAccept

	default:
		return StateAccept
	}
}

func (o *Orchestrator) generate(ctx context.Context, prompt []Message) (string, error) {
	ctx, span := tracer.Start(ctx, "advisory.generate", trace.WithAttributes(
		attribute.Int("prompt.messages", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	text, err := o.gen.Generate(ctx, prompt)
	o.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	return text, err
}

func (o *Orchestrator) fail(r *run, kind FailureKind, err error) State {
	r.failure = kind
	r.err = err
	o.metrics.AdvisoryFallbacks.WithLabelValues(string(kind)).Inc()
	if kind == FailureGenerationUnavailable {
		o.logger.Debug("advisory falling back to rules", "reason", kind, "error", err)
	} else {
		o.logger.Warn("advisory falling back to rules", "reason", kind, "error", err)
	}
	return StateFallback
}
