package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/city-risk-service/internal/advisory"
	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// Predictor scores a city snapshot.
type Predictor interface {
	PredictCity(ctx context.Context, city domain.CityState) (domain.RiskScoreSet, error)
}

// Advisor produces advisories for a set of indicators.
type Advisor interface {
	Advise(ctx context.Context, req domain.AdvisoryRequest) advisory.Outcome
}

// AssessmentTransformer implements Transformer by scoring each snapshot and
// attaching advisories.
type AssessmentTransformer struct {
	predictor Predictor
	advisor   Advisor
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewTransformer creates an AssessmentTransformer.
func NewTransformer(predictor Predictor, advisor Advisor, logger *slog.Logger) *AssessmentTransformer {
	return &AssessmentTransformer{
		predictor: predictor,
		advisor:   advisor,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (t *AssessmentTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	in, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	if err := t.validate.Struct(in); err != nil {
		return domain.OutputEvent{}, fmt.Errorf("invalid snapshot: %w", err)
	}

	scores, err := t.predictor.PredictCity(ctx, in.CityState())
	if err != nil {
		return domain.OutputEvent{}, err
	}

	out := t.advisor.Advise(ctx, scores.AdvisoryRequest())
	assessment := domain.NewAssessment(scores, out.Text, out.Source, raw.Timestamp)
	t.logger.Debug("snapshot assessed",
		"assessment_id", assessment.ID,
		"advisory_source", out.Source,
		"offset", raw.Offset,
	)
	return domain.SerializeAssessment(assessment)
}
