// Package ensemble invokes the six domain models and decodes their outputs into
// a complete RiskScoreSet.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/model"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

var tracer = otel.Tracer("city-risk.ensemble")

// ErrPrediction wraps a failure raised by a loaded model. It is fatal for the
// request; only empty slots are absorbed.
var ErrPrediction = errors.New("prediction failed")

// Slots is the read side of the model registry.
type Slots interface {
	Regressor(d domain.Domain) (model.Regressor, error)
	Classifier(d domain.Domain) (model.ProbabilisticClassifier, error)
}

// Invoker scores every domain and assembles the RiskScoreSet.
type Invoker struct {
	slots   Slots
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Invoker over the given slots.
func New(slots Slots, logger *slog.Logger, metrics *observability.Metrics) *Invoker {
	return &Invoker{slots: slots, logger: logger, metrics: metrics}
}

// PredictCity derives the feature vectors for a snapshot and predicts.
func (inv *Invoker) PredictCity(ctx context.Context, city domain.CityState) (domain.RiskScoreSet, error) {
	features, err := domain.DeriveFeatures(city)
	if err != nil {
		return domain.RiskScoreSet{}, err
	}
	return inv.Predict(ctx, features)
}

// Predict invokes all six slots concurrently. The result is either complete or
// an error; it is never partial.
func (inv *Invoker) Predict(ctx context.Context, features domain.FeatureSet) (domain.RiskScoreSet, error) {
	ctx, span := tracer.Start(ctx, "ensemble.Predict")
	defer span.End()
	start := time.Now()

	scores := make([]float64, len(domain.Domains))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range domain.Domains {
		g.Go(func() error {
			v, err := inv.score(gctx, d, features)
			if err != nil {
				return err
			}
			scores[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RiskScoreSet{}, err
	}
	inv.metrics.PredictionDuration.Observe(time.Since(start).Seconds())

	byDomain := make(map[domain.Domain]float64, len(scores))
	for i, d := range domain.Domains {
		byDomain[d] = scores[i]
	}
	return domain.RiskScoreSet{
		WaterShortageLevel:       byDomain[domain.DomainWater],
		TrafficCongestionLevel:   byDomain[domain.DomainTraffic],
		FoodPriceChangePercent:   byDomain[domain.DomainFood],
		EnergyPriceChangePercent: byDomain[domain.DomainEnergy],
		PublicCleanupNeeded:      byDomain[domain.DomainCleanup],
		HealthStatus:             byDomain[domain.DomainHealth],
	}, nil
}

func (inv *Invoker) score(ctx context.Context, d domain.Domain, features domain.FeatureSet) (float64, error) {
	ctx, span := tracer.Start(ctx, "ensemble.score",
		trace.WithAttributes(attribute.String("domain", string(d))),
	)
	defer span.End()

	var (
		value float64
		err   error
	)
	switch model.SlotKind(d) {
	case model.KindClassifier:
		value, err = inv.classify(ctx, d, features)
	default:
		value, err = inv.regress(ctx, d, features)
	}

	if errors.Is(err, model.ErrModelUnavailable) {
		inv.logger.Debug("serving default indicator", "domain", d)
		inv.metrics.Predictions.WithLabelValues(string(d), "default").Inc()
		return Default(d), nil
	}
	if err != nil {
		inv.metrics.PredictionErrors.WithLabelValues(string(d)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: %s: %w", ErrPrediction, d, err)
	}
	inv.metrics.Predictions.WithLabelValues(string(d), "model").Inc()
	return value, nil
}

func (inv *Invoker) regress(ctx context.Context, d domain.Domain, features domain.FeatureSet) (float64, error) {
	m, err := inv.slots.Regressor(d)
	if err != nil {
		return 0, err
	}
	v, err := vectorFor(d, features)
	if err != nil {
		return 0, err
	}
	return m.Predict(ctx, v)
}

func (inv *Invoker) classify(ctx context.Context, d domain.Domain, features domain.FeatureSet) (float64, error) {
	m, err := inv.slots.Classifier(d)
	if err != nil {
		return 0, err
	}
	v, err := vectorFor(d, features)
	if err != nil {
		return 0, err
	}

	if d == domain.DomainCleanup {
		proba, err := m.PredictProba(ctx, v)
		if err != nil {
			return 0, err
		}
		return DecodeCleanup(m.Classes(), proba)
	}

	class, err := m.PredictClass(ctx, v)
	if err != nil {
		return 0, err
	}
	return DecodeHealth(class), nil
}

func vectorFor(d domain.Domain, features domain.FeatureSet) (domain.FeatureVector, error) {
	v, ok := features.Vector(d)
	if !ok {
		return domain.FeatureVector{}, fmt.Errorf("no feature vector for %s", d)
	}
	return v, nil
}
