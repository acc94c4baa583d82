// Package model holds the per-domain predictive model handles and the registry
// that loads them at start-up.
//
// A handle is one of two capability sets: a Regressor returns a scalar, a
// ProbabilisticClassifier returns a class label and a distribution over an
// ordered set of labels. Every handle also describes the feature schema it was
// trained on, so the registry can refuse to serve a model fed in the wrong order.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// ErrModelUnavailable is returned when a slot has no loaded handle.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrArtifactNotFound is returned by an Opener when the artifact does not exist.
var ErrArtifactNotFound = errors.New("model artifact not found")

// Kind names a model capability set.
type Kind string

const (
	KindRegressor  Kind = "regressor"
	KindClassifier Kind = "classifier"
)

// Regressor predicts a single scalar.
type Regressor interface {
	Predict(ctx context.Context, v domain.FeatureVector) (float64, error)
}

// ProbabilisticClassifier predicts a class label and a distribution over Classes.
type ProbabilisticClassifier interface {
	PredictClass(ctx context.Context, v domain.FeatureVector) (int, error)
	PredictProba(ctx context.Context, v domain.FeatureVector) ([]float64, error)
	Classes() []int
}

// Descriptor exposes the training-time contract of a loaded handle.
type Descriptor interface {
	Kind() Kind
	Features() []string
	SchemaVersion() string
}

// SlotKind returns the capability set each domain slot requires.
func SlotKind(d domain.Domain) Kind {
	switch d {
	case domain.DomainCleanup, domain.DomainHealth:
		return KindClassifier
	default:
		return KindRegressor
	}
}

// checkVector rejects vectors built against a different feature order than the
// model was trained on.
func checkVector(features []string, v domain.FeatureVector) error {
	if err := v.Schema().Matches(features); err != nil {
		return fmt.Errorf("model input: %w", err)
	}
	return nil
}
