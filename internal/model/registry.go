package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// Registry holds zero or one handle per domain slot. It is populated once at
// start-up and read-only afterwards, so concurrent reads need no locking.
type Registry struct {
	regressors  map[domain.Domain]Regressor
	classifiers map[domain.Domain]ProbabilisticClassifier
}

// NewRegistry returns a registry with every slot empty.
func NewRegistry() *Registry {
	return &Registry{
		regressors:  make(map[domain.Domain]Regressor),
		classifiers: make(map[domain.Domain]ProbabilisticClassifier),
	}
}

// SetRegressor fills a regressor slot.
func (r *Registry) SetRegressor(d domain.Domain, m Regressor) error {
	if SlotKind(d) != KindRegressor {
		return fmt.Errorf("slot %s requires a %s", d, SlotKind(d))
	}
	r.regressors[d] = m
	return nil
}

// SetClassifier fills a classifier slot.
func (r *Registry) SetClassifier(d domain.Domain, m ProbabilisticClassifier) error {
	if SlotKind(d) != KindClassifier {
		return fmt.Errorf("slot %s requires a %s", d, SlotKind(d))
	}
	r.classifiers[d] = m
	return nil
}

// Regressor returns the handle in a regressor slot, or ErrModelUnavailable.
func (r *Registry) Regressor(d domain.Domain) (Regressor, error) {
	m, ok := r.regressors[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, d)
	}
	return m, nil
}

// Classifier returns the handle in a classifier slot, or ErrModelUnavailable.
func (r *Registry) Classifier(d domain.Domain) (ProbabilisticClassifier, error) {
	m, ok := r.classifiers[d]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, d)
	}
	return m, nil
}

// Loaded lists the filled slots in domain order.
func (r *Registry) Loaded() []domain.Domain {
	var out []domain.Domain
	for _, d := range domain.Domains {
		_, reg := r.regressors[d]
		_, cls := r.classifiers[d]
		if reg || cls {
			out = append(out, d)
		}
	}
	return out
}

// LoadRegistry builds a registry from a manifest. A missing or unreachable
// artifact leaves its slot empty and logs a warning. An artifact whose kind,
// feature order, or schema version disagrees with its slot fails the load.
func LoadRegistry(ctx context.Context, m Manifest, opener Opener, remoteTimeout time.Duration, logger *slog.Logger) (*Registry, error) {
	reg := NewRegistry()
	for name, entry := range m.Models {
		d, err := domain.ParseDomain(name)
		if err != nil {
			return nil, err
		}
		schema, err := domain.LookupSchema(d, entry.SchemaVersion)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", d, err)
		}

		handle, err := openHandle(ctx, entry, opener, remoteTimeout)
		if errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrArtifactNotFound) {
			logger.Warn("model slot left empty", "domain", d, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", d, err)
		}
		if err := checkDescriptor(d, schema, handle); err != nil {
			return nil, err
		}
		if err := fill(reg, d, handle); err != nil {
			return nil, err
		}
		logger.Info("model slot loaded", "domain", d, "kind", handle.Kind(), "schema", schema.Key())
	}

	for _, d := range domain.Domains {
		if !slices.Contains(reg.Loaded(), d) {
			logger.Info("model slot empty, serving default", "domain", d)
		}
	}
	return reg, nil
}

func openHandle(ctx context.Context, entry SlotEntry, opener Opener, remoteTimeout time.Duration) (Descriptor, error) {
	if entry.Endpoint != "" {
		r, err := NewRemote(ctx, entry.Endpoint, remoteTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
		}
		return r, nil
	}

	rc, err := opener.Open(ctx, entry.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrModelUnavailable, entry.Path, err)
	}
	f, err := ParseForest(data)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func checkDescriptor(d domain.Domain, schema domain.FeatureSchema, h Descriptor) error {
	if h.Kind() != SlotKind(d) {
		return fmt.Errorf("slot %s: artifact is a %s, slot requires a %s", d, h.Kind(), SlotKind(d))
	}
	if v := h.SchemaVersion(); v != "" && v != schema.Version {
		return fmt.Errorf("slot %s: %w: artifact trained on schema %s, manifest declares %s",
			d, domain.ErrFeatureSchemaMismatch, v, schema.Version)
	}
	if err := schema.Matches(h.Features()); err != nil {
		return fmt.Errorf("slot %s: %w", d, err)
	}
	return nil
}

func fill(reg *Registry, d domain.Domain, h Descriptor) error {
	switch SlotKind(d) {
	case KindClassifier:
		c, ok := h.(ProbabilisticClassifier)
		if !ok {
			return fmt.Errorf("slot %s: handle does not classify", d)
		}
		return reg.SetClassifier(d, c)
	default:
		m, ok := h.(Regressor)
		if !ok {
			return fmt.Errorf("slot %s: handle does not regress", d)
		}
		return reg.SetRegressor(d, m)
	}
}
