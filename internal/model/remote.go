package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// Remote is a handle backed by a model server reached over HTTP. The server
// describes itself at GET /metadata and scores single rows at POST /predict and
// POST /predict_proba.
type Remote struct {
	endpoint   string
	httpClient *http.Client
	meta       remoteMetadata
}

type remoteMetadata struct {
	Name          string   `json:"name"`
	Kind          Kind     `json:"kind"`
	SchemaVersion string   `json:"schema_version"`
	Features      []string `json:"features"`
	Classes       []int    `json:"classes,omitempty"`
}

type remoteRequest struct {
	Features []string  `json:"features"`
	Values   []float64 `json:"values"`
}

type predictResponse struct {
	Prediction float64 `json:"prediction"`
}

type probaResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// NewRemote connects to a model server and fetches its metadata.
func NewRemote(ctx context.Context, endpoint string, timeout time.Duration) (*Remote, error) {
	r := &Remote{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	if err := r.fetchMetadata(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Remote) fetchMetadata(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/metadata", nil)
	if err != nil {
		return fmt.Errorf("create metadata request: %w", err)
	}
	if err := r.do(req, &r.meta); err != nil {
		return fmt.Errorf("model metadata %s: %w", r.endpoint, err)
	}
	if r.meta.Kind == KindClassifier && len(r.meta.Classes) == 0 {
		return fmt.Errorf("model metadata %s: classifier without classes", r.endpoint)
	}
	return nil
}

// Kind implements Descriptor.
func (r *Remote) Kind() Kind { return r.meta.Kind }

// Features implements Descriptor.
func (r *Remote) Features() []string { return slices.Clone(r.meta.Features) }

// SchemaVersion implements Descriptor.
func (r *Remote) SchemaVersion() string { return r.meta.SchemaVersion }

// Classes implements ProbabilisticClassifier.
func (r *Remote) Classes() []int { return slices.Clone(r.meta.Classes) }

// Predict implements Regressor.
func (r *Remote) Predict(ctx context.Context, v domain.FeatureVector) (float64, error) {
	var resp predictResponse
	if err := r.post(ctx, "/predict", v, &resp); err != nil {
		return 0, err
	}
	return resp.Prediction, nil
}

// PredictClass implements ProbabilisticClassifier.
func (r *Remote) PredictClass(ctx context.Context, v domain.FeatureVector) (int, error) {
	var resp predictResponse
	if err := r.post(ctx, "/predict", v, &resp); err != nil {
		return 0, err
	}
	return int(math.Round(resp.Prediction)), nil
}

// PredictProba implements ProbabilisticClassifier.
func (r *Remote) PredictProba(ctx context.Context, v domain.FeatureVector) ([]float64, error) {
	var resp probaResponse
	if err := r.post(ctx, "/predict_proba", v, &resp); err != nil {
		return nil, err
	}
	if len(resp.Probabilities) != len(r.meta.Classes) {
		return nil, fmt.Errorf("model server %s returned %d probabilities for %d classes",
			r.endpoint, len(resp.Probabilities), len(r.meta.Classes))
	}
	return resp.Probabilities, nil
}

func (r *Remote) post(ctx context.Context, path string, v domain.FeatureVector, out any) error {
	if err := checkVector(r.meta.Features, v); err != nil {
		return err
	}
	body, err := json.Marshal(remoteRequest{Features: r.meta.Features, Values: v.Values()})
	if err != nil {
		return fmt.Errorf("marshal model request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := r.do(req, out); err != nil {
		return fmt.Errorf("model server %s%s: %w", r.endpoint, path, err)
	}
	return nil
}

func (r *Remote) do(req *http.Request, out any) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
