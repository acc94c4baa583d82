package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RawEvent represents an unprocessed city-state snapshot from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// AdvisorySource records which generator produced an advisory text.
type AdvisorySource string

const (
	SourceGenerated AdvisorySource = "generated"
	SourceRuleBased AdvisorySource = "rule_based"
)

// Assessment is the full result for one snapshot: indicators plus advisories.
type Assessment struct {
	ID             string         `json:"id"`
	RiskScores     RiskScoreSet   `json:"risk_scores"`
	Advisories     []string       `json:"advisories"`
	AdvisorySource AdvisorySource `json:"advisory_source"`
	SnapshotTime   time.Time      `json:"snapshot_time,omitzero"`
	AssessedAt     time.Time      `json:"assessed_at"`
}

// ParseRawEvent decodes a RawEvent's value into a CityInput. The caller
// validates it before converting.
func ParseRawEvent(raw RawEvent) (CityInput, error) {
	var in CityInput
	if err := json.Unmarshal(raw.Value, &in); err != nil {
		return CityInput{}, fmt.Errorf("parse raw event: %w", err)
	}
	return in, nil
}

// NewAssessment stamps an assessment with a fresh ID and the current time.
func NewAssessment(scores RiskScoreSet, advisories AdvisoryText, source AdvisorySource, snapshotTime time.Time) Assessment {
	return Assessment{
		ID:             uuid.NewString(),
		RiskScores:     scores,
		Advisories:     advisories.Lines(),
		AdvisorySource: source,
		SnapshotTime:   snapshotTime,
		AssessedAt:     clock.Now().UTC(),
	}
}

// SerializeAssessment marshals an assessment into an OutputEvent keyed by its ID.
func SerializeAssessment(a Assessment) (OutputEvent, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return OutputEvent{
		Key:   []byte(a.ID),
		Value: data,
		Headers: map[string]string{
			"advisory_source": string(a.AdvisorySource),
			"assessed_at":     a.AssessedAt.Format(time.RFC3339),
		},
	}, nil
}
