package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"weather":{"aqi":120}}`),
		Topic:     "city-state-snapshots",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("sensor-grid")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"weather":{"aqi":120}}`, string(raw.Value))
	assert.Equal(t, "city-state-snapshots", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "sensor-grid", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)
	a := domain.NewAssessment(domain.RiskScoreSet{WaterShortageLevel: 70}, domain.NewAdvisoryText([]string{"- WATER: ration."}), domain.SourceRuleBased, now)
	a.AssessedAt = now
	event, err := domain.SerializeAssessment(a)
	require.NoError(t, err)

	msg := toMessage(event)

	assert.Equal(t, []byte(a.ID), msg.Key)
	assert.Contains(t, string(msg.Value), `"advisory_source":"rule_based"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "advisory_source", msg.Headers[0].Key)
	assert.Equal(t, []byte("rule_based"), msg.Headers[0].Value)
	assert.Equal(t, "assessed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestToMessage_NoHeaders(t *testing.T) {
	msg := toMessage(domain.OutputEvent{Key: []byte("k"), Value: []byte("{}")})
	assert.Empty(t, msg.Headers)
	assert.Equal(t, []byte("k"), msg.Key)
}
