package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureSchema_Vector(t *testing.T) {
	s := CurrentSchema(DomainWater)

	t.Run("orders by schema", func(t *testing.T) {
		v, err := s.Vector(map[string]float64{
			FeatureWaterSupply:  40,
			FeatureStorm:        0,
			FeatureRainfall:     2,
			FeatureRainfall12mo: 1800,
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{1800, 2, 0, 40}, v.Values())
		assert.Equal(t, "water/v1", v.Schema().Key())
	})

	t.Run("missing feature", func(t *testing.T) {
		_, err := s.Vector(map[string]float64{
			FeatureWaterSupply:  40,
			FeatureStorm:        0,
			FeatureRainfall:     2,
			"rainfall_last_year": 1800,
		})
		require.ErrorIs(t, err, ErrFeatureSchemaMismatch)
		assert.Contains(t, err.Error(), FeatureRainfall12mo)
	})

	t.Run("extra feature", func(t *testing.T) {
		_, err := s.Vector(map[string]float64{
			FeatureWaterSupply:  40,
			FeatureStorm:        0,
			FeatureRainfall:     2,
			FeatureRainfall12mo: 1800,
			FeatureAQI:          90,
		})
		require.ErrorIs(t, err, ErrFeatureSchemaMismatch)
	})
}

func TestFeatureSchema_Matches(t *testing.T) {
	s := CurrentSchema(DomainCleanup)
	require.NoError(t, s.Matches(s.Fields))

	// Same set, training-time order drifted.
	reordered := []string{
		FeatureStorm, FeatureRoadsNeedingRepair, FeatureWaterSupply,
		FeatureSewerHealth, FeatureResponseTime, FeaturePendingMaintenance,
	}
	assert.ErrorIs(t, s.Matches(reordered), ErrFeatureSchemaMismatch)
}

func TestLookupSchema(t *testing.T) {
	s, err := LookupSchema(DomainHealth, SchemaVersionV1)
	require.NoError(t, err)
	assert.Len(t, s.Fields, 6)

	_, err = LookupSchema(DomainHealth, "v2")
	assert.ErrorIs(t, err, ErrFeatureSchemaMismatch)

	_, err = LookupSchema(Domain("noise"), SchemaVersionV1)
	assert.ErrorIs(t, err, ErrFeatureSchemaMismatch)
}

func TestCurrentSchema_ReturnsCopy(t *testing.T) {
	s := CurrentSchema(DomainEnergy)
	s.Fields[0] = "tampered"
	assert.Equal(t, FeatureCurrentUsage, CurrentSchema(DomainEnergy).Fields[0])
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain(" Cleanup ")
	require.NoError(t, err)
	assert.Equal(t, DomainCleanup, d)

	_, err = ParseDomain("transport")
	assert.Error(t, err)
}
