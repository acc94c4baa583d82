package ensemble

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// Indicator values served when a slot is empty.
const (
	DefaultWaterShortage     = 15.0
	DefaultTrafficCongestion = 40.0
	DefaultFoodPriceChange   = 0.0
	DefaultEnergyPriceChange = 0.0
	DefaultCleanupNeeded     = 0.0
	DefaultHealthStatus      = 0.0
)

// positiveCleanupLabel is the class the cleanup classifier uses for "cleanup needed".
const positiveCleanupLabel = 1

// healthSeverity maps the ordinal health class to a severity percentage.
var healthSeverity = map[int]float64{0: 0, 1: 33, 2: 66, 3: 100}

// Default returns the indicator value for an empty slot.
func Default(d domain.Domain) float64 {
	switch d {
	case domain.DomainWater:
		return DefaultWaterShortage
	case domain.DomainTraffic:
		return DefaultTrafficCongestion
	case domain.DomainFood:
		return DefaultFoodPriceChange
	case domain.DomainEnergy:
		return DefaultEnergyPriceChange
	case domain.DomainCleanup:
		return DefaultCleanupNeeded
	default:
		return DefaultHealthStatus
	}
}

// DecodeCleanup converts a cleanup distribution to a percentage: the
// probability of the positive label times 100, or the largest probability times
// 100 when the model has no positive label.
func DecodeCleanup(classes []int, proba []float64) (float64, error) {
	if len(proba) == 0 || len(proba) != len(classes) {
		return 0, fmt.Errorf("cleanup distribution has %d probabilities for %d classes", len(proba), len(classes))
	}
	if i := slices.Index(classes, positiveCleanupLabel); i >= 0 {
		return proba[i] * 100, nil
	}
	return slices.Max(proba) * 100, nil
}

// DecodeHealth converts an ordinal health class to a severity percentage.
// Classes below 0 clamp to 0 and classes above 3 clamp to 100.
func DecodeHealth(class int) float64 {
	switch {
	case class <= 0:
		return healthSeverity[0]
	case class >= 3:
		return healthSeverity[3]
	default:
		return healthSeverity[class]
	}
}
