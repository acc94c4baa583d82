package domain

import (
	"fmt"
	"slices"
)

// FeatureSet holds one schema-ordered vector per domain for a single CityState.
type FeatureSet struct {
	vectors map[Domain]FeatureVector
}

// Vector returns the vector for a domain.
func (f FeatureSet) Vector(d Domain) (FeatureVector, bool) {
	v, ok := f.vectors[d]
	return v, ok
}

// DeriveFeatures computes the six domain feature vectors for a city snapshot.
// It is pure; an error means a schema definition and its derivation disagree.
func DeriveFeatures(city CityState) (FeatureSet, error) {
	w := city.Weather
	t := city.Transportation
	a := city.Agriculture
	e := city.Energy
	p := city.PublicServices

	rainfall12mo := TotalRainfall(w.RainfallLast12Months)
	storm := StormFlag(w.RecentStormOrFlood)

	traffic := map[string]float64{
		FeatureWindSpeed:          w.WindSpeed,
		FeatureRainfall:           w.CurrentRainfall,
		FeatureStorm:              storm,
		FeatureAQI:                w.AQI,
		FeatureBusesOperating:     float64(t.BusesOperating),
		FeatureVehiclesPerHour:    float64(t.AvgVehiclesPerHour),
		FeaturePeakMultiplier:     t.PeakHourMultiplier,
		FeatureRoadsNeedingRepair: float64(p.RoadsNeedingRepair),
	}
	for corridor, flag := range CongestionFlags(t.BusRoutesCongested) {
		traffic[CongestedFeature(corridor)] = flag
	}

	named := map[Domain]map[string]float64{
		DomainWater: {
			FeatureRainfall12mo: rainfall12mo,
			FeatureRainfall:     w.CurrentRainfall,
			FeatureStorm:        storm,
			FeatureWaterSupply:  p.WaterSupplyLevel,
		},
		DomainTraffic: traffic,
		DomainFood: {
			FeatureRainfall:              w.CurrentRainfall,
			FeatureRainfall12mo:          rainfall12mo,
			FeatureCropYield:             a.CropYieldLastYear,
			FeatureStockLevel:            a.CurrentStockLevel,
			FeatureSupplyChainEfficiency: a.SupplyChainEfficiency,
			FeatureImportDependency:      a.ImportDependency,
			FeatureStorm:                 storm,
		},
		DomainEnergy: {
			FeatureCurrentUsage:  e.CurrentUsageMW,
			FeatureAvgUsage:      e.AvgUsageLastYear,
			FeaturePeakDemand:    e.PeakDemandMW,
			FeatureGridStability: e.GridStability,
			FeatureRenewable:     e.RenewablePercentage,
			FeatureStorm:         storm,
		},
		DomainCleanup: {
			FeatureRoadsNeedingRepair: float64(p.RoadsNeedingRepair),
			FeatureWaterSupply:        p.WaterSupplyLevel,
			FeatureSewerHealth:        p.SewerSystemHealth,
			FeatureResponseTime:       p.EmergencyResponseTime,
			FeaturePendingMaintenance: float64(p.PendingMaintenanceTasks),
			FeatureStorm:              storm,
		},
		DomainHealth: {
			FeatureTemperature:  w.CurrentTemperature,
			FeatureRainfall:     w.CurrentRainfall,
			FeatureAQI:          w.AQI,
			FeatureStorm:        storm,
			FeatureSewerHealth:  p.SewerSystemHealth,
			FeatureResponseTime: p.EmergencyResponseTime,
		},
	}

	set := FeatureSet{vectors: make(map[Domain]FeatureVector, len(Domains))}
	for _, d := range Domains {
		v, err := CurrentSchema(d).Vector(named[d])
		if err != nil {
			return FeatureSet{}, fmt.Errorf("derive %s features: %w", d, err)
		}
		set.vectors[d] = v
	}
	return set, nil
}

// TotalRainfall sums the monthly rainfall samples.
func TotalRainfall(months []float64) float64 {
	var total float64
	for _, m := range months {
		total += m
	}
	return total
}

// StormFlag encodes the storm/flood indicator as 1 or 0.
func StormFlag(recent bool) float64 {
	if recent {
		return 1
	}
	return 0
}

// CongestionFlags maps every known corridor to 1 if it is listed as congested,
// else 0. Unknown corridor names are ignored.
func CongestionFlags(congested []string) map[string]float64 {
	flags := make(map[string]float64, len(Corridors))
	for _, c := range Corridors {
		flags[c] = 0
		if slices.Contains(congested, c) {
			flags[c] = 1
		}
	}
	return flags
}
