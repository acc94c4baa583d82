package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrFeatureSchemaMismatch reports a feature set or order that differs from the
// schema a model was trained on.
var ErrFeatureSchemaMismatch = errors.New("feature schema mismatch")

// Domain identifies one of the six risk areas, and the model slot that scores it.
type Domain string

const (
	DomainWater   Domain = "water"
	DomainTraffic Domain = "traffic"
	DomainFood    Domain = "food"
	DomainEnergy  Domain = "energy"
	DomainCleanup Domain = "cleanup"
	DomainHealth  Domain = "health"
)

// Domains lists every domain in registry order.
var Domains = []Domain{DomainWater, DomainTraffic, DomainFood, DomainEnergy, DomainCleanup, DomainHealth}

// ParseDomain validates a domain name.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Domains, d) {
		return "", fmt.Errorf("unknown domain %q", s)
	}
	return d, nil
}

// Feature names shared across schemas.
const (
	FeatureRainfall12mo          = "rainfall_last_12_months_mm"
	FeatureRainfall              = "rainfall_mm"
	FeatureStorm                 = "recent_storm_or_flood"
	FeatureWaterSupply           = "water_supply_level"
	FeatureWindSpeed             = "wind_speed_kmh"
	FeatureAQI                   = "aqi"
	FeatureBusesOperating        = "buses_operating"
	FeatureVehiclesPerHour       = "avg_vehicles_per_hour"
	FeaturePeakMultiplier        = "peak_hour_multiplier"
	FeatureRoadsNeedingRepair    = "roads_needing_repair"
	FeatureCropYield             = "crop_yield_last_year"
	FeatureStockLevel            = "current_stock_level"
	FeatureSupplyChainEfficiency = "supply_chain_efficiency"
	FeatureImportDependency      = "import_dependency"
	FeatureCurrentUsage          = "current_usage_mw"
	FeatureAvgUsage              = "avg_usage_last_year"
	FeaturePeakDemand            = "peak_demand_mw"
	FeatureGridStability         = "grid_stability"
	FeatureRenewable             = "renewable_percentage"
	FeatureSewerHealth           = "sewer_system_health"
	FeatureResponseTime          = "emergency_response_time"
	FeaturePendingMaintenance    = "pending_maintenance_tasks"
	FeatureTemperature           = "temperature_c"
)

// CongestedFeature returns the feature name for a corridor flag.
func CongestedFeature(corridor string) string {
	return "congested_" + corridor
}

// FeatureSchema is the ordered, versioned list of features a domain model consumes.
type FeatureSchema struct {
	Domain  Domain
	Version string
	Fields  []string
}

// Key identifies the schema, e.g. "cleanup/v1".
func (s FeatureSchema) Key() string {
	return string(s.Domain) + "/" + s.Version
}

// Matches reports an error unless fields equals the schema's fields, in order.
func (s FeatureSchema) Matches(fields []string) error {
	if slices.Equal(s.Fields, fields) {
		return nil
	}
	return fmt.Errorf("%w: %s expects %v, got %v", ErrFeatureSchemaMismatch, s.Key(), s.Fields, fields)
}

// Vector orders named values by the schema. The set of names must equal the
// schema's fields exactly.
func (s FeatureSchema) Vector(values map[string]float64) (FeatureVector, error) {
	if len(values) != len(s.Fields) {
		return FeatureVector{}, fmt.Errorf("%w: %s expects %d features, got %d",
			ErrFeatureSchemaMismatch, s.Key(), len(s.Fields), len(values))
	}
	ordered := make([]float64, len(s.Fields))
	for i, name := range s.Fields {
		v, ok := values[name]
		if !ok {
			return FeatureVector{}, fmt.Errorf("%w: %s missing feature %q", ErrFeatureSchemaMismatch, s.Key(), name)
		}
		ordered[i] = v
	}
	return FeatureVector{schema: s, values: ordered}, nil
}

// FeatureVector is a schema-ordered feature row for one model invocation.
type FeatureVector struct {
	schema FeatureSchema
	values []float64
}

// Schema returns the schema the vector was built against.
func (v FeatureVector) Schema() FeatureSchema { return v.schema }

// Values returns a copy of the ordered values.
func (v FeatureVector) Values() []float64 {
	return slices.Clone(v.values)
}

// Named returns the values keyed by feature name.
func (v FeatureVector) Named() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for i, name := range v.schema.Fields {
		out[name] = v.values[i]
	}
	return out
}

// Len returns the number of features.
func (v FeatureVector) Len() int { return len(v.values) }

// SchemaVersionV1 is the schema generation the serving models were trained with.
const SchemaVersionV1 = "v1"

var schemasV1 = map[Domain]FeatureSchema{
	DomainWater: {
		Domain:  DomainWater,
		Version: SchemaVersionV1,
		Fields:  []string{FeatureRainfall12mo, FeatureRainfall, FeatureStorm, FeatureWaterSupply},
	},
	DomainTraffic: {
		Domain:  DomainTraffic,
		Version: SchemaVersionV1,
		Fields: []string{
			FeatureWindSpeed, FeatureRainfall, FeatureStorm, FeatureAQI,
			FeatureBusesOperating, FeatureVehiclesPerHour, FeaturePeakMultiplier,
			CongestedFeature("west"), CongestedFeature("south"), CongestedFeature("east"),
			CongestedFeature("north"), CongestedFeature("central"),
			FeatureRoadsNeedingRepair,
		},
	},
	DomainFood: {
		Domain:  DomainFood,
		Version: SchemaVersionV1,
		Fields: []string{
			FeatureRainfall, FeatureRainfall12mo, FeatureCropYield, FeatureStockLevel,
			FeatureSupplyChainEfficiency, FeatureImportDependency, FeatureStorm,
		},
	},
	DomainEnergy: {
		Domain:  DomainEnergy,
		Version: SchemaVersionV1,
		Fields: []string{
			FeatureCurrentUsage, FeatureAvgUsage, FeaturePeakDemand,
			FeatureGridStability, FeatureRenewable, FeatureStorm,
		},
	},
	DomainCleanup: {
		Domain:  DomainCleanup,
		Version: SchemaVersionV1,
		Fields: []string{
			FeatureRoadsNeedingRepair, FeatureWaterSupply, FeatureSewerHealth,
			FeatureResponseTime, FeaturePendingMaintenance, FeatureStorm,
		},
	},
	DomainHealth: {
		Domain:  DomainHealth,
		Version: SchemaVersionV1,
		Fields: []string{
			FeatureTemperature, FeatureRainfall, FeatureAQI, FeatureStorm,
			FeatureSewerHealth, FeatureResponseTime,
		},
	},
}

// LookupSchema returns the schema for a domain at a version.
func LookupSchema(d Domain, version string) (FeatureSchema, error) {
	if version != SchemaVersionV1 {
		return FeatureSchema{}, fmt.Errorf("%w: no schema %s/%s", ErrFeatureSchemaMismatch, d, version)
	}
	s, ok := schemasV1[d]
	if !ok {
		return FeatureSchema{}, fmt.Errorf("%w: no schema for domain %q", ErrFeatureSchemaMismatch, d)
	}
	s.Fields = slices.Clone(s.Fields)
	return s, nil
}

// CurrentSchema returns the schema the Feature Deriver builds for a domain.
func CurrentSchema(d Domain) FeatureSchema {
	s := schemasV1[d]
	s.Fields = slices.Clone(s.Fields)
	return s
}
