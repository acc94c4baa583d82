// Package domain models a single city's periodic readings and the risk
// indicators and advisories derived from them.
//
// # City State
//
// A [CityState] is one snapshot of five reading groups:
//
//	weather         temperature (°C), humidity (%), wind (km/h), current rainfall (mm),
//	                twelve monthly rainfall totals (mm), storm/flood flag, AQI
//	transportation  buses operating/total, congested bus corridors, vehicles/hour,
//	                peak-hour multiplier
//	agriculture     last year's crop yield, stock level, supply-chain efficiency,
//	                import dependency
//	energy          current/average/peak demand (MW), grid stability, renewable share
//	publicServices  roads needing repair, water supply level, sewer health,
//	                emergency response time (min), pending maintenance tasks
//
// Snapshots are owned by the caller and never mutated here.
//
// # Feature Schemas
//
// Each risk domain is scored by an independently trained model that consumes a
// flat numeric vector. The trained model only knows column positions, so a vector
// assembled in the wrong order produces a wrong prediction rather than an error.
// Every domain therefore has a named, versioned [FeatureSchema], and vectors can
// only be built through [FeatureSchema.Vector], which rejects a field set that
// differs from the schema with [ErrFeatureSchemaMismatch].
//
// Derived features:
//
//	rainfall_last_12_months_mm  sum of the twelve monthly samples
//	recent_storm_or_flood       1 when the storm/flood flag is set, else 0
//	congested_<corridor>        1 when the corridor appears in busRoutesCongested,
//	                            for corridors west, south, east, north, central;
//	                            unknown names are ignored and duplicates collapse
//
// # Risk Indicators
//
// A [RiskScoreSet] carries six indicators. Four are unbounded levels or
// percentages (water shortage, traffic congestion, food and energy price change).
// publicCleanupNeeded and healthStatus use the percentage encoding: cleanup is
// the positive-class probability ×100 and health maps ordinal classes 0–3 to
// 0, 33, 66, 100.
//
// Note that the rule-based advisories treat a LOW healthStatus as poor health
// (healthStatus ≤ 40 triggers the public health alert), the opposite polarity to
// the other indicators.
package domain
