package advisory

import (
	"fmt"
	"math"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// Rule engine thresholds.
const (
	waterEmergency     = 70.0
	waterConservation  = 40.0
	trafficManagement  = 70.0
	trafficOptimize    = 40.0
	cleanupDrive       = 60.0
	healthAlert        = 40.0 // at or below; low health status means poor health
	energyRising       = 10.0
	energyFalling      = -5.0
	foodRising         = 8.0
	foodFalling        = -5.0
	bulletPrefix       = "- "
	ruleBasedLineLimit = domain.MaxAdvisoryLines
)

var genericAdvisories = []string{
	"COORDINATION CELL: Maintain an integrated command center linking water, transport, health, and disaster management for rapid decisions.",
	"DATA-DRIVEN MONITORING: Track key indicators daily and trigger predefined playbooks when thresholds are crossed.",
	"COMMUNITY OUTREACH: Use multilingual alerts and ward-level meetings to keep residents informed and engaged in resilience actions.",
}

// RuleBased produces advisories from fixed thresholds. Candidates are checked
// in priority order (water, traffic, cleanup, health, energy, food) and the
// first three that fire are kept. When none fire, three generic advisories
// are returned. It is pure and cannot fail.
func RuleBased(req domain.AdvisoryRequest) domain.AdvisoryText {
	items := ruleCandidates(req)
	if len(items) == 0 {
		items = genericAdvisories
	}
	if len(items) > ruleBasedLineLimit {
		items = items[:ruleBasedLineLimit]
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = bulletPrefix + item
	}
	return domain.NewAdvisoryText(lines)
}

func ruleCandidates(req domain.AdvisoryRequest) []string {
	var items []string

	switch water := req.WaterShortageLevel; {
	case water >= waterEmergency:
		items = append(items, fmt.Sprintf("WATER EMERGENCY: With shortage risk near %.0f%%, enforce rationing, prioritize hospitals and vulnerable settlements, and deploy leak-fixing crews within 24 hours.", water))
	case water >= waterConservation:
		items = append(items, fmt.Sprintf("WATER CONSERVATION: With shortage risk around %.0f%%, launch citywide conservation campaign, restrict non-essential use, and fast-track supply network inspections.", water))
	}

	switch traffic := req.TrafficCongestionLevel; {
	case traffic >= trafficManagement:
		items = append(items, fmt.Sprintf("TRAFFIC MANAGEMENT: With congestion near %.0f%%, activate dynamic signal plans, divert heavy vehicles outside peak hours, and deploy traffic marshals at hotspots.", traffic))
	case traffic >= trafficOptimize:
		items = append(items, fmt.Sprintf("MOBILITY OPTIMIZATION: With congestion around %.0f%%, promote staggered office timings, increase bus frequency on congested corridors, and improve last-mile options.", traffic))
	}

	if cleanup := req.PublicCleanupNeeded; cleanup >= cleanupDrive {
		items = append(items, fmt.Sprintf("CITY CLEANUP DRIVE: With cleanup risk near %.0f%%, schedule intensive cleanup and repair in high-risk wards, coordinate sanitation, roads, and drainage teams with a clear 7–14 day timeline.", cleanup))
	}

	if health := req.HealthStatus; health <= healthAlert {
		items = append(items, fmt.Sprintf("PUBLIC HEALTH ALERT: With health risk index near %.0f, scale up clinic capacity, issue air and water quality advisories, and mobilize outreach in high-risk neighborhoods.", health))
	}

	switch energy := req.EnergyPriceChangePercent; {
	case energy >= energyRising:
		items = append(items, fmt.Sprintf("ENERGY STABILITY PLAN: With tariffs rising about %.1f%%, announce time-of-day tariffs, incentivize large consumers to shift loads off-peak, and expand demand response programs.", energy))
	case energy <= energyFalling:
		items = append(items, fmt.Sprintf("ENERGY STABILITY PLAN: With tariffs falling about %.1f%%, lock in lower bulk procurements while protecting low-income households from volatility.", math.Abs(energy)))
	}

	switch food := req.FoodPriceChangePercent; {
	case food >= foodRising:
		items = append(items, fmt.Sprintf("FOOD PRICE CONTAINMENT: With staple prices rising about %.1f%%, release buffer stocks, support wholesale markets, and expand targeted subsidies for low-income households.", food))
	case food <= foodFalling:
		items = append(items, fmt.Sprintf("FOOD MARKET STABILIZATION: With prices dropping about %.1f%%, stabilize farmer incomes through procurement and storage while keeping retail prices predictable.", math.Abs(food)))
	}

	return items
}
