package domain

import "strings"

// RiskScoreSet is the complete set of six indicators produced for one CityState.
type RiskScoreSet struct {
	WaterShortageLevel       float64 `json:"waterShortageLevel"`
	TrafficCongestionLevel   float64 `json:"trafficCongestionLevel"`
	FoodPriceChangePercent   float64 `json:"foodPriceChangePercent"`
	EnergyPriceChangePercent float64 `json:"energyPriceChangePercent"`
	PublicCleanupNeeded      float64 `json:"publicCleanupNeeded"`
	HealthStatus             float64 `json:"healthStatus"`
}

// AdvisoryRequest carries the six indicators into advisory synthesis. It may be
// built from a RiskScoreSet or supplied directly by a caller.
type AdvisoryRequest struct {
	WaterShortageLevel       float64 `json:"waterShortageLevel"`
	TrafficCongestionLevel   float64 `json:"trafficCongestionLevel"`
	FoodPriceChangePercent   float64 `json:"foodPriceChangePercent"`
	EnergyPriceChangePercent float64 `json:"energyPriceChangePercent"`
	PublicCleanupNeeded      float64 `json:"publicCleanupNeeded"`
	HealthStatus             float64 `json:"healthStatus"`
}

// AdvisoryRequest converts the scores into an advisory request.
func (r RiskScoreSet) AdvisoryRequest() AdvisoryRequest {
	return AdvisoryRequest(r)
}

// MaxAdvisoryLines bounds every AdvisoryText.
const MaxAdvisoryLines = 3

// AdvisoryText is an ordered list of at most MaxAdvisoryLines advisory lines.
type AdvisoryText struct {
	lines []string
}

// NewAdvisoryText copies up to MaxAdvisoryLines lines into an AdvisoryText.
func NewAdvisoryText(lines []string) AdvisoryText {
	if len(lines) > MaxAdvisoryLines {
		lines = lines[:MaxAdvisoryLines]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return AdvisoryText{lines: out}
}

// Lines returns a copy of the advisory lines.
func (a AdvisoryText) Lines() []string {
	out := make([]string, len(a.lines))
	copy(out, a.lines)
	return out
}

// Len returns the number of lines.
func (a AdvisoryText) Len() int { return len(a.lines) }

// Empty reports whether the text has no non-blank content.
func (a AdvisoryText) Empty() bool {
	return strings.TrimSpace(a.String()) == ""
}

// String joins the lines with line breaks, the wire form of the advisories.
func (a AdvisoryText) String() string {
	return strings.Join(a.lines, "\n")
}
