package advisory

import (
	"strings"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// Chat roles understood by the generative capability.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn sent to the generative capability.
type Message struct {
	Role    string
	Content string
}

// criticalThreshold is the indicator value above which a risk is called out in
// the prompt status line.
const criticalThreshold = 50.0

const stableStatus = "Conditions are stable"

const systemInstruction = "You are an Emergency Broadcast System. Issue EXACTLY 3 urgent public advisories based on the provided status.\n" +
	"Prioritize risks: Health > Water > Food > Traffic.\n" +
	"Do not output more than 5 lines.\n\n" +
	"Example Input: Status: Air Quality is HAZARDOUS, Water Shortage is SEVERE, Food Price Increase is SEVERE, Traffic is CRITICAL\n" +
	"Example Output:\n" +
	"- HEALTH EMERGENCY: Air quality is toxic; schools closed and N95 masks mandatory.\n" +
	"- WATER RATIONING: Supply cut to 2 hours daily; water tanker schedule activated.\n" +
	"- FOOD PRICE INCREASE: Food prices have surged by 20%; rationing implemented.\n" +
	"- TRAVEL ADVISORY: Downtown gridlocked due to smog visibility; avoid travel.\n\n" +
	"Example Input: Status: Conditions are stable\n" +
	"Example Output:\n" +
	"- MONITORING: City systems functioning within normal parameters.\n" +
	"- ADVISORY: Continue standard conservation practices.\n" +
	"- TRAFFIC: Normal flow reported on main arteries."

// Status summarizes the critical risks in a fixed order: health, water,
// cleanup, traffic.
func Status(req domain.AdvisoryRequest) string {
	var critical []string
	if req.HealthStatus > criticalThreshold {
		critical = append(critical, "Air Quality is HAZARDOUS")
	}
	if req.WaterShortageLevel > criticalThreshold {
		critical = append(critical, "Water Shortage is SEVERE")
	}
	if req.PublicCleanupNeeded > criticalThreshold {
		critical = append(critical, "Sanitation is POOR")
	}
	if req.TrafficCongestionLevel > criticalThreshold {
		critical = append(critical, "Traffic is CRITICAL")
	}
	if len(critical) == 0 {
		return stableStatus
	}
	return strings.Join(critical, ", ")
}

// BuildPrompt returns the system instruction and the user request for the
// given indicators. It is deterministic.
func BuildPrompt(req domain.AdvisoryRequest) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemInstruction},
		{Role: RoleUser, Content: "Status: " + Status(req) + "\nOutput 3 bullet points now:"},
	}
}
