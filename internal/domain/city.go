package domain

// Weather holds the current conditions and the trailing rainfall record.
type Weather struct {
	CurrentTemperature   float64   `json:"currentTemperature"`
	Humidity             float64   `json:"humidity"`
	WindSpeed            float64   `json:"windSpeed"`
	CurrentRainfall      float64   `json:"currentRainfall"`
	RainfallLast12Months []float64 `json:"rainfallLast12Months"`
	RecentStormOrFlood   bool      `json:"recentStormOrFlood"`
	AQI                  float64   `json:"aqi"`
}

// Transportation holds bus fleet and road traffic readings.
type Transportation struct {
	BusesOperating     int      `json:"busesOperating"`
	TotalBuses         int      `json:"totalBuses"`
	BusRoutesCongested []string `json:"busRoutesCongested"`
	AvgVehiclesPerHour int      `json:"avgVehiclesPerHour"`
	PeakHourMultiplier float64  `json:"peakHourMultiplier"`
}

// Agriculture holds food supply readings.
type Agriculture struct {
	CropYieldLastYear     float64 `json:"cropYieldLastYear"`
	CurrentStockLevel     float64 `json:"currentStockLevel"`
	SupplyChainEfficiency float64 `json:"supplyChainEfficiency"`
	ImportDependency      float64 `json:"importDependency"`
}

// Energy holds grid demand readings.
type Energy struct {
	CurrentUsageMW      float64 `json:"currentUsageMW"`
	AvgUsageLastYear    float64 `json:"avgUsageLastYear"`
	PeakDemandMW        float64 `json:"peakDemandMW"`
	GridStability       float64 `json:"gridStability"`
	RenewablePercentage float64 `json:"renewablePercentage"`
}

// PublicServices holds municipal infrastructure readings.
type PublicServices struct {
	RoadsNeedingRepair      int     `json:"roadsNeedingRepair"`
	WaterSupplyLevel        float64 `json:"waterSupplyLevel"`
	SewerSystemHealth       float64 `json:"sewerSystemHealth"`
	EmergencyResponseTime   float64 `json:"emergencyResponseTime"`
	PendingMaintenanceTasks int     `json:"pendingMaintenanceTasks"`
}

// CityState is one snapshot of every reading group for the city.
type CityState struct {
	Weather        Weather        `json:"weather"`
	Transportation Transportation `json:"transportation"`
	Agriculture    Agriculture    `json:"agriculture"`
	Energy         Energy         `json:"energy"`
	PublicServices PublicServices `json:"publicServices"`
}

// Corridors lists the bus corridors the traffic model was trained on, in
// feature order.
var Corridors = []string{"west", "south", "east", "north", "central"}
