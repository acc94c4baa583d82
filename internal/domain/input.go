package domain

// Inputs decoded from callers. Every reading is a pointer tagged required so a
// field the caller left out is rejected instead of reaching the models as zero.
// Validate an input before converting it.

// WeatherInput is the caller-supplied Weather group.
type WeatherInput struct {
	CurrentTemperature   *float64  `json:"currentTemperature" validate:"required"`
	Humidity             *float64  `json:"humidity" validate:"required"`
	WindSpeed            *float64  `json:"windSpeed" validate:"required"`
	CurrentRainfall      *float64  `json:"currentRainfall" validate:"required"`
	RainfallLast12Months []float64 `json:"rainfallLast12Months" validate:"required,len=12"`
	RecentStormOrFlood   *bool     `json:"recentStormOrFlood" validate:"required"`
	AQI                  *float64  `json:"aqi" validate:"required"`
}

// TransportationInput is the caller-supplied Transportation group.
type TransportationInput struct {
	BusesOperating     *int     `json:"busesOperating" validate:"required"`
	TotalBuses         *int     `json:"totalBuses" validate:"required"`
	BusRoutesCongested []string `json:"busRoutesCongested" validate:"required"`
	AvgVehiclesPerHour *int     `json:"avgVehiclesPerHour" validate:"required"`
	PeakHourMultiplier *float64 `json:"peakHourMultiplier" validate:"required"`
}

// AgricultureInput is the caller-supplied Agriculture group.
type AgricultureInput struct {
	CropYieldLastYear     *float64 `json:"cropYieldLastYear" validate:"required"`
	CurrentStockLevel     *float64 `json:"currentStockLevel" validate:"required"`
	SupplyChainEfficiency *float64 `json:"supplyChainEfficiency" validate:"required"`
	ImportDependency      *float64 `json:"importDependency" validate:"required"`
}

// EnergyInput is the caller-supplied Energy group.
type EnergyInput struct {
	CurrentUsageMW      *float64 `json:"currentUsageMW" validate:"required"`
	AvgUsageLastYear    *float64 `json:"avgUsageLastYear" validate:"required"`
	PeakDemandMW        *float64 `json:"peakDemandMW" validate:"required"`
	GridStability       *float64 `json:"gridStability" validate:"required"`
	RenewablePercentage *float64 `json:"renewablePercentage" validate:"required"`
}

// PublicServicesInput is the caller-supplied PublicServices group.
type PublicServicesInput struct {
	RoadsNeedingRepair      *int     `json:"roadsNeedingRepair" validate:"required"`
	WaterSupplyLevel        *float64 `json:"waterSupplyLevel" validate:"required"`
	SewerSystemHealth       *float64 `json:"sewerSystemHealth" validate:"required"`
	EmergencyResponseTime   *float64 `json:"emergencyResponseTime" validate:"required"`
	PendingMaintenanceTasks *int     `json:"pendingMaintenanceTasks" validate:"required"`
}

// CityInput is a CityState as a caller sends it.
type CityInput struct {
	Weather        *WeatherInput        `json:"weather" validate:"required"`
	Transportation *TransportationInput `json:"transportation" validate:"required"`
	Agriculture    *AgricultureInput    `json:"agriculture" validate:"required"`
	Energy         *EnergyInput         `json:"energy" validate:"required"`
	PublicServices *PublicServicesInput `json:"publicServices" validate:"required"`
}

// CityState converts a validated input. Absent groups or readings convert to
// zero values.
func (in CityInput) CityState() CityState {
	var c CityState
	if w := in.Weather; w != nil {
		c.Weather = Weather{
			CurrentTemperature:   deref(w.CurrentTemperature),
			Humidity:             deref(w.Humidity),
			WindSpeed:            deref(w.WindSpeed),
			CurrentRainfall:      deref(w.CurrentRainfall),
			RainfallLast12Months: w.RainfallLast12Months,
			RecentStormOrFlood:   deref(w.RecentStormOrFlood),
			AQI:                  deref(w.AQI),
		}
	}
	if t := in.Transportation; t != nil {
		c.Transportation = Transportation{
			BusesOperating:     deref(t.BusesOperating),
			TotalBuses:         deref(t.TotalBuses),
			BusRoutesCongested: t.BusRoutesCongested,
			AvgVehiclesPerHour: deref(t.AvgVehiclesPerHour),
			PeakHourMultiplier: deref(t.PeakHourMultiplier),
		}
	}
	if a := in.Agriculture; a != nil {
		c.Agriculture = Agriculture{
			CropYieldLastYear:     deref(a.CropYieldLastYear),
			CurrentStockLevel:     deref(a.CurrentStockLevel),
			SupplyChainEfficiency: deref(a.SupplyChainEfficiency),
			ImportDependency:      deref(a.ImportDependency),
		}
	}
	if e := in.Energy; e != nil {
		c.Energy = Energy{
			CurrentUsageMW:      deref(e.CurrentUsageMW),
			AvgUsageLastYear:    deref(e.AvgUsageLastYear),
			PeakDemandMW:        deref(e.PeakDemandMW),
			GridStability:       deref(e.GridStability),
			RenewablePercentage: deref(e.RenewablePercentage),
		}
	}
	if p := in.PublicServices; p != nil {
		c.PublicServices = PublicServices{
			RoadsNeedingRepair:      deref(p.RoadsNeedingRepair),
			WaterSupplyLevel:        deref(p.WaterSupplyLevel),
			SewerSystemHealth:       deref(p.SewerSystemHealth),
			EmergencyResponseTime:   deref(p.EmergencyResponseTime),
			PendingMaintenanceTasks: deref(p.PendingMaintenanceTasks),
		}
	}
	return c
}

// AdvisoryInput is an AdvisoryRequest as a caller sends it.
type AdvisoryInput struct {
	WaterShortageLevel       *float64 `json:"waterShortageLevel" validate:"required"`
	TrafficCongestionLevel   *float64 `json:"trafficCongestionLevel" validate:"required"`
	FoodPriceChangePercent   *float64 `json:"foodPriceChangePercent" validate:"required"`
	EnergyPriceChangePercent *float64 `json:"energyPriceChangePercent" validate:"required"`
	PublicCleanupNeeded      *float64 `json:"publicCleanupNeeded" validate:"required"`
	HealthStatus             *float64 `json:"healthStatus" validate:"required"`
}

// Request converts a validated input.
func (in AdvisoryInput) Request() AdvisoryRequest {
	return AdvisoryRequest{
		WaterShortageLevel:       deref(in.WaterShortageLevel),
		TrafficCongestionLevel:   deref(in.TrafficCongestionLevel),
		FoodPriceChangePercent:   deref(in.FoodPriceChangePercent),
		EnergyPriceChangePercent: deref(in.EnergyPriceChangePercent),
		PublicCleanupNeeded:      deref(in.PublicCleanupNeeded),
		HealthStatus:             deref(in.HealthStatus),
	}
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
