package domain

// WeatherOut is the weather group as served to callers that assemble a CityState.
type WeatherOut struct {
	CurrentTemperature   float64   `json:"currentTemperature"`
	Humidity             float64   `json:"humidity"`
	WindSpeed            float64   `json:"windSpeed"`
	CurrentRainfall      float64   `json:"currentRainfall"`
	RainfallLast12Months []float64 `json:"rainfallLast12Months"`
	RecentStormOrFlood   bool      `json:"recentStormOrFlood"`
	AQI                  float64   `json:"aqi"`
}

// Fallback weather values served when the upstream source is unconfigured or
// unreachable.
const (
	FallbackTemperature     = 30.0
	FallbackHumidity        = 60.0
	FallbackWindSpeed       = 10.0
	FallbackRainfall        = 0.0
	FallbackMonthlyRainfall = 150.0
	FallbackAQI             = 100.0
)

// StormRainfallThreshold is the current rainfall (mm) above which a live
// reading is flagged as a recent storm or flood.
const StormRainfallThreshold = 40.0

// LiveMonthlyRainfall fills rainfallLast12Months for live readings; the upstream
// source only reports current conditions.
const LiveMonthlyRainfall = 50.0

// FallbackWeather returns the fixed weather used when no live reading is available.
func FallbackWeather() WeatherOut {
	return WeatherOut{
		CurrentTemperature:   FallbackTemperature,
		Humidity:             FallbackHumidity,
		WindSpeed:            FallbackWindSpeed,
		CurrentRainfall:      FallbackRainfall,
		RainfallLast12Months: monthly(FallbackMonthlyRainfall),
		RecentStormOrFlood:   false,
		AQI:                  FallbackAQI,
	}
}

// WeatherReading is the five-value live reading returned by a weather provider.
type WeatherReading struct {
	Temperature float64
	Humidity    float64
	WindSpeed   float64 // km/h
	Rainfall    float64 // mm
	AQI         float64
}

// WeatherFromReading expands a live reading into a WeatherOut.
func WeatherFromReading(r WeatherReading) WeatherOut {
	return WeatherOut{
		CurrentTemperature:   r.Temperature,
		Humidity:             r.Humidity,
		WindSpeed:            r.WindSpeed,
		CurrentRainfall:      r.Rainfall,
		RainfallLast12Months: monthly(LiveMonthlyRainfall),
		RecentStormOrFlood:   r.Rainfall > StormRainfallThreshold,
		AQI:                  r.AQI,
	}
}

func monthly(v float64) []float64 {
	out := make([]float64, 12)
	for i := range out {
		out[i] = v
	}
	return out
}
