package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Readings substituted for fields missing from an upstream response.
const (
	defaultTemperature = 25.0
	defaultHumidity    = 60.0
	defaultWindSpeed   = 3.0 // m/s
	defaultAQIIndex    = 3
	unknownAQI         = 125.0
	unavailableAQI     = 100.0
	msToKmh            = 3.6
)

// aqiScale maps the provider's 1-5 air quality index onto an AQI-like value.
var aqiScale = map[int]float64{1: 25, 2: 75, 3: 125, 4: 200, 5: 300}

// Client fetches current conditions and air quality from OpenWeather.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeather client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Current returns the live reading for a city query such as "Delhi,IN".
// The air quality lookup degrades to a neutral value when the provider
// rejects it; a failed weather lookup is an error.
func (c *Client) Current(ctx context.Context, city string) (domain.WeatherReading, error) {
	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	var w weatherResponse
	if _, err := c.get(ctx, "weather", params, &w); err != nil {
		return domain.WeatherReading{}, err
	}

	aqi, err := c.airQuality(ctx, w.Coord.Lat, w.Coord.Lon)
	if err != nil {
		return domain.WeatherReading{}, err
	}

	return domain.WeatherReading{
		Temperature: orDefault(w.Main.Temp, defaultTemperature),
		Humidity:    orDefault(w.Main.Humidity, defaultHumidity),
		WindSpeed:   orDefault(w.Wind.Speed, defaultWindSpeed) * msToKmh,
		Rainfall:    w.Rain.amount(),
		AQI:         aqi,
	}, nil
}

func (c *Client) airQuality(ctx context.Context, lat, lon float64) (float64, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.apiKey},
	}
	var p pollutionResponse
	status, err := c.get(ctx, "air_pollution", params, &p)
	if status != 0 && status != http.StatusOK {
		c.logger.Debug("air quality unavailable", "status", status)
		return unavailableAQI, nil
	}
	if err != nil {
		return 0, err
	}
	if len(p.List) == 0 {
		return unavailableAQI, nil
	}

	index := defaultAQIIndex
	if p.List[0].Main.AQI != nil {
		index = *p.List[0].Main.AQI
	}
	if v, ok := aqiScale[index]; ok {
		return v, nil
	}
	return unknownAQI, nil
}

// get issues a GET against endpoint and decodes a 200 response into out. The
// returned status is zero when no response was received.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (int, error) {
	start := time.Now()
	defer func() {
		c.metrics.WeatherAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("openweather API error: %s: status %d: %s", endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return resp.StatusCode, nil
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// OpenWeather API response types. Pointers distinguish absent readings from zero.

type weatherResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Rain rain `json:"rain"`
}

type rain struct {
	OneHour   float64 `json:"1h"`
	ThreeHour float64 `json:"3h"`
}

// amount prefers the last hour and falls back to the last three hours.
func (r rain) amount() float64 {
	if r.OneHour != 0 {
		return r.OneHour
	}
	return r.ThreeHour
}

type pollutionResponse struct {
	List []struct {
		Main struct {
			AQI *int `json:"aqi"`
		} `json:"main"`
	} `json:"list"`
}
