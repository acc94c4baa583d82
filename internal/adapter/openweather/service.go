// Package openweather serves the current-weather group from the OpenWeather
// API, falling back to fixed values when the API is unconfigured or failing.
package openweather

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/city-risk-service/internal/domain"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

// Service resolves the configured city's weather. It never fails.
type Service struct {
	provider Provider
	city     string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates a weather service. A nil provider always yields the
// fallback weather.
func NewService(provider Provider, city string, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{provider: provider, city: city, metrics: metrics, logger: logger}
}

// CurrentWeather returns the live weather, or the fallback when no provider is
// configured or the lookup fails.
func (s *Service) CurrentWeather(ctx context.Context) domain.WeatherOut {
	if s.provider == nil {
		s.metrics.WeatherRequests.WithLabelValues("fallback").Inc()
		return domain.FallbackWeather()
	}

	reading, err := s.provider.Current(ctx, s.city)
	if err != nil {
		s.logger.Warn("weather lookup failed, serving fallback", "city", s.city, "error", err)
		s.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.FallbackWeather()
	}

	s.metrics.WeatherRequests.WithLabelValues("success").Inc()
	return domain.WeatherFromReading(reading)
}
