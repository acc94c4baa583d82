package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Model slot configuration.
	ModelManifest      string
	ModelTimeout       time.Duration
	GCSCredentialsFile string

	// Generative advisory configuration.
	LLMEnabled     bool
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float32
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// OpenWeather configuration.
	OpenWeatherAPIKey  string
	OpenWeatherCity    string
	OpenWeatherTimeout time.Duration
	WeatherCacheTTL    time.Duration

	// Streaming assessment configuration.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	modelTimeout, err := parseDuration("MODEL_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	llmTimeout, err := parseDuration("LLM_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("OPENWEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	weatherTTL, err := parseDuration("WEATHER_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	temperature, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("LLM_TEMPERATURE", "0.7"), 32)
	if err != nil || temperature < 0 || temperature > 2 {
		return nil, errors.New("invalid LLM_TEMPERATURE: must be between 0 and 2")
	}
	maxTokens, err := strconv.Atoi(sharedcfg.EnvOrDefault("LLM_MAX_TOKENS", "256"))
	if err != nil || maxTokens <= 0 {
		return nil, errors.New("invalid LLM_MAX_TOKENS: must be a positive integer")
	}

	llmBaseURL := os.Getenv("LLM_BASE_URL")
	llmEnabled := llmBaseURL != ""
	if v := os.Getenv("LLM_ENABLED"); v != "" {
		llmEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ModelManifest:      os.Getenv("MODEL_MANIFEST"),
		ModelTimeout:       modelTimeout,
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),

		LLMEnabled:     llmEnabled,
		LLMBaseURL:     llmBaseURL,
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       sharedcfg.EnvOrDefault("LLM_MODEL", "TinyLlama/TinyLlama-1.1B-Chat-v1.0"),
		LLMTemperature: float32(temperature),
		LLMMaxTokens:   maxTokens,
		LLMTimeout:     llmTimeout,

		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherCity:    sharedcfg.EnvOrDefault("OPENWEATHER_CITY", "Delhi,IN"),
		OpenWeatherTimeout: weatherTimeout,
		WeatherCacheTTL:    weatherTTL,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "city-state-snapshots"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "city-risk-assessments"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "city-risk-service"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.LLMEnabled && cfg.LLMBaseURL == "" {
		return nil, errors.New("LLM_ENABLED is true but LLM_BASE_URL is not set")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
