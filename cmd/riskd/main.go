package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/city-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/city-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/city-risk-service/internal/adapter/llm"
	"github.com/couchcryptid/city-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/city-risk-service/internal/advisory"
	"github.com/couchcryptid/city-risk-service/internal/config"
	"github.com/couchcryptid/city-risk-service/internal/ensemble"
	"github.com/couchcryptid/city-risk-service/internal/model"
	"github.com/couchcryptid/city-risk-service/internal/observability"
	"github.com/couchcryptid/city-risk-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry, closeModels, err := model.Bootstrap(context.Background(), cfg.ModelManifest, cfg.GCSCredentialsFile, cfg.ModelTimeout, logger)
	if err != nil {
		logger.Error("failed to load model registry", "error", err)
		os.Exit(1)
	}
	invoker := ensemble.New(registry, logger, metrics)

	// Generative advisories (feature-flagged via LLM_ENABLED / LLM_BASE_URL).
	var (
		generator      advisory.Generator
		generatorState = func() string { return "disabled" }
	)
	if cfg.LLMEnabled {
		lazy := llm.NewLazy(llm.ClientLoader(llm.NewClient(llm.OptionsFromConfig(cfg), logger)), logger, metrics)
		generator = lazy
		generatorState = func() string { return lazy.State().String() }
		logger.Info("generative advisories enabled", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	} else {
		logger.Info("generative advisories disabled, using rule-based advisories")
	}
	advisor := advisory.NewOrchestrator(generator, logger, metrics)

	// Live weather (enabled when OPENWEATHER_API_KEY is set).
	var provider openweather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		client := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherTimeout, metrics, logger)
		provider = openweather.NewCachedProvider(client, cfg.WeatherCacheTTL, metrics)
		logger.Info("live weather enabled", "city", cfg.OpenWeatherCity, "cache_ttl", cfg.WeatherCacheTTL)
	} else {
		logger.Info("live weather disabled, serving fallback weather")
	}
	weather := openweather.NewService(provider, cfg.OpenWeatherCity, metrics, logger)

	deps := httpadapter.Deps{
		Predictor:      invoker,
		Advisor:        advisor,
		Weather:        weather,
		GeneratorState: generatorState,
	}

	// Streaming assessments (feature-flagged via KAFKA_ENABLED).
	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(invoker, advisor, logger)
		p = pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		deps.Ready = p
		deps.Assessed = p.Processed
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start assessment pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if p != nil {
		logger.Info("pipeline stopped", "assessed", p.Processed())
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeModels(); err != nil {
		logger.Error("model storage close error", "error", err)
	}

	logger.Info("shutdown complete")
}
