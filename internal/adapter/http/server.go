package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/city-risk-service/internal/advisory"
	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Predictor scores a city snapshot.
type Predictor interface {
	PredictCity(ctx context.Context, city domain.CityState) (domain.RiskScoreSet, error)
}

// Advisor produces advisories for a set of indicators.
type Advisor interface {
	Advise(ctx context.Context, req domain.AdvisoryRequest) advisory.Outcome
}

// WeatherSource returns the current weather group.
type WeatherSource interface {
	CurrentWeather(ctx context.Context) domain.WeatherOut
}

// Deps are the collaborators behind the API routes. Ready, GeneratorState and
// Assessed are optional.
type Deps struct {
	Predictor      Predictor
	Advisor        Advisor
	Weather        WeatherSource
	Ready          ReadinessChecker
	GeneratorState func() string
	Assessed       func() int64 // snapshots assessed by the streaming pipeline
}

const requestIDHeader = "X-Request-ID"

// Server exposes the risk API alongside health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	deps       Deps
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API and operational routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	r := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second, // advisory generation may take most of a minute
			IdleTimeout:  60 * time.Second,
		},
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	r.Use(s.requestID)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/predict-all", s.handlePredictAll).Methods(http.MethodPost)
	r.HandleFunc("/llm-recommendations", s.handleRecommendations).Methods(http.MethodPost)
	r.HandleFunc("/current-weather", s.handleCurrentWeather).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// requestID echoes the caller's request ID or assigns a new one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ready"}
	if s.deps.GeneratorState != nil {
		body["generator"] = s.deps.GeneratorState()
	}
	if s.deps.Assessed != nil {
		body["assessed"] = s.deps.Assessed()
	}

	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.deps.Ready.CheckReadiness(ctx); err != nil {
			body["status"] = "not ready"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
