package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

const maxBodyBytes = 1 << 20

func (s *Server) handlePredictAll(w http.ResponseWriter, r *http.Request) {
	var in domain.CityInput
	if !s.decode(w, r, &in) {
		return
	}

	scores, err := s.deps.Predictor.PredictCity(r.Context(), in.CityState())
	if err != nil {
		s.logger.Error("prediction failed", "error", err, "request_id", w.Header().Get(requestIDHeader))
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var in domain.AdvisoryInput
	if !s.decode(w, r, &in) {
		return
	}

	out := s.deps.Advisor.Advise(r.Context(), in.Request())
	s.logger.Debug("advisories produced",
		"source", out.Source,
		"failure", out.Failure,
		"lines", out.Text.Len(),
		"request_id", w.Header().Get(requestIDHeader),
	)
	writeJSON(w, http.StatusOK, map[string]string{"recommendations": out.Text.String()})
}

func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Weather.CurrentWeather(r.Context()))
}

// decode reads a JSON body into v and validates it. On failure it writes a 400
// and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed JSON: %v", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("invalid field %s: must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("invalid field %s: %s", fe.Namespace(), fe.Tag())
}
