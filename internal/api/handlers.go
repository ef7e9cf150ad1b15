package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/user/catalog-scraper/internal/domain"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultResponse is the body of GET /api/result.
type ResultResponse struct {
	Running   bool                 `json:"running"`
	StartedAt *time.Time           `json:"started_at,omitempty"`
	Result    *domain.ScrapeResult `json:"result,omitempty"`
}

func (s *Server) handleScrapeRequest(w http.ResponseWriter, r *http.Request) {
	if err := s.Trigger(); err != nil {
		if errors.Is(err, ErrBusy) {
			s.respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("failed to start scrape run", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not start scrape run")
		return
	}
	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Scrape run started"})
}

func (s *Server) handleResultRequest(w http.ResponseWriter, r *http.Request) {
	running, startedAt, last := s.snapshot()
	if !running && last == nil {
		s.respondWithError(w, http.StatusNotFound, "No scrape run has finished yet")
		return
	}
	resp := ResultResponse{Running: running, Result: last}
	if running {
		resp.StartedAt = &startedAt
	}
	s.respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string, len(s.checks))
	isHealthy := true
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			isHealthy = false
			s.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		code = http.StatusInternalServerError
		response = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
