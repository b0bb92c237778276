package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type analyzeRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleAnalyze is the JSON API for one article analysis. Failures from the
// pipeline are normalized to a uniform error body; upstream detail is logged,
// not leaked to the caller.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is required"})
		return
	}

	if s.cfg.Completion.APIKey == "" {
		s.log.Error("analyze request rejected: completion API key not configured")
		s.writeJSON(w, http.StatusInternalServerError,
			errorResponse{Error: "Server is missing API configuration"})
		return
	}

	result, err := s.analysis.Analyze(r.Context(), req.URL)
	if err != nil {
		s.log.Error("analysis failed", "url", req.URL, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
		s.writeJSON(w, http.StatusInternalServerError,
			errorResponse{Error: "Failed to analyze article"})
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// handleStatus reports what the server is configured to talk to, without
// exposing any secret values.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"extractor_url":  s.cfg.Extractor.URL,
		"completion_url": s.cfg.Completion.URL,
		"model":          s.cfg.Completion.Model,
		"api_key_set":    s.cfg.Completion.APIKey != "",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}
