package server

import (
	"net/http"

	"timescope/internal/render"
)

// handleHomePage renders the URL submission page.
func (s *Server) handleHomePage(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		http.Error(w, "Web interface unavailable", http.StatusInternalServerError)
		return
	}
	if err := s.renderer.Render(w, "pages/home.html", nil); err != nil {
		s.log.Error("failed to render home page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleAnalyzeFragment runs the analysis pipeline for the web UI and renders
// the result partial. HTMX swaps it into the page; errors render an error
// partial instead of a bare status code so the user sees something useful.
func (s *Server) handleAnalyzeFragment(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		http.Error(w, "Web interface unavailable", http.StatusInternalServerError)
		return
	}

	url := r.FormValue("url")
	if url == "" {
		s.renderError(w, "Paste an article URL first.")
		return
	}
	if s.cfg.Completion.APIKey == "" {
		s.renderError(w, "The server is missing its API configuration.")
		return
	}

	result, err := s.analysis.Analyze(r.Context(), url)
	if err != nil {
		s.log.Error("analysis failed", "url", url, "error", err)
		s.renderError(w, "Failed to analyze article. Try another URL.")
		return
	}

	view := render.ViewModel(result)
	if err := s.renderer.Render(w, "partials/result.html", view); err != nil {
		s.log.Error("failed to render result partial", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, message string) {
	if err := s.renderer.Render(w, "partials/error.html", message); err != nil {
		s.log.Error("failed to render error partial", "error", err)
		http.Error(w, message, http.StatusInternalServerError)
	}
}
