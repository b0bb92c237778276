package extractor

import (
	"encoding/json"
	"net/http"

	"timescope/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the extractor service's HTTP handler.
// Extraction failures are reported inside a 200 body as {"error": ...},
// matching what the extraction client and the original service expect.
func NewRouter(e *Extractor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/extract", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.URL == "" {
			writeJSON(w, http.StatusBadRequest, Result{Error: "url is required"})
			return
		}

		result := e.Extract(body.URL)
		if result.Error != "" {
			logger.Warn("extraction failed", "url", body.URL, "reason", result.Error)
		} else {
			logger.Info("article extracted", "url", body.URL,
				"chars", len(result.Text), "year", result.Date)
		}
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
