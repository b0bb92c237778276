package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"timescope/internal/analysis"
	"timescope/internal/config"
	"timescope/internal/core"
	"timescope/internal/extract"
	"timescope/internal/llm"
)

const testUser = "analyst"
const testPass = "secret"

// newTestServer wires a Server against fake extractor and completion
// endpoints, mirroring the production wiring in the serve command.
func newTestServer(t *testing.T, extractorHandler, completionHandler http.HandlerFunc) *Server {
	t.Helper()

	extractorSrv := httptest.NewServer(extractorHandler)
	t.Cleanup(extractorSrv.Close)
	completionSrv := httptest.NewServer(completionHandler)
	t.Cleanup(completionSrv.Close)

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.TemplateDir = "../../web/templates"
	cfg.Auth = config.Auth{Username: testUser, Password: testPass, Realm: "Timescope Private Access"}
	cfg.Extractor = config.Extractor{URL: extractorSrv.URL, Timeout: 5 * time.Second}
	cfg.Completion = config.Completion{
		APIKey:      "test-key",
		URL:         completionSrv.URL,
		Model:       "sonar-pro",
		MaxTokens:   2048,
		Temperature: 0.2,
		RandomSeed:  42,
		Timeout:     5 * time.Second,
	}

	svc := analysis.NewService(extract.NewClient(cfg.Extractor), llm.NewClient(cfg.Completion))
	return New(svc, cfg)
}

func extractorReturning(text string, date int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": text, "date": date})
	}
}

func completionReturning(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func doAnalyze(s *Server, body string, withAuth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		req.SetBasicAuth(testUser, testPass)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndToEnd(t *testing.T) {
	completion := `{"original_summary":"Then.","modern_summary":"Now [1].","publication_date":"2020",` +
		`"timeline":[{"year":2020,"title":"Start","update":"It began."}],` +
		`"sources":[{"id":1,"title":"Follow-up","url":"https://news.example/1","publisher":"Example News","year":2024}]}`

	s := newTestServer(t,
		extractorReturning("The article body.", 2020),
		completionReturning(completion),
	)

	rec := doAnalyze(s, `{"url":"https://example.com/2020/03/story"}`, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result core.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not an AnalysisResult: %v", err)
	}
	if result.OriginalSummary != "Then." || result.ModernSummary != "Now [1]." {
		t.Errorf("summaries not passed through: %+v", result)
	}
	if result.PublicationDate != "2020" {
		t.Errorf("publication date not passed through: %q", result.PublicationDate)
	}
	if len(result.Timeline) != 1 || len(result.Sources) != 1 {
		t.Errorf("sequences not passed through: %+v", result)
	}
}

func TestAnalyzeRequiresAuth(t *testing.T) {
	s := newTestServer(t,
		extractorReturning("body", 2020),
		completionReturning("{}"),
	)

	rec := doAnalyze(s, `{"url":"https://example.com/story"}`, false)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "Unauthorized" {
		t.Errorf("expected body \"Unauthorized\", got %q", rec.Body.String())
	}
	header := rec.Header().Get("WWW-Authenticate")
	if !strings.Contains(header, "Basic realm=") || !strings.Contains(header, "Timescope Private Access") {
		t.Errorf("missing or wrong WWW-Authenticate header: %q", header)
	}
}

func TestAnalyzeWrongPassword(t *testing.T) {
	s := newTestServer(t,
		extractorReturning("body", 2020),
		completionReturning("{}"),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"url":"https://example.com"}`))
	req.SetBasicAuth(testUser, "wrong")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAnalyzeMissingURL(t *testing.T) {
	s := newTestServer(t,
		extractorReturning("body", 2020),
		completionReturning("{}"),
	)

	for _, body := range []string{`{}`, `{"url":""}`, `not json`} {
		rec := doAnalyze(s, body, true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
			continue
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("body %q: error response not JSON: %v", body, err)
		}
		if resp["error"] != "URL is required" {
			t.Errorf("body %q: wrong error message: %q", body, resp["error"])
		}
	}
}

func TestAnalyzeExtractionFailureNormalized(t *testing.T) {
	s := newTestServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"error": "paywalled"})
		},
		completionReturning("{}"),
	)

	rec := doAnalyze(s, `{"url":"https://example.com/story"}`, true)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error response not JSON: %v", err)
	}
	if resp["error"] != "Failed to analyze article" {
		t.Errorf("upstream error leaked or wrong message: %q", resp["error"])
	}
	if strings.Contains(rec.Body.String(), "paywalled") {
		t.Error("raw extractor error leaked to the client")
	}
}

func TestAnalyzeTruncatedCompletionRecovered(t *testing.T) {
	truncated := "Here is the analysis:\n```json\n" +
		`{"original_summary":"Then.","modern_summary":"Now [1][2].",` +
		`"timeline":[{"year":2020,"title":"Start","update":"It began."}],` +
		`"sources":[` +
		`{"id":1,"title":"First","url":"https://a.example/1","publisher":"Paper A","year":2022},` +
		`{"id":2,"title":"Second","url":"https://b.example/2","publisher":"Paper B","year":2023}`

	s := newTestServer(t,
		extractorReturning("The article body.", 2020),
		completionReturning(truncated),
	)

	rec := doAnalyze(s, `{"url":"https://example.com/2020/03/story"}`, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result core.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not an AnalysisResult: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected exactly the 2 complete sources, got %d: %+v", len(result.Sources), result.Sources)
	}
	if result.Sources[0].Publisher != "Paper A" || result.Sources[1].Publisher != "Paper B" {
		t.Errorf("wrong sources recovered: %+v", result.Sources)
	}
}

func TestAnalyzeMissingAPIKey(t *testing.T) {
	s := newTestServer(t,
		extractorReturning("body", 2020),
		completionReturning("{}"),
	)
	s.cfg.Completion.APIKey = ""

	rec := doAnalyze(s, `{"url":"https://example.com/story"}`, true)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing API configuration") {
		t.Errorf("wrong error body: %s", rec.Body.String())
	}
}

func TestHealthBypassesAuth(t *testing.T) {
	s := newTestServer(t,
		extractorReturning("body", 2020),
		completionReturning("{}"),
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health check should not require auth, got %d", rec.Code)
	}
}

func TestHomePageRendersForm(t *testing.T) {
	s := newTestServer(t,
		extractorReturning("body", 2020),
		completionReturning("{}"),
	)
	if s.renderer == nil {
		t.Skip("templates not available in this working directory")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth(testUser, testPass)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hx-post=\"/analyze\"") {
		t.Error("home page missing the analyze form")
	}
}

func TestAnalyzeFragmentRendersResult(t *testing.T) {
	completion := `{"original_summary":"Then.","modern_summary":"Now [1].",` +
		`"timeline":[{"year":2024,"title":"Late","update":"L"},{"year":2019,"title":"Early","update":"E"}],` +
		`"sources":[{"id":1,"title":"A","url":"https://a.example","publisher":"P","year":2024}]}`

	s := newTestServer(t,
		extractorReturning("The article body.", 2019),
		completionReturning(completion),
	)
	if s.renderer == nil {
		t.Skip("templates not available in this working directory")
	}

	form := strings.NewReader("url=https%3A%2F%2Fexample.com%2F2019%2Fstory")
	req := httptest.NewRequest(http.MethodPost, "/analyze", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(testUser, testPass)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "[1] A — P, 2024") {
		t.Errorf("source label not rendered: %s", body)
	}
	// Timeline must render sorted ascending regardless of received order.
	if strings.Index(body, "Early") > strings.Index(body, "Late") {
		t.Error("timeline not rendered in ascending year order")
	}
}
