package analysis

import (
	"context"
	"fmt"
	"time"

	"timescope/internal/citations"
	"timescope/internal/core"
	"timescope/internal/logger"

	"github.com/google/uuid"
)

// Extractor converts an article URL into extracted text plus a best-effort
// publication year.
type Extractor interface {
	Extract(ctx context.Context, url string) (core.Article, error)
}

// Completer sends a prompt to the completion API and returns the raw message
// content.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service runs the analysis pipeline for one URL: extraction, prompt
// rendering, completion, response recovery. Stages run strictly in sequence;
// a failure aborts the remaining stages.
type Service struct {
	extractor Extractor
	completer Completer
}

// NewService creates an analysis service from its two upstream clients.
func NewService(extractor Extractor, completer Completer) *Service {
	return &Service{extractor: extractor, completer: completer}
}

// Analyze produces the analysis result for a single article URL.
func (s *Service) Analyze(ctx context.Context, url string) (core.AnalysisResult, error) {
	log := logger.Get()
	runID := uuid.NewString()
	started := time.Now()

	article, err := s.extractor.Extract(ctx, url)
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("extraction stage: %w", err)
	}
	log.Debug("article extracted", "run_id", runID, "url", url,
		"chars", len(article.Text), "year", article.Year)

	prompt := BuildPrompt(article.Text, article.Year)

	content, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return core.AnalysisResult{}, fmt.Errorf("completion stage: %w", err)
	}

	result := Recover(content)
	if result.IsDegraded() {
		log.Warn("response recovery degraded to sentinel", "run_id", runID, "url", url)
	}
	if unmatched := citations.Unmatched(result); len(unmatched) > 0 {
		log.Warn("citation markers without matching sources",
			"run_id", runID, "url", url, "markers", unmatched)
	}
	if result.PublicationDate == "" && article.Year > 0 {
		result.PublicationDate = fmt.Sprintf("%d", article.Year)
	}

	log.Info("analysis complete", "run_id", runID, "url", url,
		"duration", time.Since(started).String(),
		"timeline_events", len(result.Timeline), "sources", len(result.Sources),
		"degraded", result.IsDegraded())

	return result, nil
}
