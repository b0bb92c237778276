package core

// DegradedSummary is the placeholder text placed in both summary fields when
// the model's response could not be recovered at all. The HTTP layer still
// returns such a result with a 200; callers detect the degraded case by this
// text, not by a status code.
const DegradedSummary = "Analysis unavailable: the model response could not be parsed."

// Article is the extracted content of a news article.
// Year is the best-effort original publication year; 0 means unknown.
type Article struct {
	Text string `json:"text"`
	Year int    `json:"year"`
}

// TimelineEvent is a single dated development related to the article's story.
type TimelineEvent struct {
	Year   int    `json:"year"`
	Title  string `json:"title"`
	Update string `json:"update"`
}

// Source is a cited reference. ID is the number used by [n] citation markers
// in summary and timeline prose.
type Source struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Publisher string `json:"publisher"`
	Year      int    `json:"year"`
}

// AnalysisResult is the contract returned to the UI: the article summarized as
// of its original year, the same story annotated with 2024 updates and [n]
// citation markers, a timeline of developments, and the cited sources.
type AnalysisResult struct {
	OriginalSummary string          `json:"original_summary"`
	ModernSummary   string          `json:"modern_summary"`
	PublicationDate string          `json:"publication_date,omitempty"`
	Timeline        []TimelineEvent `json:"timeline"`
	Sources         []Source        `json:"sources"`
}

// DegradedResult returns the sentinel result used when response recovery
// exhausts every fallback. It is a valid AnalysisResult, not an error.
func DegradedResult() AnalysisResult {
	return AnalysisResult{
		OriginalSummary: DegradedSummary,
		ModernSummary:   DegradedSummary,
		Timeline:        []TimelineEvent{},
		Sources:         []Source{},
	}
}

// IsDegraded reports whether r is the sentinel produced by DegradedResult.
func (r AnalysisResult) IsDegraded() bool {
	return r.OriginalSummary == DegradedSummary && r.ModernSummary == DegradedSummary
}
