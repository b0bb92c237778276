// Package render prepares an analysis result for presentation.
package render

import (
	"sort"

	"timescope/internal/citations"
	"timescope/internal/core"
)

// SortTimeline returns the events ordered ascending by year. The sort is
// stable: events sharing a year keep their relative input order. The input
// slice is left untouched; producers emit chronological intent, not a
// guaranteed order.
func SortTimeline(events []core.TimelineEvent) []core.TimelineEvent {
	sorted := make([]core.TimelineEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Year < sorted[j].Year
	})
	return sorted
}

// SourceView is a source prepared for display.
type SourceView struct {
	Label string
	URL   string
}

// ResultView is the template-facing shape of an analysis result: timeline
// sorted, sources labeled, degraded flag surfaced.
type ResultView struct {
	OriginalSummary string
	ModernSummary   string
	PublicationDate string
	Timeline        []core.TimelineEvent
	Sources         []SourceView
	Degraded        bool
}

// ViewModel builds the presentation view of a result.
func ViewModel(result core.AnalysisResult) ResultView {
	sources := make([]SourceView, 0, len(result.Sources))
	for _, source := range result.Sources {
		sources = append(sources, SourceView{
			Label: citations.FormatLabel(source),
			URL:   source.URL,
		})
	}
	return ResultView{
		OriginalSummary: result.OriginalSummary,
		ModernSummary:   result.ModernSummary,
		PublicationDate: result.PublicationDate,
		Timeline:        SortTimeline(result.Timeline),
		Sources:         sources,
		Degraded:        result.IsDegraded(),
	}
}
