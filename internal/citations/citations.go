// Package citations handles the [n] citation markers that link summary and
// timeline prose to entries in an analysis result's source list.
package citations

import (
	"fmt"
	"regexp"

	"timescope/internal/core"
)

// markerRegex matches a bracketed integer citation marker like [3].
var markerRegex = regexp.MustCompile(`\[(\d+)\]`)

// ExtractMarkers returns the citation marker numbers found in prose, in
// document order with duplicates removed.
func ExtractMarkers(prose string) []int {
	seen := make(map[int]bool)
	var markers []int
	for _, match := range markerRegex.FindAllStringSubmatch(prose, -1) {
		var n int
		if _, err := fmt.Sscanf(match[1], "%d", &n); err != nil {
			continue
		}
		if !seen[n] {
			seen[n] = true
			markers = append(markers, n)
		}
	}
	return markers
}

// Unmatched returns the marker numbers used anywhere in the result's prose
// that have no source with a matching ID. The numbering contract is requested
// from the model via the prompt but never enforced or repaired; callers use
// this to log violations.
func Unmatched(result core.AnalysisResult) []int {
	ids := make(map[int]bool, len(result.Sources))
	for _, source := range result.Sources {
		ids[source.ID] = true
	}

	prose := result.ModernSummary
	for _, event := range result.Timeline {
		prose += "\n" + event.Update
	}

	var unmatched []int
	for _, marker := range ExtractMarkers(prose) {
		if !ids[marker] {
			unmatched = append(unmatched, marker)
		}
	}
	return unmatched
}

// FormatLabel renders the display label for a source link.
func FormatLabel(source core.Source) string {
	return fmt.Sprintf("[%d] %s — %s, %d", source.ID, source.Title, source.Publisher, source.Year)
}
