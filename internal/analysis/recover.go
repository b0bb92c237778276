package analysis

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"timescope/internal/core"
)

// Models are instructed to return a single JSON object, but in practice the
// object arrives wrapped in prose or markdown fences, or truncated mid-array
// when the output budget runs out. Recover walks an ordered chain of
// increasingly lossy fallbacks and never fails outward: when every stage is
// exhausted it returns the sentinel from core.DegradedResult.

var (
	fenceRegex = regexp.MustCompile("```[a-zA-Z]*")

	// Quoted JSON string values for individual field recovery. The value group
	// tolerates escaped characters so embedded quotes survive.
	originalSummaryRegex = regexp.MustCompile(`"original_summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	modernSummaryRegex   = regexp.MustCompile(`"modern_summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	publicationDateRegex = regexp.MustCompile(`"publication_date"\s*:\s*"((?:[^"\\]|\\.)*)"`)

	// The timeline array literal in isolation. Events are flat objects, so
	// stopping at the first closing bracket is safe.
	timelineArrayRegex = regexp.MustCompile(`"timeline"\s*:\s*(\[[^\]]*\])`)

	// A complete source object with its fields in prompt order.
	sourceObjectRegex = regexp.MustCompile(`\{\s*"id"\s*:\s*(\d+)\s*,\s*"title"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"url"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"publisher"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*"year"\s*:\s*(\d+)\s*\}`)
)

// Recover extracts the best-effort AnalysisResult from a raw model completion.
func Recover(raw string) core.AnalysisResult {
	span, ok := extractSpan(raw)
	if !ok {
		return core.DegradedResult()
	}
	span = stripFences(span)

	if result, ok := parseStrict(span); ok {
		return result
	}
	if patched, ok := repairTruncation(span); ok {
		if result, ok := parseStrict(patched); ok {
			return result
		}
	}
	if result, ok := reconstructFields(span); ok {
		return result
	}
	return core.DegradedResult()
}

// extractSpan slices the text between the first opening and last closing
// brace. Recovery fails outright when either is absent.
func extractSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// stripFences removes markdown code-fence markers that survived the slice,
// with or without a language tag.
func stripFences(span string) string {
	return fenceRegex.ReplaceAllString(span, "")
}

// wireResult mirrors the JSON the model is asked to produce, with the array
// fields left raw so malformed entries can be dropped individually.
type wireResult struct {
	OriginalSummary *string         `json:"original_summary"`
	ModernSummary   *string         `json:"modern_summary"`
	PublicationDate string          `json:"publication_date"`
	Timeline        json.RawMessage `json:"timeline"`
	Sources         json.RawMessage `json:"sources"`
}

// parseStrict attempts a direct parse of the span and validates the required
// shape: both summaries present and non-empty, timeline an array, sources an
// array or absent (coerced to empty).
func parseStrict(span string) (core.AnalysisResult, bool) {
	var wire wireResult
	if err := json.Unmarshal([]byte(span), &wire); err != nil {
		return core.AnalysisResult{}, false
	}
	if wire.OriginalSummary == nil || *wire.OriginalSummary == "" {
		return core.AnalysisResult{}, false
	}
	if wire.ModernSummary == nil || *wire.ModernSummary == "" {
		return core.AnalysisResult{}, false
	}

	timeline, ok := decodeEvents(wire.Timeline)
	if !ok {
		return core.AnalysisResult{}, false
	}
	sources := []core.Source{}
	if len(wire.Sources) > 0 {
		decoded, ok := decodeSources(wire.Sources)
		if !ok {
			return core.AnalysisResult{}, false
		}
		sources = decoded
	}

	return core.AnalysisResult{
		OriginalSummary: *wire.OriginalSummary,
		ModernSummary:   *wire.ModernSummary,
		PublicationDate: wire.PublicationDate,
		Timeline:        timeline,
		Sources:         sources,
	}, true
}

// decodeEvents parses a raw timeline array, dropping entries that do not
// decode as well-formed events.
func decodeEvents(raw json.RawMessage) ([]core.TimelineEvent, bool) {
	if !isArray(raw) {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	events := make([]core.TimelineEvent, 0, len(entries))
	for _, entry := range entries {
		var event core.TimelineEvent
		if err := json.Unmarshal(entry, &event); err != nil {
			continue
		}
		if event.Year == 0 && event.Title == "" && event.Update == "" {
			continue
		}
		events = append(events, event)
	}
	return events, true
}

// decodeSources parses a raw sources array, dropping malformed entries.
func decodeSources(raw json.RawMessage) ([]core.Source, bool) {
	if !isArray(raw) {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	sources := make([]core.Source, 0, len(entries))
	for _, entry := range entries {
		var source core.Source
		if err := json.Unmarshal(entry, &source); err != nil {
			continue
		}
		if source.Title == "" && source.URL == "" {
			continue
		}
		sources = append(sources, source)
	}
	return sources, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

// repairTruncation assumes the output was cut off inside the sources array.
// It keeps everything up to the end of the last source object that reached
// its "publisher" field, then re-closes the array and the outer object.
func repairTruncation(span string) (string, bool) {
	lastPublisher := strings.LastIndex(span, `"publisher"`)
	if lastPublisher == -1 {
		return "", false
	}

	// A complete source object closes shortly after its publisher field; if
	// no close follows, the cut happened inside this object and the previous
	// object's close is the boundary.
	end := -1
	if rel := strings.Index(span[lastPublisher:], "}"); rel != -1 {
		end = lastPublisher + rel
	} else {
		end = strings.LastIndex(span[:lastPublisher], "}")
	}
	if end == -1 {
		return "", false
	}

	return span[:end+1] + "]}", true
}

// reconstructFields is the last resort: each field is regex-extracted from
// the span independently, tolerant of corruption elsewhere. The result is
// only usable when both summaries were recovered.
func reconstructFields(span string) (core.AnalysisResult, bool) {
	originalSummary, okOriginal := extractStringField(originalSummaryRegex, span)
	modernSummary, okModern := extractStringField(modernSummaryRegex, span)
	if !okOriginal || !okModern {
		return core.AnalysisResult{}, false
	}

	result := core.AnalysisResult{
		OriginalSummary: originalSummary,
		ModernSummary:   modernSummary,
		Timeline:        []core.TimelineEvent{},
		Sources:         []core.Source{},
	}
	if date, ok := extractStringField(publicationDateRegex, span); ok {
		result.PublicationDate = date
	}
	if match := timelineArrayRegex.FindStringSubmatch(span); match != nil {
		if events, ok := decodeEvents(json.RawMessage(match[1])); ok {
			result.Timeline = events
		}
	}
	result.Sources = scanSources(span)

	return result, true
}

// extractStringField pulls a quoted string value and decodes its JSON escape
// sequences. Empty values are treated as not recovered.
func extractStringField(re *regexp.Regexp, span string) (string, bool) {
	match := re.FindStringSubmatch(span)
	if match == nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal([]byte(`"`+match[1]+`"`), &value); err != nil {
		return "", false
	}
	if value == "" {
		return "", false
	}
	return value, true
}

// scanSources collects every substring shaped like a complete source object,
// silently skipping anything that does not match.
func scanSources(span string) []core.Source {
	sources := []core.Source{}
	for _, match := range sourceObjectRegex.FindAllStringSubmatch(span, -1) {
		id, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		year, err := strconv.Atoi(match[5])
		if err != nil {
			continue
		}
		title, okTitle := decodeEscapes(match[2])
		url, okURL := decodeEscapes(match[3])
		publisher, okPublisher := decodeEscapes(match[4])
		if !okTitle || !okURL || !okPublisher {
			continue
		}
		sources = append(sources, core.Source{
			ID:        id,
			Title:     title,
			URL:       url,
			Publisher: publisher,
			Year:      year,
		})
	}
	return sources
}

func decodeEscapes(literal string) (string, bool) {
	var value string
	if err := json.Unmarshal([]byte(`"`+literal+`"`), &value); err != nil {
		return "", false
	}
	return value, true
}
