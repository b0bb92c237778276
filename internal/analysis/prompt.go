package analysis

import "fmt"

// analyzePromptTemplate is the instruction block sent to the completion API.
// The first placeholder is the article's publication year (or "unknown"), the
// second is the extracted article text. The template pins down the exact JSON
// shape the response recovery parser expects.
const analyzePromptTemplate = `Analyze this %s news article and compare its original claims with their status as of 2024.

Respond with a single JSON object and nothing else. No prose before or after, no markdown code fences. The object must have exactly these fields:

{
  "original_summary": "3-sentence summary of the article as understood in %s",
  "modern_summary": "The same summary, with 2024 updates added in [brackets]. Add a citation marker like [1] after every updated claim.",
  "publication_date": "%s",
  "timeline": [
    {"year": 2012, "title": "Short event title", "update": "One sentence on what happened, with citation markers where applicable."}
  ],
  "sources": [
    {"id": 1, "title": "Source article title", "url": "https://...", "publisher": "Publisher name", "year": 2024}
  ]
}

Rules:
- Every citation marker [n] in modern_summary or a timeline update must have a matching source with "id" equal to n, and every source must be referenced by at least one [n] marker.
- Include at least 3 sources.
- The timeline must contain at least 3 events spanning at least 3 distinct years, from the article's era up to 2024.
- Keep the total response within your output budget; prefer fewer, complete sources over many truncated ones.

Article:
%s`

// BuildPrompt renders the analysis instruction block for an article and its
// publication year. Year 0 is rendered as "unknown". Pure function, no state.
func BuildPrompt(articleText string, year int) string {
	yearLabel := "unknown"
	if year > 0 {
		yearLabel = fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf(analyzePromptTemplate, yearLabel, yearLabel, yearLabel, articleText)
}
