// Package extractor implements the built-in article extraction service: a
// small HTTP endpoint that fetches a news URL and returns its readable text
// plus a best-effort publication year. The analysis server talks to it over
// the same wire contract as any external extractor.
package extractor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"timescope/internal/extract"
	"timescope/internal/logger"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const userAgent = "timescope/1.0 (article extractor)"

// maxFetchBytes caps how much of a page is read. Articles beyond this are
// almost certainly not prose.
const maxFetchBytes = 4 << 20

// Extractor fetches pages and extracts article text.
type Extractor struct {
	httpClient *http.Client
}

// New creates an Extractor with a bounded fetch timeout.
func New(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Result is the wire shape of an extraction response. Date is the
// publication year; 0 means unknown and is omitted.
type Result struct {
	Text  string `json:"text"`
	Date  int    `json:"date,omitempty"`
	Error string `json:"error,omitempty"`
}

// Extract fetches the URL and returns readable article text and year.
func (e *Extractor) Extract(rawURL string) Result {
	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return Result{Error: fmt.Sprintf("invalid URL: %s", rawURL)}
	}

	html, err := e.fetch(rawURL)
	if err != nil {
		return Result{Error: err.Error()}
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err != nil {
		return Result{Error: fmt.Sprintf("readability parse failed: %v", err)}
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Result{Error: "no readable text found"}
	}

	year := 0
	if article.PublishedTime != nil {
		year = article.PublishedTime.Year()
	}
	if year == 0 {
		year = yearFromMeta(html)
	}
	if year == 0 {
		year = extract.YearFromURL(rawURL)
	}

	return Result{Text: text, Date: year}
}

func (e *Extractor) fetch(rawURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed: status %d", resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return html, nil
}

// yearFromMeta pulls a publication year out of the common date meta tags.
func yearFromMeta(html []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		logger.Debug("meta date extraction failed", "error", err.Error())
		return 0
	}

	selectors := []string{
		"meta[property='article:published_time']",
		"meta[itemprop='datePublished']",
		"meta[name='date']",
		"time[datetime]",
	}
	for _, selector := range selectors {
		node := doc.Find(selector).First()
		value, ok := node.Attr("content")
		if !ok {
			value, ok = node.Attr("datetime")
		}
		if !ok || value == "" {
			continue
		}
		if year := parseYear(value); year != 0 {
			return year
		}
	}
	return 0
}

// parseYear accepts the date formats seen in the wild for these meta tags.
func parseYear(value string) int {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006/01/02",
		"January 2, 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Year()
		}
	}
	return 0
}
