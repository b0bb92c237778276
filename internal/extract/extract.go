// Package extract implements the client for the article extraction service.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"timescope/internal/config"
	"timescope/internal/core"
)

// yearSegmentRegex matches a four-digit year path segment like /2020/ in an
// article URL, the usual shape of news permalinks.
var yearSegmentRegex = regexp.MustCompile(`/((?:19|20)\d{2})/`)

// Error is returned when the extractor endpoint is unreachable, reports an
// error, or returns no usable text.
type Error struct {
	URL string
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Msg, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Client calls the external article extraction endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates an extraction client from configuration. The timeout is
// applied to the whole round-trip so a flaky extractor cannot hang a request.
func NewClient(cfg config.Extractor) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	URL string `json:"url"`
}

type extractResponse struct {
	Text  string `json:"text"`
	Date  int    `json:"date"`
	Error string `json:"error"`
}

// Extract posts the URL to the extractor and returns the article text plus a
// best-effort publication year. A missing year falls back to a four-digit
// path segment in the URL itself; if neither is available Year stays 0 and
// the prompt builder renders it as "unknown".
func (c *Client) Extract(ctx context.Context, articleURL string) (core.Article, error) {
	body, err := json.Marshal(extractRequest{URL: articleURL})
	if err != nil {
		return core.Article{}, &Error{URL: articleURL, Msg: "encode request", Err: err}
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return core.Article{}, &Error{URL: articleURL, Msg: "extractor unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.Article{}, &Error{URL: articleURL,
			Msg: fmt.Sprintf("extractor returned status %d", resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Article{}, &Error{URL: articleURL, Msg: "read response", Err: err}
	}

	var extracted extractResponse
	if err := json.Unmarshal(payload, &extracted); err != nil {
		return core.Article{}, &Error{URL: articleURL, Msg: "decode response", Err: err}
	}
	if extracted.Error != "" {
		return core.Article{}, &Error{URL: articleURL,
			Msg: fmt.Sprintf("extractor error: %s", extracted.Error)}
	}
	if extracted.Text == "" {
		return core.Article{}, &Error{URL: articleURL, Msg: "no text content extracted"}
	}

	year := extracted.Date
	if year == 0 {
		year = YearFromURL(articleURL)
	}

	return core.Article{Text: extracted.Text, Year: year}, nil
}

// post performs the round-trip with one bounded retry on transport errors.
// Upstream status codes are never retried.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// YearFromURL scans a URL for a plausible /YYYY/ publication-year segment.
// Returns 0 when none is found.
func YearFromURL(articleURL string) int {
	match := yearSegmentRegex.FindStringSubmatch(articleURL)
	if match == nil {
		return 0
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return year
}
