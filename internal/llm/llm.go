// Package llm implements the chat-completion client for the analysis
// pipeline. The endpoint speaks the common chat-completions wire shape and is
// configurable, so any compatible provider can back it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"timescope/internal/config"
)

// Error is returned when the completion endpoint is unreachable, returns a
// non-success status, or responds without message content.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("completion: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Client posts prompts to the completion API.
type Client struct {
	cfg        config.Completion
	httpClient *http.Client
}

// NewClient creates a completion client from configuration.
func NewClient(cfg config.Completion) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	RandomSeed  int       `json:"random_seed"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user message and returns the raw
// content of the model's reply. The content is handed to the response
// recovery parser untouched.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &Error{Msg: "API key is not configured"}
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		RandomSeed:  c.cfg.RandomSeed,
	})
	if err != nil {
		return "", &Error{Msg: "encode request", Err: err}
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", &Error{Msg: "endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Msg: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Msg: fmt.Sprintf("endpoint returned status %d: %s",
			resp.StatusCode, truncateForLog(payload))}
	}

	var completion completionResponse
	if err := json.Unmarshal(payload, &completion); err != nil {
		return "", &Error{Msg: "decode response", Err: err}
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", &Error{Msg: "response has no message content"}
	}

	return completion.Choices[0].Message.Content, nil
}

// post performs the round-trip with one bounded retry on transport errors.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func truncateForLog(payload []byte) string {
	const limit = 200
	if len(payload) > limit {
		return string(payload[:limit]) + "..."
	}
	return string(payload)
}
