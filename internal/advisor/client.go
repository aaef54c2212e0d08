// Package advisor talks to the language-model service and turns user profiles
// into personalized financial advice.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/models"
)

const anthropicVersion = "2023-06-01"

// GenerationError reports a failed, timed-out or empty generation.
// It matches apperror.ErrUnavailable.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{apperror.ErrUnavailable, e.Err}
}

// ClientConfig configures the Messages API client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client calls the Anthropic Messages API over HTTP.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []wireMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the conversation and returns the text of the first text block.
func (c *Client) Complete(ctx context.Context, msgs []models.Message) (string, error) {
	wire := toWire(msgs)
	if len(wire) == 0 {
		return "", &GenerationError{Op: "request", Err: fmt.Errorf("no user message to answer")}
	}

	body, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    wire,
	})
	if err != nil {
		return "", &GenerationError{Op: "encode", Err: err}
	}

	resp, err := c.post(ctx, "/v1/messages", body)
	if err != nil {
		return "", &GenerationError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if err := checkResp(resp, "/v1/messages"); err != nil {
		return "", &GenerationError{Op: "request", Err: err}
	}

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &GenerationError{Op: "decode", Err: err}
	}
	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", &GenerationError{Op: "decode", Err: fmt.Errorf("response has no text content")}
}

// toWire drops leading assistant turns: the API requires the first message to come from the user.
func toWire(msgs []models.Message) []wireMessage {
	start := 0
	for start < len(msgs) && msgs[start].Role != models.RoleUser {
		start++
	}
	out := make([]wireMessage, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		out = append(out, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// checkResp returns an error including the upstream body when the status is not 2xx.
func checkResp(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("anthropic %s returned %d: %s", path, resp.StatusCode, string(body))
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic %s: %w", path, err)
	}
	return resp, nil
}
