// Package llm wraps an OpenAI-compatible chat completions API
// (OpenRouter by default) behind a small client.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
)

// Some models wrap their JSON answer in prose or code fences even when
// asked for a JSON object; this pulls out the first object or array.
var jsonExtractor = regexp.MustCompile(`(?s)({.*}|\[.*\])`)

// Message is a single chat message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request is the chat completions request body.
type request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// response is the chat completions response body.
type response struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls a remote chat completions endpoint.
type Client struct {
	rc      *resty.Client
	baseURL string
	apiKey  string
	model   string
}

// NewClient creates a client for the given endpoint. model is the
// default model used when a call does not name one.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	rc := resty.New().SetTimeout(timeout)
	return &Client{
		rc:      rc,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// Model returns the default model name.
func (c *Client) Model() string {
	return c.model
}

// Chat sends the messages and returns the assistant reply text.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	return c.complete(ctx, model, messages, nil)
}

// ChatJSON sends the messages with response_format json_object and
// returns the raw JSON text of the reply. When the model wraps the JSON
// in extra prose, the first JSON object or array is extracted.
func (c *Client) ChatJSON(ctx context.Context, model string, messages []Message) (string, error) {
	content, err := c.complete(ctx, model, messages, &responseFormat{Type: "json_object"})
	if err != nil {
		return "", err
	}
	match := jsonExtractor.FindString(content)
	if match == "" {
		return "", fmt.Errorf("no JSON found in model response: %s", truncate(content, 200))
	}
	return match, nil
}

func (c *Client) complete(ctx context.Context, model string, messages []Message, format *responseFormat) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("missing API key (set TEXTKIT_LLM_API_KEY or OPENROUTER_API_KEY)")
	}
	if model == "" {
		model = c.model
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	body := request{
		Model:          model,
		Messages:       messages,
		ResponseFormat: format,
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(c.apiKey).
		SetBody(body).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("completion API error: %s - %s", resp.Status(), truncate(resp.String(), 300))
	}

	var out response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("completion API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}

	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
