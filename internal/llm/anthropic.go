package llm

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-haiku-4-5-20251001"
	anthropicTokens  = 2048
)

// AnthropicClient wraps the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	budget     *budget
}

// NewAnthropicClient creates a Messages API client.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	c := &AnthropicClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)},
		budget:     newBudget(cfg.MaxPerMinute),
	}
	if c.baseURL == "" {
		c.baseURL = anthropicURL
	}
	if c.model == "" {
		c.model = anthropicModel
	}
	return c
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Messages    []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends the request. The Messages API has no JSON mode, so JSON
// requests add an instruction to the system prompt instead.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.apiKey == "" {
		return "", ErrDisabled
	}
	if err := c.budget.take(); err != nil {
		return "", err
	}

	model := c.model
	if req.Model != "" && strings.HasPrefix(req.Model, "claude") {
		model = req.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicTokens
	}
	system := req.System
	if req.JSON || req.Schema != nil {
		system += "\n\nRespond ONLY with a single JSON object."
	}

	body := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: req.Temperature,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	var apiResp anthropicResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/messages", headers, body, &apiResp); err != nil {
		return "", err
	}
	if len(apiResp.Content) == 0 {
		return "", ErrEmpty
	}

	slog.Debug("llm call",
		"provider", ProviderAnthropic,
		"model", model,
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens,
	)
	return apiResp.Content[0].Text, nil
}
