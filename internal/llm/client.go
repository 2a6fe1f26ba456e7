// Package llm provides the completion clients the bots use to enrich a
// date-derived fact into post text. Groq (OpenAI-compatible), Anthropic and
// Gemini are supported behind one Completer interface.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Provider names accepted by New.
const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const (
	groqBaseURL  = "https://api.groq.com/openai/v1"
	groqModel    = "openai/gpt-oss-120b"
	defaultLimit = 20
)

var (
	ErrDisabled    = errors.New("LLM client not configured")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrEmpty       = errors.New("empty response")
)

// Request is a single system+user completion.
type Request struct {
	System string
	Prompt string
	// Model overrides the client default when set.
	Model     string
	MaxTokens int
	// Temperature 0 leaves the provider default.
	Temperature float64
	// JSON asks for a bare JSON object.
	JSON bool
	// Schema asks for output matching a JSON schema. Providers without
	// schema support fall back to JSON mode.
	Schema *Schema
}

// Schema is a named JSON schema for structured output.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
	Strict      bool
}

// Completer returns the model's text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	MaxPerMinute int
}

// New builds the Completer for cfg.Provider. An empty API key yields
// ErrDisabled so callers can run without LLM features.
func New(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGroq:
		return NewClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// budget caps calls per rolling minute across all requests of one client.
type budget struct {
	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
	now       func() time.Time
}

func newBudget(maxPerMin int) *budget {
	if maxPerMin <= 0 {
		maxPerMin = defaultLimit
	}
	return &budget{maxPerMin: maxPerMin, now: time.Now}
}

func (b *budget) take() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if now.After(b.resetAt) {
		b.callCount = 0
		b.resetAt = now.Add(time.Minute)
	}
	if b.callCount >= b.maxPerMin {
		return fmt.Errorf("%w (%d calls/min)", ErrRateLimited, b.maxPerMin)
	}
	b.callCount++
	return nil
}

// Client talks to an OpenAI-compatible chat completions endpoint. Groq is
// the default.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	budget     *budget
}

// NewClient creates an OpenAI-compatible client.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)},
		budget:     newBudget(cfg.MaxPerMinute),
	}
	if c.baseURL == "" {
		c.baseURL = groqBaseURL
	}
	if c.model == "" {
		c.model = groqModel
	}
	return c
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the request and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.apiKey == "" {
		return "", ErrDisabled
	}
	if err := c.budget.take(); err != nil {
		return "", err
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	body := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, Message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, Message{Role: "user", Content: req.Prompt})
	switch {
	case req.Schema != nil:
		body.ResponseFormat = &responseFormat{Type: "json_schema", JSONSchema: &jsonSchema{
			Name:        req.Schema.Name,
			Description: req.Schema.Description,
			Schema:      req.Schema.Definition,
			Strict:      req.Schema.Strict,
		}}
	case req.JSON:
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var apiResp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", headers, body, &apiResp); err != nil {
		return "", err
	}
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", ErrEmpty
	}

	slog.Debug("llm call",
		"provider", ProviderGroq,
		"model", model,
		"input_tokens", apiResp.Usage.PromptTokens,
		"output_tokens", apiResp.Usage.CompletionTokens,
	)
	return apiResp.Choices[0].Message.Content, nil
}

// postJSON marshals in, posts it, and unmarshals a 200 response into out.
func postJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
