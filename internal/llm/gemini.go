package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiClient generates content through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	budget *budget
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = geminiModel
	}
	return &GeminiClient{client: client, model: model, budget: newBudget(cfg.MaxPerMinute)}, nil
}

// Complete sends the request. Schema requests use JSON mode.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrDisabled
	}
	if err := c.budget.take(); err != nil {
		return "", err
	}

	model := c.model
	if req.Model != "" && strings.HasPrefix(req.Model, "gemini") {
		model = req.Model
	}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, "")
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON || req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmpty
	}
	slog.Debug("llm call", "provider", ProviderGemini, "model", model)
	return text, nil
}
