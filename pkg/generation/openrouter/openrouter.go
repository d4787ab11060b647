// Package openrouter implements generation.Generator against OpenRouter's
// OpenAI-compatible chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ecofes/lubebot/pkg/generation"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "mistralai/mistral-7b-instruct"
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 500
	DefaultTimeout     = 30 * time.Second
)

// Config holds configuration for the OpenRouter generator.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// Referer and Title are sent as HTTP-Referer and X-Title so requests
	// are attributed to the app in OpenRouter rankings.
	Referer string
	Title   string

	HTTPClient *http.Client
}

// Generator calls /chat/completions with a system and a user message.
type Generator struct {
	cfg        Config
	httpClient *http.Client
}

// NewGenerator creates a new OpenRouter generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Generator{cfg: cfg, httpClient: client}, nil
}

// Generate returns the first choice's trimmed content.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", generation.ErrGeneration, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", generation.ErrGeneration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	if g.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", g.cfg.Referer)
	}
	if g.cfg.Title != "" {
		httpReq.Header.Set("X-Title", g.cfg.Title)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", generation.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: openrouter returned status %d: %s",
			generation.ErrGeneration, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", generation.ErrGeneration, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: openrouter returned no choices", generation.ErrGeneration)
	}

	choice := chat.Choices[0]
	out := &generation.Response{
		Model:      chat.Model,
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: choice.FinishReason,
	}
	if chat.Usage != nil {
		out.Usage = &generation.Usage{
			PromptTokens:     chat.Usage.PromptTokens,
			CompletionTokens: chat.Usage.CompletionTokens,
			TotalTokens:      chat.Usage.TotalTokens,
		}
	}
	return out, nil
}

var _ generation.Generator = (*Generator)(nil)
