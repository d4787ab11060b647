// Package generationutils builds the configured generator.
package generationutils

import (
	"fmt"
	"time"

	"github.com/ecofes/lubebot/pkg/generation"
	"github.com/ecofes/lubebot/pkg/generation/ollama"
	"github.com/ecofes/lubebot/pkg/generation/openrouter"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	Referer      string
	Title        string
}

func NewGenerator(o *NewGeneratorOpts) (generation.Generator, error) {
	switch o.ProviderType {
	case "openrouter", "openai":
		return openrouter.NewGenerator(openrouter.Config{
			BaseURL:     o.TargetURL,
			APIKey:      o.APIKey,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
			Timeout:     o.Timeout,
			Referer:     o.Referer,
			Title:       o.Title,
		})
	case "ollama":
		return ollama.NewGenerator(ollama.Config{
			BaseURL:     o.TargetURL,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
			Timeout:     o.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}
