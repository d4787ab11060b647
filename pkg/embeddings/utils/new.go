// Package embeddingutils builds the configured embedder.
package embeddingutils

import (
	"fmt"
	"time"

	"github.com/ecofes/lubebot/pkg/embeddings"
	"github.com/ecofes/lubebot/pkg/embeddings/gigachat"
	"github.com/ecofes/lubebot/pkg/embeddings/local"
	"github.com/ecofes/lubebot/pkg/embeddings/ollama"
	"github.com/ecofes/lubebot/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint
	APIKey       string
	Timeout      time.Duration

	// MaxInputChars truncates every input before it reaches the backend.
	MaxInputChars uint

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
}

// NewEmbedder returns the embedder for o.ProviderType wrapped with the
// input character budget.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	inner, err := newBackend(o)
	if err != nil {
		return nil, err
	}
	return embeddings.NewTruncating(inner, int(o.MaxInputChars)), nil
}

func newBackend(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "local", "":
		return local.NewEmbedder(int(o.Dimensions))

	case "gigachat":
		return gigachat.NewEmbedder(gigachat.Config{
			BaseURL:      o.TargetURL,
			Model:        o.Model,
			TokenURL:     o.TokenURL,
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			Scope:        o.Scope,
			Timeout:      o.Timeout,
		})

	case "openai":
		if o.APIKey == "" {
			return nil, fmt.Errorf("embedding provider openai requires an API key")
		}
		return openai.NewEmbedder(openai.Config{
			BaseURL:     o.TargetURL,
			Model:       o.Model,
			Credentials: openai.StaticKey(o.APIKey),
			Timeout:     o.Timeout,
		})

	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Timeout: o.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
