// Package gigachat implements pkg/embeddings' Embedder for the GigaChat
// embeddings API. Bearer tokens come from the GigaChat OAuth endpoint and
// are cached and refreshed by pkg/oauth.
package gigachat

import (
	"net/http"
	"time"

	"github.com/ecofes/lubebot/pkg/embeddings"
	"github.com/ecofes/lubebot/pkg/embeddings/openai"
	"github.com/ecofes/lubebot/pkg/oauth"
)

const (
	DefaultBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	DefaultModel    = "Embeddings"
	DefaultTokenURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	DefaultScope    = "GIGACHAT_API_PERS"
)

// Config holds configuration for the GigaChat embedder.
type Config struct {
	BaseURL string
	Model   string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	// Timeout bounds each embedding and token request.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout. Deployments
	// without the Russian Trusted Root CA in the system pool pass a client
	// with a custom RootCAs here.
	HTTPClient *http.Client
}

// Embedder is an OpenAI-compatible embedder authenticated with cached
// GigaChat access tokens.
type Embedder struct {
	*openai.Embedder

	tokens *oauth.TokenCache
}

// NewEmbedder creates a new GigaChat embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = openai.DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	tokens, err := oauth.NewTokenCache(oauth.Config{
		TokenURL:        cfg.TokenURL,
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
		Scope:           cfg.Scope,
		RequestIDHeader: "RqUID",
		HTTPClient:      client,
	})
	if err != nil {
		return nil, err
	}

	inner, err := openai.NewEmbedder(openai.Config{
		Provider:    "gigachat",
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Credentials: tokens,
		HTTPClient:  client,
	})
	if err != nil {
		return nil, err
	}

	return &Embedder{Embedder: inner, tokens: tokens}, nil
}

// TokenState exposes the state of the cached access token.
func (e *Embedder) TokenState() oauth.State {
	return e.tokens.State()
}

var _ embeddings.Embedder = (*Embedder)(nil)
