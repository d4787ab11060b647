// Package openai implements pkg/embeddings' Embedder for OpenAI-compatible
// /embeddings endpoints: {model, input: [...]} in, data[].embedding out.
// The bearer credential is pluggable so token-exchange providers can
// reuse the wire client.
package openai

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

	"github.com/ecofes/lubebot/pkg/embeddings"
)

const (
	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the default embedding model.
	DefaultModel = "text-embedding-3-small"

	// DefaultTimeout bounds every embedding request.
	DefaultTimeout = 30 * time.Second
)

// ErrNoRefresh is returned by credentials that cannot be renewed.
var ErrNoRefresh = errors.New("credentials cannot be refreshed")

// Credentials supplies bearer tokens.
type Credentials interface {
	// Token returns the current bearer token.
	Token(ctx context.Context) (string, error)

	// Refresh returns a replacement for a token the backend rejected.
	Refresh(ctx context.Context, stale string) (string, error)
}

// StaticKey is a fixed API key.
type StaticKey string

func (k StaticKey) Token(context.Context) (string, error) {
	return string(k), nil
}

func (k StaticKey) Refresh(context.Context, string) (string, error) {
	return "", ErrNoRefresh
}

// Config holds configuration for the embedder.
type Config struct {
	// Provider names the backend in error messages. Defaults to "openai".
	Provider string

	// BaseURL is the API base URL; "/embeddings" is appended.
	BaseURL string

	// Model is the embedding model to use.
	Model string

	// Dimensions requests a reduced output size when non-zero.
	Dimensions int

	// Credentials supplies the bearer token. Required.
	Credentials Credentials

	// Timeout bounds each HTTP request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Embedder calls an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	provider   string
	url        string
	model      string
	dimensions int
	creds      Credentials
	httpClient *http.Client
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbedder creates a new embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("openai: credentials are required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Embedder{
		provider:   provider,
		url:        strings.TrimRight(baseURL, "/") + "/embeddings",
		model:      model,
		dimensions: cfg.Dimensions,
		creds:      cfg.Credentials,
		httpClient: client,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. A 401 triggers exactly one
// credential refresh and one retry of the same request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	token, err := e.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: obtaining token: %w", embeddings.ErrAuth, e.provider, err)
	}

	vecs, status, err := e.post(ctx, token, texts)
	if status != http.StatusUnauthorized {
		return vecs, err
	}

	fresh, rerr := e.creds.Refresh(ctx, token)
	if errors.Is(rerr, ErrNoRefresh) {
		return nil, err
	}
	if rerr != nil {
		return nil, fmt.Errorf("%w: %s: refreshing token: %w", embeddings.ErrAuth, e.provider, rerr)
	}

	vecs, _, err = e.post(ctx, fresh, texts)
	return vecs, err
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

func (e *Embedder) post(ctx context.Context, token string, texts []string) ([][]float32, int, error) {
	body, err := json.Marshal(embedRequest{
		Model:      e.model,
		Input:      texts,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: creating request: %v", embeddings.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: sending request: %v", embeddings.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, embeddings.StatusError(e.provider, resp.StatusCode, msg)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: decoding response: %v", embeddings.ErrTransport, err)
	}

	if len(parsed.Data) != len(texts) {
		return nil, resp.StatusCode, fmt.Errorf("%w: %s returned %d embeddings for %d inputs",
			embeddings.ErrTransport, e.provider, len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) || len(d.Embedding) == 0 {
			return nil, resp.StatusCode, fmt.Errorf("%w: %s returned an invalid embedding at index %d",
				embeddings.ErrTransport, e.provider, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, resp.StatusCode, fmt.Errorf("%w: %s returned no embedding for input %d",
				embeddings.ErrTransport, e.provider, i)
		}
	}

	return out, resp.StatusCode, nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
