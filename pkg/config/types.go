package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent lubebot configuration stored as config.toml
// in the .lubebot/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Corpus      CorpusConfig      `toml:"corpus"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Generation  GenerationConfig  `toml:"generation"`
	Classifier  ClassifierConfig  `toml:"classifier"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Events      EventsConfig      `toml:"events"`
	Contact     ContactConfig     `toml:"contact"`
}

// StorageConfig selects the record store for user queries and leads.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector index settings. Target is a file path for
// sqlite and a URL for chroma and qdrant.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider       string              `toml:"provider,omitempty"`
	Target         string              `toml:"target,omitempty"`
	Model          string              `toml:"model,omitempty"`
	Dimensions     uint                `toml:"dimensions,omitempty"`
	MaxInputChars  uint                `toml:"max_input_chars,omitempty"`
	TimeoutSeconds uint                `toml:"timeout_seconds,omitempty"`
	APIKey         string              `toml:"api_key,omitempty"`
	Auth           EmbeddingAuthConfig `toml:"auth"`
}

// EmbeddingAuthConfig holds the client credentials exchanged for bearer
// tokens by remote embedding providers.
type EmbeddingAuthConfig struct {
	TokenURL     string `toml:"token_url,omitempty"`
	ClientID     string `toml:"client_id,omitempty"`
	ClientSecret string `toml:"client_secret,omitempty"`
	Scope        string `toml:"scope,omitempty"`
}

// CorpusConfig controls how the document corpus is read and chunked.
type CorpusConfig struct {
	Root            string `toml:"root,omitempty"`
	ChunkSize       uint   `toml:"chunk_size,omitempty"`
	MinContentChars uint   `toml:"min_content_chars,omitempty"`
	MaxChunkChars   uint   `toml:"max_chunk_chars,omitempty"`
	EmbedDelayMS    uint   `toml:"embed_delay_ms,omitempty"`
	BatchSize       uint   `toml:"batch_size,omitempty"`
}

// RetrievalConfig controls query-time search.
type RetrievalConfig struct {
	TopK          uint    `toml:"top_k,omitempty"`
	ContextChunks uint    `toml:"context_chunks,omitempty"`
	MaxDistance   float64 `toml:"max_distance,omitempty"`
}

// GenerationConfig holds chat-completion settings for answer synthesis.
type GenerationConfig struct {
	Provider       string  `toml:"provider,omitempty"`
	Target         string  `toml:"target,omitempty"`
	Model          string  `toml:"model,omitempty"`
	APIKey         string  `toml:"api_key,omitempty"`
	Temperature    float64 `toml:"temperature,omitempty"`
	MaxTokens      uint    `toml:"max_tokens,omitempty"`
	MaxAnswerChars uint    `toml:"max_answer_chars,omitempty"`
	TimeoutSeconds uint    `toml:"timeout_seconds,omitempty"`
	Referer        string  `toml:"referer,omitempty"`
	Title          string  `toml:"title,omitempty"`
}

// ClassifierConfig points at an optional rules file replacing the built-in rules.
type ClassifierConfig struct {
	RulesPath string `toml:"rules_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// API server (e.g. lubebot search --remote). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventsConfig selects where query and lead events are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// ContactConfig holds the support contact quoted in escalation replies.
type ContactConfig struct {
	Phone string `toml:"phone,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// orderedKeys lists every config key in TOML section order.
var orderedKeys = []string{
	"storage.provider",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.max_input_chars",
	"embedding.timeout_seconds",
	"embedding.api_key",
	"embedding.auth.token_url",
	"embedding.auth.client_id",
	"embedding.auth.client_secret",
	"embedding.auth.scope",
	"corpus.root",
	"corpus.chunk_size",
	"corpus.min_content_chars",
	"corpus.max_chunk_chars",
	"corpus.embed_delay_ms",
	"corpus.batch_size",
	"retrieval.top_k",
	"retrieval.context_chunks",
	"retrieval.max_distance",
	"generation.provider",
	"generation.target",
	"generation.model",
	"generation.api_key",
	"generation.temperature",
	"generation.max_tokens",
	"generation.max_answer_chars",
	"generation.timeout_seconds",
	"generation.referer",
	"generation.title",
	"classifier.rules_path",
	"api.listen",
	"client.api_target",
	"events.provider",
	"events.brokers",
	"events.topic",
	"contact.phone",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider":           stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":             stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":              stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions":         uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.max_input_chars":    uintKey("embedding.max_input_chars", func(c *Config) *uint { return &c.Embedding.MaxInputChars }),
	"embedding.timeout_seconds":    uintKey("embedding.timeout_seconds", func(c *Config) *uint { return &c.Embedding.TimeoutSeconds }),
	"embedding.api_key":            stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.auth.token_url":     stringKey(func(c *Config) *string { return &c.Embedding.Auth.TokenURL }),
	"embedding.auth.client_id":     stringKey(func(c *Config) *string { return &c.Embedding.Auth.ClientID }),
	"embedding.auth.client_secret": stringKey(func(c *Config) *string { return &c.Embedding.Auth.ClientSecret }),
	"embedding.auth.scope":         stringKey(func(c *Config) *string { return &c.Embedding.Auth.Scope }),

	"corpus.root":              stringKey(func(c *Config) *string { return &c.Corpus.Root }),
	"corpus.chunk_size":        uintKey("corpus.chunk_size", func(c *Config) *uint { return &c.Corpus.ChunkSize }),
	"corpus.min_content_chars": uintKey("corpus.min_content_chars", func(c *Config) *uint { return &c.Corpus.MinContentChars }),
	"corpus.max_chunk_chars":   uintKey("corpus.max_chunk_chars", func(c *Config) *uint { return &c.Corpus.MaxChunkChars }),
	"corpus.embed_delay_ms":    uintKey("corpus.embed_delay_ms", func(c *Config) *uint { return &c.Corpus.EmbedDelayMS }),
	"corpus.batch_size":        uintKey("corpus.batch_size", func(c *Config) *uint { return &c.Corpus.BatchSize }),

	"retrieval.top_k":          uintKey("retrieval.top_k", func(c *Config) *uint { return &c.Retrieval.TopK }),
	"retrieval.context_chunks": uintKey("retrieval.context_chunks", func(c *Config) *uint { return &c.Retrieval.ContextChunks }),
	"retrieval.max_distance":   floatKey("retrieval.max_distance", func(c *Config) *float64 { return &c.Retrieval.MaxDistance }),

	"generation.provider":         stringKey(func(c *Config) *string { return &c.Generation.Provider }),
	"generation.target":           stringKey(func(c *Config) *string { return &c.Generation.Target }),
	"generation.model":            stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.api_key":          stringKey(func(c *Config) *string { return &c.Generation.APIKey }),
	"generation.temperature":      floatKey("generation.temperature", func(c *Config) *float64 { return &c.Generation.Temperature }),
	"generation.max_tokens":       uintKey("generation.max_tokens", func(c *Config) *uint { return &c.Generation.MaxTokens }),
	"generation.max_answer_chars": uintKey("generation.max_answer_chars", func(c *Config) *uint { return &c.Generation.MaxAnswerChars }),
	"generation.timeout_seconds":  uintKey("generation.timeout_seconds", func(c *Config) *uint { return &c.Generation.TimeoutSeconds }),
	"generation.referer":          stringKey(func(c *Config) *string { return &c.Generation.Referer }),
	"generation.title":            stringKey(func(c *Config) *string { return &c.Generation.Title }),

	"classifier.rules_path": stringKey(func(c *Config) *string { return &c.Classifier.RulesPath }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"contact.phone": stringKey(func(c *Config) *string { return &c.Contact.Phone }),
}

// secretKeys are masked by "lubebot config list".
var secretKeys = map[string]bool{
	"embedding.api_key":            true,
	"embedding.auth.client_secret": true,
	"generation.api_key":           true,
	"storage.postgres_dsn":         true,
}

// IsSecretKey reports whether the value of key should be masked on display.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
