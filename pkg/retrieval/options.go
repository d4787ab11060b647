package retrieval

import (
	"log/slog"
	"time"
)

const (
	// DefaultTopK is the number of chunks returned by Search when k <= 0.
	DefaultTopK = 3

	// DefaultMinContentChars is the length below which a document is skipped.
	DefaultMinContentChars = 10

	// DefaultMaxChunkChars is the ceiling above which a chunk is skipped.
	DefaultMaxChunkChars = 4000
)

// Option configures an Engine.
type Option func(*Engine)

// WithCorpusRoot sets the directory enumerated by Build.
func WithCorpusRoot(root string) Option {
	return func(e *Engine) { e.root = root }
}

// WithChunkSize sets the number of words per chunk.
func WithChunkSize(words int) Option {
	return func(e *Engine) {
		if words > 0 {
			e.chunkSize = words
		}
	}
}

// WithMinContentChars sets the minimum trimmed document length.
func WithMinContentChars(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.minContentChars = n
		}
	}
}

// WithMaxChunkChars sets the chunk ceiling. Zero disables it.
func WithMaxChunkChars(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxChunkChars = n
		}
	}
}

// WithEmbedDelay throttles embedding calls during Build to one per delay.
func WithEmbedDelay(delay time.Duration) Option {
	return func(e *Engine) { e.embedDelay = delay }
}

// WithBatchSize embeds chunks in groups of n with EmbedBatch. One disables batching.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithTopK sets the default number of search results.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithMaxDistance drops search hits farther than d. Zero disables the floor.
func WithMaxDistance(d float64) Option {
	return func(e *Engine) { e.maxDistance = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}
