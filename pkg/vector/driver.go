// Package vector provides the nearest-neighbour index interface and its backends.
package vector

import "context"

// MetadataSource is the metadata key holding a chunk's originating path.
const MetadataSource = "source"

// Document is a Vector Index entry: a chunk with its embedding.
type Document struct {
	// ID is the chunk id, e.g. "oils.txt_0".
	ID string

	// Text is the chunk text returned by queries.
	Text string

	// Metadata carries at least MetadataSource.
	Metadata map[string]string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// Source returns the document's source path, if any.
func (d Document) Source() string {
	return d.Metadata[MetadataSource]
}

// QueryResult is a ranked query hit.
type QueryResult struct {
	Document

	// Distance is the cosine distance to the query (lower = nearer).
	Distance float32

	// Score is 1/(1+Distance) (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
// Implementations must allow concurrent Query calls.
type Driver interface {
	// Count returns the number of entries currently stored.
	Count(ctx context.Context) (int, error)

	// Add stores documents with their embeddings in a single call.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK nearest documents to the given embedding,
	// nearest first.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Reset removes every entry.
	Reset(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}

// ScoreFromDistance converts a distance into a similarity score.
func ScoreFromDistance(distance float32) float32 {
	return 1.0 / (1.0 + distance)
}
