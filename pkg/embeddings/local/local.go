// Package local implements an in-process embedder that needs no model
// files, network or credentials. Words and character trigrams are hashed
// into a fixed number of signed buckets and the result is L2-normalised,
// so cosine distance reflects lexical overlap including inflected forms.
package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/ecofes/lubebot/pkg/embeddings"
)

const (
	// DefaultDimensions matches the 384-wide multilingual MiniLM space the
	// bot was first deployed with, so indexes can be swapped without
	// resizing the store.
	DefaultDimensions = 384

	wordWeight    = 1.0
	trigramWeight = 0.5
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[-'’][\p{L}\p{N}]+)*`)

// Embedder is a stateless feature-hashing embedder.
type Embedder struct {
	dimensions int
}

// NewEmbedder returns an Embedder producing vectors of the given size.
// Zero selects DefaultDimensions.
func NewEmbedder(dimensions int) (*Embedder, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dimensions)
	}
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}, nil
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, embeddings.ErrEmptyInput
	}

	acc := make([]float64, e.dimensions)
	for _, tok := range tokens {
		e.add(acc, "w:"+tok, wordWeight)

		padded := []rune("#" + tok + "#")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(acc, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	if norm == 0 {
		return nil, embeddings.ErrEmptyInput
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimensions)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch converts texts into embeddings in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embeddings.EmbedEach(ctx, e, texts)
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

// Tokenize lowercases text and returns its word tokens. Hyphenated and
// apostrophe-joined tokens such as "5w-30" stay whole.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

var _ embeddings.Embedder = (*Embedder)(nil)
