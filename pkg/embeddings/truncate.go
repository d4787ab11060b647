package embeddings

import (
	"context"
	"unicode/utf8"
)

// Truncate returns the first maxChars characters of text. A non-positive
// maxChars disables truncation.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}

// Truncating applies the character budget to every text before delegating
// to the wrapped embedder.
type Truncating struct {
	next     Embedder
	maxChars int
}

// NewTruncating wraps next with a maxChars input budget.
func NewTruncating(next Embedder, maxChars int) *Truncating {
	return &Truncating{next: next, maxChars: maxChars}
}

// MaxChars returns the configured character budget.
func (t *Truncating) MaxChars() int {
	return t.maxChars
}

func (t *Truncating) Embed(ctx context.Context, text string) ([]float32, error) {
	return t.next.Embed(ctx, Truncate(text, t.maxChars))
}

func (t *Truncating) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	cut := make([]string, len(texts))
	for i, text := range texts {
		cut[i] = Truncate(text, t.maxChars)
	}
	return t.next.EmbedBatch(ctx, cut)
}

func (t *Truncating) Close() error {
	return t.next.Close()
}

// IsTruncated reports whether text exceeds maxChars characters.
func IsTruncated(text string, maxChars int) bool {
	return maxChars > 0 && utf8.RuneCountInString(text) > maxChars
}

var _ Embedder = (*Truncating)(nil)
