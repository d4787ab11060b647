// Package chunker splits document text into non-overlapping groups of
// whitespace-delimited words.
package chunker

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = 300

// Chunk is a retrievable slice of a source document.
type Chunk struct {
	// ID is "<name>_<index>", stable for a given corpus layout.
	ID string

	// Text is the chunk content, words joined by single spaces.
	Text string

	// Source is the path of the originating document.
	Source string

	// Index is the position of the chunk within its document.
	Index int
}

// Split groups the words of text into consecutive chunks of at most size
// words. Empty or whitespace-only text yields no chunks. A size of zero or
// less uses DefaultChunkSize.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks
}

// Chunker produces identified chunks for documents.
type Chunker struct {
	chunkSize int
	maxChars  int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the number of words per chunk.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithMaxChars sets the hard ceiling, in characters, above which a chunk is
// rejected instead of returned. Zero disables the ceiling.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.maxChars = n
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured number of words per chunk.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Chunk splits text from the document at source. name is used as the ID
// prefix. Chunks longer than the ceiling are returned in oversized, with
// their IDs assigned, so callers can report them.
func (c *Chunker) Chunk(name, source, text string) (chunks []Chunk, oversized []Chunk) {
	for i, part := range Split(text, c.chunkSize) {
		ch := Chunk{
			ID:     ChunkID(name, i),
			Text:   part,
			Source: source,
			Index:  i,
		}

		if c.maxChars > 0 && utf8.RuneCountInString(part) > c.maxChars {
			oversized = append(oversized, ch)
			continue
		}
		chunks = append(chunks, ch)
	}

	return chunks, oversized
}

// ChunkID builds the ID of the i-th chunk of the named document.
func ChunkID(name string, i int) string {
	return filepath.ToSlash(name) + "_" + strconv.Itoa(i)
}
