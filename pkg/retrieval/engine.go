// Package retrieval builds the vector index from a document corpus and
// answers similarity searches against it.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/ecofes/lubebot/pkg/chunker"
	"github.com/ecofes/lubebot/pkg/embeddings"
	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/vector"
)

// Engine owns the build-or-skip decision and query-time search. One Engine
// is shared by every request; it holds the embedder and the index handle.
type Engine struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *slog.Logger

	root            string
	chunkSize       int
	minContentChars int
	maxChunkChars   int
	embedDelay      time.Duration
	batchSize       int
	topK            int
	maxDistance     float64

	mu         sync.Mutex
	built      bool
	lastReport *BuildReport
}

// NewEngine creates an engine over the given embedder and index.
func NewEngine(embedder embeddings.Embedder, driver vector.Driver, opts ...Option) *Engine {
	e := &Engine{
		embedder:        embedder,
		driver:          driver,
		chunkSize:       chunker.DefaultChunkSize,
		minContentChars: DefaultMinContentChars,
		maxChunkChars:   DefaultMaxChunkChars,
		batchSize:       1,
		topK:            DefaultTopK,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.Component(e.logger, "retrieval")
	return e
}

// corpusFile is a document found under the corpus root.
type corpusFile struct {
	path string
	name string
}

// Build indexes the corpus once per engine. A populated index is left
// untouched. Per-file and per-chunk failures are logged and counted; only an
// unavailable index is returned as an error.
func (e *Engine) Build(ctx context.Context) (*BuildReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.built {
		return e.lastReport, nil
	}

	report, err := e.build(ctx)
	if err != nil {
		return nil, err
	}

	e.built = true
	e.lastReport = report
	return report, nil
}

// Rebuild empties the index and builds it again from the corpus.
func (e *Engine) Rebuild(ctx context.Context) (*BuildReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.driver.Reset(ctx); err != nil {
		return nil, fmt.Errorf("resetting index: %w", err)
	}
	e.built = false
	e.logger.Info("index reset, rebuilding", "root", e.root)

	report, err := e.build(ctx)
	if err != nil {
		return nil, err
	}

	e.built = true
	e.lastReport = report
	return report, nil
}

func (e *Engine) build(ctx context.Context) (*BuildReport, error) {
	start := time.Now()
	report := &BuildReport{CorpusRoot: e.root, BuiltAt: start}

	existing, err := e.driver.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking index: %w", err)
	}
	if existing > 0 {
		report.Skipped = true
		report.Existing = existing
		e.logger.Info("index already populated, skipping build", "entries", existing)
		return report, nil
	}

	files := e.discover(report)
	report.Files = len(files)

	var pending []chunker.Chunk
	ch := chunker.New(chunker.WithChunkSize(e.chunkSize), chunker.WithMaxChars(e.maxChunkChars))

	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			report.ReadErrors++
			e.logger.Warn("skipping unreadable document",
				"path", f.path,
				"error", fmt.Errorf("%w: %w", ErrCorpusRead, err),
			)
			continue
		}

		content := string(data)
		if !utf8.ValidString(content) {
			report.ReadErrors++
			e.logger.Warn("skipping document that is not valid UTF-8",
				"path", f.path,
				"error", ErrCorpusRead,
			)
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(content)) < e.minContentChars {
			report.SkippedFiles++
			e.logger.Info("skipping near-empty document", "path", f.path)
			continue
		}

		chunks, oversized := ch.Chunk(f.name, f.path, content)
		for _, o := range oversized {
			e.logger.Warn("skipping chunk over the size ceiling",
				"chunk", o.ID,
				"chars", utf8.RuneCountInString(o.Text),
				"max_chars", e.maxChunkChars,
			)
		}
		report.Chunks += len(chunks) + len(oversized)
		report.Oversized += len(oversized)
		pending = append(pending, chunks...)
	}

	docs := e.embedChunks(ctx, pending, report)

	if len(docs) > 0 {
		if err := e.driver.Add(ctx, docs); err != nil {
			return nil, fmt.Errorf("indexing %d chunks: %w", len(docs), err)
		}
	}
	report.Indexed = len(docs)
	report.Duration = time.Since(start)

	if report.Empty() {
		e.logger.Warn("index build finished empty, searches will return no results",
			"files", report.Files,
			"embed_failures", report.EmbedFailures,
		)
	} else {
		e.logger.Info("index built",
			"files", report.Files,
			"chunks", report.Chunks,
			"indexed", report.Indexed,
			"embed_failures", report.EmbedFailures,
			"oversized", report.Oversized,
			"duration", report.Duration,
		)
	}

	return report, nil
}

// discover enumerates regular files under the root in lexical order. Chunk
// names are base names, or slash-separated relative paths when two
// documents share a base name.
func (e *Engine) discover(report *BuildReport) []corpusFile {
	var paths []string
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			report.ReadErrors++
			e.logger.Warn("skipping unreadable corpus path",
				"path", path,
				"error", fmt.Errorf("%w: %w", ErrCorpusRead, err),
			)
			if d != nil && d.IsDir() && path != e.root {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("corpus walk stopped early", "root", e.root, "error", err)
	}

	seen := map[string]int{}
	for _, p := range paths {
		seen[filepath.Base(p)]++
	}

	files := make([]corpusFile, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if seen[name] > 1 {
			if rel, err := filepath.Rel(e.root, p); err == nil {
				name = rel
			}
		}
		files = append(files, corpusFile{path: p, name: name})
	}
	return files
}

// embedChunks embeds chunks sequentially, throttled by the embed delay,
// and returns the documents ready for indexing. Failed items are counted.
func (e *Engine) embedChunks(ctx context.Context, chunks []chunker.Chunk, report *BuildReport) []vector.Document {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if e.embedDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.embedDelay), 1)
	}

	docs := make([]vector.Document, 0, len(chunks))
	keep := func(c chunker.Chunk, vec []float32) {
		if len(vec) == 0 {
			report.EmbedFailures++
			e.logger.Warn("skipping chunk with empty embedding", "chunk", c.ID)
			return
		}
		docs = append(docs, vector.Document{
			ID:        c.ID,
			Text:      c.Text,
			Metadata:  map[string]string{vector.MetadataSource: c.Source},
			Embedding: vec,
		})
	}

	embedOne := func(c chunker.Chunk) {
		if err := limiter.Wait(ctx); err != nil {
			report.EmbedFailures++
			return
		}
		vec, err := e.embedder.Embed(ctx, c.Text)
		if err != nil {
			report.EmbedFailures++
			e.logger.Warn("skipping chunk that failed to embed", "chunk", c.ID, "error", err)
			return
		}
		keep(c, vec)
	}

	if e.batchSize <= 1 {
		for _, c := range chunks {
			embedOne(c)
		}
		return docs
	}

	for start := 0; start < len(chunks); start += e.batchSize {
		batch := chunks[start:min(start+e.batchSize, len(chunks))]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		var (
			vecs [][]float32
			err  error
		)
		if err = limiter.Wait(ctx); err == nil {
			vecs, err = e.embedder.EmbedBatch(ctx, texts)
		}
		if err == nil && len(vecs) != len(batch) {
			err = fmt.Errorf("%w: got %d embeddings for %d chunks", embeddings.ErrTransport, len(vecs), len(batch))
		}
		if err != nil {
			if ctx.Err() != nil {
				report.EmbedFailures += len(batch)
				continue
			}
			e.logger.Warn("batch embedding failed, retrying chunks one at a time",
				"first_chunk", batch[0].ID,
				"size", len(batch),
				"error", err,
			)
			for _, c := range batch {
				embedOne(c)
			}
			continue
		}

		for i, c := range batch {
			keep(c, vecs[i])
		}
	}

	return docs
}

// Search returns the texts of at most k chunks nearest to query, nearest
// first. Any failure yields an empty slice.
func (e *Engine) Search(ctx context.Context, query string, k int) []string {
	results, err := e.SearchResults(ctx, query, k)
	if err != nil {
		e.logger.Warn("search failed, returning no context", "error", err)
		return []string{}
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts
}

// SearchResults is Search with distances and metadata, and with errors.
func (e *Engine) SearchResults(ctx context.Context, query string, k int) ([]vector.QueryResult, error) {
	if k <= 0 {
		k = e.topK
	}
	if strings.TrimSpace(query) == "" {
		return []vector.QueryResult{}, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.driver.Query(ctx, vec, k)
	if err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return nil, fmt.Errorf("querying index (was it built with another embedder?): %w", err)
		}
		return nil, fmt.Errorf("querying index: %w", err)
	}

	out := make([]vector.QueryResult, 0, len(results))
	for _, r := range results {
		if e.maxDistance > 0 && float64(r.Distance) > e.maxDistance {
			continue
		}
		out = append(out, r)
		if len(out) == k {
			break
		}
	}

	e.logger.Debug("search", "k", k, "results", len(out))
	return out, nil
}

// Stats describes the index.
type Stats struct {
	Entries    int          `json:"entries"`
	Built      bool         `json:"built"`
	LastReport *BuildReport `json:"last_report,omitempty"`
}

// Stats returns the current entry count and the last build report.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	n, err := e.driver.Count(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return &Stats{Entries: n, Built: e.built, LastReport: e.lastReport}, nil
}

// TopK returns the default number of search results.
func (e *Engine) TopK() int {
	return e.topK
}

// Close releases the embedder and the index handle.
func (e *Engine) Close() error {
	return errors.Join(e.embedder.Close(), e.driver.Close())
}
