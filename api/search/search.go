// Package search provides shared search types and logic for semantic search
// over the indexed corpus. It is used by both the REST API endpoint and
// the MCP server tool.
package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/vector"
)

// DefaultTopK is used when a request does not set top_k.
const DefaultTopK = 3

// Index is the part of the retrieval engine search needs.
type Index interface {
	SearchResults(ctx context.Context, query string, k int) ([]vector.QueryResult, error)
}

// Input represents the input arguments for a search request.
type Input struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Result represents a single search result.
type Result struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Distance float32 `json:"distance"`
	Score    float32 `json:"score"`
}

// Output represents the output of a search operation.
type Output struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query is required")

// Search runs a semantic search and shapes the results for clients.
func Search(ctx context.Context, query string, topK int, index Index, log *slog.Logger) (*Output, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = logger.Nop()
	}

	log.Debug("search request", "query", query, "top_k", topK)

	results, err := index.SearchResults(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Query:   query,
		Results: make([]Result, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		out.Results[i] = Result{
			ID:       r.ID,
			Text:     r.Text,
			Source:   r.Source(),
			Distance: r.Distance,
			Score:    r.Score,
		}
	}
	return out, nil
}
