// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/vector"
)

const (
	// DefaultCollectionName is the collection the corpus is indexed into.
	DefaultCollectionName = "ecofes_docs"

	// DefaultMaxRetries bounds connection attempts while Chroma starts up.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the first backoff delay; it doubles per attempt.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the backoff delay.
	DefaultMaxRetryDelay = 5 * time.Second

	// DefaultTopK is used when Query is called with a non-positive k.
	DefaultTopK = 10

	basePath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	httpClient     *http.Client
	logger         *slog.Logger

	mu           sync.RWMutex
	collectionID string
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Timeout bounds every request. Defaults to 60s.
	Timeout time.Duration

	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a Chroma driver, retrying with backoff until the
// collection can be fetched or created.
func NewDriver(c Config, log *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        strings.TrimRight(c.URL, "/"),
		collectionName: c.CollectionName,
		httpClient:     &http.Client{Timeout: c.Timeout},
		logger:         logger.Component(log, "chroma"),
	}

	var (
		collectionID string
		err          error
	)
	delay := c.RetryDelay
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		collectionID, err = d.getOrCreateCollection(context.Background())
		if err == nil {
			break
		}
		if attempt == c.MaxRetries {
			return nil, fmt.Errorf("%w: collection %q after %d attempts: %w",
				vector.ErrIndexUnavailable, c.CollectionName, attempt, err)
		}

		d.logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, c.MaxRetryDelay)
	}
	d.collectionID = collectionID

	d.logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", c.CollectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

// getOrCreateCollection returns the id of the cosine collection.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	err := d.do(ctx, http.MethodPost, basePath, chromaCreateCollectionRequest{
		Name:        d.collectionName,
		Metadata:    map[string]any{"hnsw:space": "cosine"},
		GetOrCreate: true,
	}, &collection)
	if err != nil {
		return "", err
	}
	if collection.ID == "" {
		return "", errors.New("chroma returned a collection without id")
	}
	return collection.ID, nil
}

func (d *Driver) collectionPath(op string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return basePath + "/" + d.collectionID + "/" + op
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
// Transport failures wrap vector.ErrIndexUnavailable.
func (d *Driver) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("chroma %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w", vector.ErrIndexUnavailable, err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.do(ctx, http.MethodGet, d.collectionPath("count"), nil, &n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Add upserts documents with their text and metadata.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]string, len(docs)),
		Documents:  make([]string, len(docs)),
	}
	for i, doc := range docs {
		reqBody.IDs[i] = doc.ID
		reqBody.Embeddings[i] = doc.Embedding
		reqBody.Documents[i] = doc.Text
		reqBody.Metadatas[i] = doc.Metadata
		if reqBody.Metadatas[i] == nil {
			reqBody.Metadatas[i] = map[string]string{}
		}
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), reqBody, nil); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("added documents to chroma", "count", len(docs))
	return nil
}

// Query finds the topK nearest documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var queryResp chromaQueryResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}, &queryResp)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	results := []vector.QueryResult{}

	// Only one query embedding is sent, so only the first group is read.
	if len(queryResp.IDs) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	var (
		documents []*string
		distances []float32
		metadatas []map[string]string
	)
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{Document: vector.Document{ID: id}}
		if i < len(documents) && documents[i] != nil {
			result.Text = *documents[i]
		}
		if i < len(metadatas) {
			result.Metadata = metadatas[i]
		}
		if i < len(distances) {
			result.Distance = distances[i]
			result.Score = vector.ScoreFromDistance(distances[i])
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var getResp chromaGetResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("get"), chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "metadatas", "embeddings"},
	}, &getResp)
	if err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i].ID = id
		if i < len(getResp.Documents) && getResp.Documents[i] != nil {
			docs[i].Text = *getResp.Documents[i]
		}
		if i < len(getResp.Metadatas) {
			docs[i].Metadata = getResp.Metadatas[i]
		}
		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	d.logger.Debug("deleted documents from chroma", "count", len(ids))
	return nil
}

// Reset drops the collection and creates it again.
func (d *Driver) Reset(ctx context.Context) error {
	if err := d.do(ctx, http.MethodDelete, basePath+"/"+d.collectionName, nil, nil); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	id, err := d.getOrCreateCollection(ctx)
	if err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}

	d.mu.Lock()
	d.collectionID = id
	d.mu.Unlock()

	d.logger.Info("reset chroma collection", "collection_id", id)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
