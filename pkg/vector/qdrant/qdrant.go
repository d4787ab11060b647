// Package qdrant provides a vector.Driver backed by a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/vector"
)

const (
	// DefaultCollectionName is the collection the corpus is indexed into.
	DefaultCollectionName = "ecofes_docs"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// DefaultTopK is used when Query is called with a non-positive k.
	DefaultTopK = 10

	payloadID       = "doc_id"
	payloadText     = "text"
	payloadMetadata = "metadata"
)

// pointNamespace scopes the name-based UUIDs derived from chunk ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://ecofes.ru/lubebot/chunks"))

// PointID returns the Qdrant point id for a chunk id. Qdrant only accepts
// unsigned integers and UUIDs, so chunk ids are mapped to SHA1 UUIDs.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host" or "host:port" of the gRPC endpoint.
	Target string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is the fixed dimensionality of the embedding vectors.
	Dimensions uint

	APIKey string
	UseTLS bool
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qdrant.Client
	collection string
	dimensions uint
	logger     *slog.Logger
}

// ParseTarget splits a target into host and port, defaulting the port.
func ParseTarget(target string) (string, int, error) {
	target = strings.TrimPrefix(strings.TrimPrefix(target, "http://"), "https://")
	if target == "" {
		return "", 0, errors.New("qdrant target is required")
	}
	if !strings.Contains(target, ":") {
		return target, DefaultPort, nil
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("parsing qdrant target %q: %w", target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return "", 0, fmt.Errorf("invalid qdrant port %q", portStr)
	}
	return host, port, nil
}

// NewDriver connects to Qdrant and ensures the cosine collection exists.
func NewDriver(ctx context.Context, c Config, log *slog.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}
	host, port, err := ParseTarget(c.Target)
	if err != nil {
		return nil, err
	}
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %w", vector.ErrIndexUnavailable, err)
	}

	d := &Driver{
		client:     client,
		collection: c.CollectionName,
		dimensions: c.Dimensions,
		logger:     logger.Component(log, "qdrant"),
	}

	if err := d.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	d.logger.Info("connected to qdrant",
		"host", host,
		"port", port,
		"collection", c.CollectionName,
	)
	return d, nil
}

func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %w", vector.ErrIndexUnavailable, d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %w", vector.ErrIndexUnavailable, d.collection, err)
	}
	return nil
}

// Count returns the exact number of points.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %w", vector.ErrIndexUnavailable, err)
	}
	return int(n), nil
}

// Add upserts documents in one request and waits for them to be applied.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: doc %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), d.dimensions)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(payload(doc)),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting points: %w", vector.ErrIndexUnavailable, err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))
	return nil
}

// Query finds the topK nearest documents. Qdrant reports cosine similarity,
// which is converted to distance as 1 - similarity.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %w", vector.ErrIndexUnavailable, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		distance := 1 - p.GetScore()
		results = append(results, vector.QueryResult{
			Document: documentFromPayload(p.GetPayload()),
			Distance: distance,
			Score:    vector.ScoreFromDistance(distance),
		})
	}

	d.logger.Debug("queried qdrant", "results", len(results))
	return results, nil
}

// Get retrieves documents by their chunk IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting points: %w", vector.ErrIndexUnavailable, err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := documentFromPayload(p.GetPayload())
		doc.Embedding = p.GetVectors().GetVector().GetData()
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents by their chunk IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs(ids)...),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting points: %w", vector.ErrIndexUnavailable, err)
	}

	d.logger.Debug("deleted documents from qdrant", "count", len(ids))
	return nil
}

// Reset drops the collection and creates it again.
func (d *Driver) Reset(ctx context.Context) error {
	if err := d.client.DeleteCollection(ctx, d.collection); err != nil {
		return fmt.Errorf("%w: deleting collection: %w", vector.ErrIndexUnavailable, err)
	}
	if err := d.ensureCollection(ctx); err != nil {
		return err
	}

	d.logger.Info("reset qdrant collection", "collection", d.collection)
	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func pointIDs(ids []string) []*qdrant.PointId {
	out := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		out[i] = qdrant.NewIDUUID(PointID(id))
	}
	return out
}

func payload(doc vector.Document) map[string]any {
	meta := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return map[string]any{
		payloadID:       doc.ID,
		payloadText:     doc.Text,
		payloadMetadata: meta,
	}
}

func documentFromPayload(p map[string]*qdrant.Value) vector.Document {
	doc := vector.Document{
		ID:       p[payloadID].GetStringValue(),
		Text:     p[payloadText].GetStringValue(),
		Metadata: map[string]string{},
	}
	for k, v := range p[payloadMetadata].GetStructValue().GetFields() {
		doc.Metadata[k] = v.GetStringValue()
	}
	return doc
}

var _ vector.Driver = (*Driver)(nil)
