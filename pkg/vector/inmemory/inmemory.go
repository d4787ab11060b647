// Package inmemory provides an exact, brute-force vector.Driver held in memory.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/ecofes/lubebot/pkg/vector"
)

// DefaultTopK is used when Query is called with a non-positive k.
const DefaultTopK = 10

// Driver stores documents in insertion order and scans them linearly.
type Driver struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]vector.Document
}

// NewDriver creates an empty in-memory index.
func NewDriver() *Driver {
	return &Driver{docs: map[string]vector.Document{}}
}

// CosineDistance returns 1 - cos(a, b). Mismatched or zero vectors are
// maximally distant.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs), nil
}

// Add upserts documents. All embeddings must share the dimensionality of
// the entries already stored.
func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dims := d.dimensionsLocked()
	for _, doc := range docs {
		if len(doc.Embedding) == 0 || (dims > 0 && len(doc.Embedding) != dims) {
			return fmt.Errorf("%w: doc %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), dims)
		}
		if dims == 0 {
			dims = len(doc.Embedding)
		}
	}

	for _, doc := range docs {
		if _, ok := d.docs[doc.ID]; !ok {
			d.order = append(d.order, doc.ID)
		}
		d.docs[doc.ID] = clone(doc)
	}
	return nil
}

// Query ranks every stored document by cosine distance. Ties keep
// insertion order.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	d.mu.RLock()
	results := make([]vector.QueryResult, 0, len(d.order))
	for _, id := range d.order {
		doc := d.docs[id]
		distance := CosineDistance(embedding, doc.Embedding)
		results = append(results, vector.QueryResult{
			Document: clone(doc),
			Distance: distance,
			Score:    vector.ScoreFromDistance(distance),
		})
	}
	d.mu.RUnlock()

	slices.SortStableFunc(results, func(a, b vector.QueryResult) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			docs = append(docs, clone(doc))
		}
	}
	return docs, nil
}

func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.docs, id)
	}
	d.order = slices.DeleteFunc(d.order, func(id string) bool {
		_, ok := d.docs[id]
		return !ok
	})
	return nil
}

func (d *Driver) Reset(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.order = nil
	d.docs = map[string]vector.Document{}
	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) dimensionsLocked() int {
	for _, doc := range d.docs {
		return len(doc.Embedding)
	}
	return 0
}

func clone(doc vector.Document) vector.Document {
	out := doc
	out.Embedding = slices.Clone(doc.Embedding)
	if doc.Metadata != nil {
		out.Metadata = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

var _ vector.Driver = (*Driver)(nil)
