package chroma_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/vector"
	"github.com/ecofes/lubebot/pkg/vector/chroma"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// fakeChroma serves the subset of the v2 API the driver uses.
type fakeChroma struct {
	mu       sync.Mutex
	created  map[string]any
	upserted []string
	docs     int
}

func (f *fakeChroma) snapshot() (map[string]any, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, append([]string(nil), f.upserted...)
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path

	switch {
	case r.Method == http.MethodPost && path == collectionsPath:
		_ = json.NewDecoder(r.Body).Decode(&f.created)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "ecofes_docs"})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/col-1/count"):
		_ = json.NewEncoder(w).Encode(f.docs)

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/col-1/upsert"):
		var body struct {
			IDs []string `json:"ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.upserted = append(f.upserted, body.IDs...)
		f.docs += len(body.IDs)
		_, _ = w.Write([]byte(`true`))

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/col-1/query"):
		_, _ = w.Write([]byte(`{
			"ids": [["b", "c"]],
			"documents": [["chunk B", "chunk C"]],
			"metadatas": [[{"source": "docs/b.txt"}, {"source": "docs/c.txt"}]],
			"distances": [[0.1, 0.4]]
		}`))

	case r.Method == http.MethodDelete && strings.HasSuffix(path, "/ecofes_docs"):
		f.docs = 0
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should create a cosine collection", func() {
			fake := &fakeChroma{}
			server := httptest.NewServer(fake)
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
			created, _ := fake.snapshot()
			Expect(created["name"]).To(Equal(chroma.DefaultCollectionName))
			Expect(created["get_or_create"]).To(BeTrue())
			Expect(created["metadata"]).To(HaveKeyWithValue("hnsw:space", "cosine"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if attempts.Add(1) <= 2 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "ecofes_docs"})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("should return an unavailable error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
			Expect(errors.Is(err, vector.ErrIndexUnavailable)).To(BeTrue())
		})
	})

	Describe("operations", func() {
		var (
			fake   *fakeChroma
			server *httptest.Server
			driver *chroma.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			fake = &fakeChroma{}
			server = httptest.NewServer(fake)
			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			server.Close()
		})

		It("upserts and counts documents", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "a", Text: "A", Embedding: []float32{1, 0}},
				{ID: "b", Text: "B", Embedding: []float32{0, 1}},
			})).To(Succeed())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			_, upserted := fake.snapshot()
			Expect(upserted).To(Equal([]string{"a", "b"}))
		})

		It("decodes query results nearest first", func() {
			results, err := driver.Query(ctx, []float32{0, 1}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("b"))
			Expect(results[0].Text).To(Equal("chunk B"))
			Expect(results[0].Source()).To(Equal("docs/b.txt"))
			Expect(results[0].Distance).To(BeNumerically("~", 0.1, 1e-6))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("resets the collection", func() {
			Expect(driver.Add(ctx, []vector.Document{{ID: "a", Embedding: []float32{1, 0}}})).To(Succeed())
			Expect(driver.Reset(ctx)).To(Succeed())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})

		It("reports an unreachable server as unavailable", func() {
			server.Close()
			_, err := driver.Count(ctx)
			Expect(errors.Is(err, vector.ErrIndexUnavailable)).To(BeTrue())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})
})
