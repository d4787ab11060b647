package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/embeddings"
	"github.com/ecofes/lubebot/pkg/embeddings/openai"
)

type request struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

var _ = Describe("Embedder", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		calls   atomic.Int32
		ctx     context.Context
	)

	newEmbedder := func() *openai.Embedder {
		e, err := openai.NewEmbedder(openai.Config{
			BaseURL:     server.URL + "/v1/",
			Model:       "test-model",
			Credentials: openai.StaticKey("sk-test"),
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		calls.Store(0)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires credentials", func() {
		_, err := openai.NewEmbedder(openai.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("sends the model and inputs with the bearer key and orders results by index", func() {
		var got request
		var auth, path string
		handler = func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			path = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0,1],"index":1},{"embedding":[1,0],"index":0}]}`))
		}

		vecs, err := newEmbedder().EmbedBatch(ctx, []string{"a", "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(Equal([][]float32{{1, 0}, {0, 1}}))
		Expect(got.Model).To(Equal("test-model"))
		Expect(got.Input).To(Equal([]string{"a", "b"}))
		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(path).To(Equal("/v1/embeddings"))
	})

	It("embeds a single text as a one-element input", func() {
		var got request
		handler = func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5],"index":0}]}`))
		}

		vec, err := newEmbedder().Embed(ctx, "масло")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.5}))
		Expect(got.Input).To(Equal([]string{"масло"}))
	})

	It("returns an empty result for an empty batch without calling the backend", func() {
		vecs, err := newEmbedder().EmbedBatch(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(BeEmpty())
		Expect(calls.Load()).To(BeZero())
	})

	DescribeTable("maps failures onto the error taxonomy",
		func(status int, want error) {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}

			_, err := newEmbedder().Embed(ctx, "text")
			Expect(errors.Is(err, want)).To(BeTrue(), err.Error())
			Expect(calls.Load()).To(Equal(int32(1)))
		},
		Entry("static key rejected", http.StatusUnauthorized, embeddings.ErrAuth),
		Entry("payload too large", http.StatusRequestEntityTooLarge, embeddings.ErrPayloadTooLarge),
		Entry("server error", http.StatusBadGateway, embeddings.ErrTransport),
	)

	It("fails on a short response", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
		}

		_, err := newEmbedder().EmbedBatch(ctx, []string{"a", "b"})
		Expect(errors.Is(err, embeddings.ErrTransport)).To(BeTrue())
	})

	It("fails on malformed JSON", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}

		_, err := newEmbedder().Embed(ctx, "a")
		Expect(errors.Is(err, embeddings.ErrTransport)).To(BeTrue())
	})

	It("times out instead of hanging", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}

		e, err := openai.NewEmbedder(openai.Config{
			BaseURL:     server.URL,
			Credentials: openai.StaticKey("k"),
			Timeout:     50 * time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(ctx, "a")
		Expect(errors.Is(err, embeddings.ErrTransport)).To(BeTrue())
	})
})
