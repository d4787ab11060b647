package gigachat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/embeddings"
	"github.com/ecofes/lubebot/pkg/embeddings/gigachat"
	"github.com/ecofes/lubebot/pkg/oauth"
)

// fakeGigaChat serves both the OAuth and the embeddings endpoints.
type fakeGigaChat struct {
	mu sync.Mutex

	tokenFetches int
	embedCalls   int
	authHeaders  []string

	// reject lists embed call numbers (1-based) answered with 401.
	reject map[int]bool
}

func (f *fakeGigaChat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/oauth":
		f.tokenFetches++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok-%d", f.tokenFetches),
			"expires_at":   time.Now().Add(30 * time.Minute).UnixMilli(),
		})

	case "/api/v1/embeddings":
		f.embedCalls++
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		if f.reject[f.embedCalls] {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"Token has expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[0.1,0.2],"index":0}],"model":"Embeddings"}`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGigaChat) counts() (tokenFetches, embedCalls int, authHeaders []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenFetches, f.embedCalls, append([]string(nil), f.authHeaders...)
}

var _ = Describe("Embedder", func() {
	var (
		fake   *fakeGigaChat
		server *httptest.Server
		e      *gigachat.Embedder
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeGigaChat{reject: map[int]bool{}}
		server = httptest.NewServer(fake)

		var err error
		e, err = gigachat.NewEmbedder(gigachat.Config{
			BaseURL:      server.URL + "/api/v1",
			TokenURL:     server.URL + "/oauth",
			ClientID:     "id",
			ClientSecret: "secret",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires client credentials", func() {
		_, err := gigachat.NewEmbedder(gigachat.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("fetches a token once and reuses it", func() {
		for range 3 {
			vec, err := e.Embed(ctx, "масло")
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(Equal([]float32{0.1, 0.2}))
		}

		tokens, calls, headers := fake.counts()
		Expect(tokens).To(Equal(1))
		Expect(calls).To(Equal(3))
		Expect(headers).To(HaveEach("Bearer tok-1"))
		Expect(e.TokenState()).To(Equal(oauth.StateValid))
	})

	It("refreshes the token once after a 401 and retries the same request", func() {
		fake.reject[1] = true

		vec, err := e.Embed(ctx, "масло")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2}))

		tokens, calls, headers := fake.counts()
		Expect(tokens).To(Equal(2))
		Expect(calls).To(Equal(2))
		Expect(headers).To(Equal([]string{"Bearer tok-1", "Bearer tok-2"}))
	})

	It("surfaces an auth error after the single retry without looping", func() {
		fake.reject = map[int]bool{1: true, 2: true, 3: true}

		_, err := e.Embed(ctx, "масло")
		Expect(errors.Is(err, embeddings.ErrAuth)).To(BeTrue())

		tokens, calls, _ := fake.counts()
		Expect(tokens).To(Equal(2))
		Expect(calls).To(Equal(2))
	})

	It("reports an unreachable token endpoint as an auth error", func() {
		broken, err := gigachat.NewEmbedder(gigachat.Config{
			BaseURL:      server.URL + "/api/v1",
			TokenURL:     server.URL + "/missing",
			ClientID:     "id",
			ClientSecret: "secret",
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = broken.Embed(ctx, "масло")
		Expect(errors.Is(err, embeddings.ErrAuth)).To(BeTrue())
		Expect(errors.Is(err, oauth.ErrTokenExchange)).To(BeTrue())
		_, calls, _ := fake.counts()
		Expect(calls).To(BeZero())
	})
})
