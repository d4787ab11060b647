package oauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/oauth"
)

var _ = Describe("TokenCache", func() {
	var (
		server   *httptest.Server
		fetches  atomic.Int32
		reject   atomic.Bool
		expireAt time.Time
		lastReq  *http.Request
		lastForm string
		mu       sync.Mutex
		cache    *oauth.TokenCache
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fetches.Store(0)
		reject.Store(false)
		expireAt = time.Now().Add(30 * time.Minute)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			mu.Lock()
			lastReq = r
			lastForm = r.PostForm.Get("scope")
			mu.Unlock()

			if reject.Load() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":6,"message":"credentials doesn't match db data"}`))
				return
			}

			n := fetches.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": fmt.Sprintf("token-%d", n),
				"expires_at":   expireAt.UnixMilli(),
			})
		}))

		var err error
		cache, err = oauth.NewTokenCache(oauth.Config{
			TokenURL:        server.URL,
			ClientID:        "client",
			ClientSecret:    "secret",
			Scope:           "GIGACHAT_API_PERS",
			RequestIDHeader: "RqUID",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires a token URL and credentials", func() {
		_, err := oauth.NewTokenCache(oauth.Config{ClientID: "a", ClientSecret: "b"})
		Expect(err).To(HaveOccurred())

		_, err = oauth.NewTokenCache(oauth.Config{TokenURL: "http://x"})
		Expect(err).To(HaveOccurred())
	})

	It("starts empty", func() {
		Expect(cache.State()).To(Equal(oauth.StateEmpty))
	})

	It("exchanges client credentials with basic auth, scope and a request id", func() {
		tok, err := cache.Token(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(Equal("token-1"))
		Expect(cache.State()).To(Equal(oauth.StateValid))

		mu.Lock()
		defer mu.Unlock()
		user, pass, ok := lastReq.BasicAuth()
		Expect(ok).To(BeTrue())
		Expect(user).To(Equal("client"))
		Expect(pass).To(Equal("secret"))
		Expect(lastForm).To(Equal("GIGACHAT_API_PERS"))

		_, err = uuid.Parse(lastReq.Header.Get("RqUID"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("reuses a valid token", func() {
		for range 3 {
			tok, err := cache.Token(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(tok).To(Equal("token-1"))
		}
		Expect(fetches.Load()).To(Equal(int32(1)))
	})

	It("renews a token that reached its expires_at", func() {
		_, err := cache.Token(ctx)
		Expect(err).NotTo(HaveOccurred())

		cache.SetClock(func() time.Time { return expireAt.Add(time.Second) })

		tok, err := cache.Token(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(Equal("token-2"))
	})

	It("refreshes a rejected token", func() {
		stale, err := cache.Token(ctx)
		Expect(err).NotTo(HaveOccurred())

		tok, err := cache.Refresh(ctx, stale)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(Equal("token-2"))
		Expect(cache.State()).To(Equal(oauth.StateValid))
	})

	It("does not refresh twice for the same stale token", func() {
		stale, _ := cache.Token(ctx)

		first, err := cache.Refresh(ctx, stale)
		Expect(err).NotTo(HaveOccurred())
		second, err := cache.Refresh(ctx, stale)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(fetches.Load()).To(Equal(int32(2)))
	})

	It("serialises concurrent callers onto one exchange", func() {
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := cache.Token(ctx)
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()
		Expect(fetches.Load()).To(Equal(int32(1)))
	})

	It("reports refused credentials as a token exchange error", func() {
		reject.Store(true)

		_, err := cache.Token(ctx)
		Expect(errors.Is(err, oauth.ErrTokenExchange)).To(BeTrue())
		Expect(cache.State()).To(Equal(oauth.StateEmpty))
	})

	It("assumes the default lifetime when no expiry is returned", func() {
		plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"plain","token_type":"bearer"}`))
		}))
		defer plain.Close()

		c, err := oauth.NewTokenCache(oauth.Config{TokenURL: plain.URL, ClientID: "a", ClientSecret: "b"})
		Expect(err).NotTo(HaveOccurred())

		tok, err := c.Token(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(Equal("plain"))

		c.SetClock(func() time.Time { return time.Now().Add(oauth.DefaultLifetime - time.Minute) })
		Expect(c.State()).To(Equal(oauth.StateValid))
		tok, err = c.Token(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(Equal("plain"))
	})
})
