// Package oauth caches bearer tokens obtained through an OAuth2 client
// credentials exchange and refreshes them when a backend rejects them.
//
// The cache is a small state machine guarded by one mutex:
//
//	Empty -> Refreshing -> Valid -> Expired -> Refreshing -> Valid
//
// Callers that arrive while a refresh is in flight block on the mutex and
// reuse the token it produced.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrTokenExchange is returned when the token endpoint refuses or fails
// the client credentials exchange.
var ErrTokenExchange = errors.New("token exchange failed")

const (
	// DefaultLifetime applies when the token endpoint reports no expiry.
	DefaultLifetime = 30 * time.Minute

	// expiryDelta renews tokens slightly before they expire.
	expiryDelta = 30 * time.Second
)

// State is the lifecycle state of the cached token.
type State int

const (
	StateEmpty State = iota
	StateValid
	StateExpired
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateRefreshing:
		return "refreshing"
	default:
		return "empty"
	}
}

// Config configures a TokenCache.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	// RequestIDHeader, when set, receives a fresh UUID on every token
	// request (GigaChat requires "RqUID").
	RequestIDHeader string

	// HTTPClient performs the exchange. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Lifetime is assumed when the endpoint returns neither expires_in nor
	// expires_at. Defaults to DefaultLifetime.
	Lifetime time.Duration
}

// TokenCache hands out bearer tokens, exchanging client credentials only
// when no valid token is cached or a backend rejected the current one.
type TokenCache struct {
	creds    clientcredentials.Config
	client   *http.Client
	lifetime time.Duration
	now      func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
	state State
}

// NewTokenCache validates cfg and returns an empty cache.
func NewTokenCache(cfg Config) (*TokenCache, error) {
	if cfg.TokenURL == "" {
		return nil, errors.New("oauth: token URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("oauth: client id and secret are required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.RequestIDHeader != "" {
		next := client.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		wrapped := *client
		wrapped.Transport = &requestIDTransport{header: cfg.RequestIDHeader, next: next}
		client = &wrapped
	}

	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	var scopes []string
	if cfg.Scope != "" {
		scopes = []string{cfg.Scope}
	}

	return &TokenCache{
		creds: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client:   client,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Token returns the cached access token, exchanging credentials first when
// the cache is empty or the token is about to expire.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateValid && c.fresh() {
		return c.token.AccessToken, nil
	}
	if c.state == StateValid {
		c.state = StateExpired
	}
	return c.fetchLocked(ctx)
}

// Refresh is called after a backend rejected stale. It exchanges
// credentials for a new token unless another caller already replaced
// stale, in which case the replacement is returned.
func (c *TokenCache) Refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateValid && c.token.AccessToken != stale && c.fresh() {
		return c.token.AccessToken, nil
	}

	c.state = StateExpired
	return c.fetchLocked(ctx)
}

// State returns the current cache state.
func (c *TokenCache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *TokenCache) fresh() bool {
	return c.token != nil && c.now().Add(expiryDelta).Before(c.token.Expiry)
}

func (c *TokenCache) fetchLocked(ctx context.Context) (string, error) {
	c.state = StateRefreshing

	tok, err := c.creds.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client))
	if err != nil {
		c.token = nil
		c.state = StateEmpty
		return "", fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	if tok.AccessToken == "" {
		c.token = nil
		c.state = StateEmpty
		return "", fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}

	if tok.Expiry.IsZero() {
		tok.Expiry = c.expiryFromExtra(tok)
	}

	c.token = tok
	c.state = StateValid
	return tok.AccessToken, nil
}

// expiryFromExtra reads the millisecond "expires_at" field some providers
// return instead of expires_in.
func (c *TokenCache) expiryFromExtra(tok *oauth2.Token) time.Time {
	var ms int64
	switch v := tok.Extra("expires_at").(type) {
	case float64:
		ms = int64(v)
	case json.Number:
		ms, _ = v.Int64()
	case string:
		ms, _ = strconv.ParseInt(v, 10, 64)
	}

	if ms > 0 {
		return time.UnixMilli(ms)
	}
	return c.now().Add(c.lifetime)
}

type requestIDTransport struct {
	header string
	next   http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(t.header, uuid.NewString())
	return t.next.RoundTrip(req)
}
