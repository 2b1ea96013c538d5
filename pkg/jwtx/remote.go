package jwtx

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nordauth/accountsdk/pkg/httpx"
)

// RemoteKeySet resolves verification keys from the identity provider's
// JWKS endpoint. Keys are fetched once and cached for the lifetime of
// the instance. A lookup miss on a warm cache triggers exactly one
// re-fetch, so key rotation is picked up without restarting; repeated
// misses are throttled so an attacker probing with bogus kids cannot
// stampede the keys endpoint.
type RemoteKeySet struct {
	url    string
	client httpx.Doer

	cache *KeySet
	group singleflight.Group

	mu      sync.Mutex
	fetched bool
	refetch *rate.Limiter
}

// NewRemoteKeySet builds a key set backed by the given JWKS URL.
// If client is nil, http.DefaultClient is used.
func NewRemoteKeySet(jwksURL string, client httpx.Doer) *RemoteKeySet {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteKeySet{
		url:    jwksURL,
		client: client,
		cache:  NewKeySet(),
		// One rotation re-fetch every 30s with a small burst. Generous for
		// real rotations, tight enough to stop probing.
		refetch: rate.NewLimiter(rate.Every(30*time.Second), 2),
	}
}

// Key resolves kid, fetching or re-fetching the remote key set as needed.
// Returns ErrUnknownKeyID when the kid is absent from the freshest set we
// are willing to fetch.
func (s *RemoteKeySet) Key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	if key, err := s.cache.Key(ctx, kid); err == nil {
		return key, nil
	}

	s.mu.Lock()
	warm := s.fetched
	s.mu.Unlock()

	if !warm {
		if err := s.fetch(ctx); err != nil {
			return nil, err
		}
		return s.cache.Key(ctx, kid)
	}

	// Warm-cache miss: the provider may have rotated its keys since we
	// fetched. One re-fetch, rate-limited, then give up.
	if !s.refetch.Allow() {
		return nil, ErrUnknownKeyID
	}

	slog.Debug("jwks cache miss, re-fetching key set", "kid", kid, "url", s.url)
	if err := s.fetch(ctx); err != nil {
		return nil, err
	}
	return s.cache.Key(ctx, kid)
}

// fetch retrieves and installs the remote key set. Concurrent callers
// share a single network call.
func (s *RemoteKeySet) fetch(ctx context.Context) error {
	_, err, _ := s.group.Do("jwks", func() (any, error) {
		var jwks JWKS
		if err := httpx.GetJSON(ctx, s.client, s.url, &jwks); err != nil {
			return nil, fmt.Errorf("jwtx: failed to fetch jwks from %s: %w", s.url, err)
		}

		if err := s.cache.ResetFromJWKS(jwks); err != nil {
			return nil, fmt.Errorf("jwtx: failed to parse jwks: %w", err)
		}

		s.mu.Lock()
		s.fetched = true
		s.mu.Unlock()
		return nil, nil
	})
	return err
}
