package jwtx_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nordauth/accountsdk/pkg/jwtx"
)

// jwksServer serves the JWKS it is currently holding and counts fetches.
type jwksServer struct {
	srv     *httptest.Server
	fetches atomic.Int64

	mu   sync.Mutex
	jwks jwtx.JWKS
}

func newJWKSServer(t *testing.T, jwks jwtx.JWKS) *jwksServer {
	t.Helper()

	s := &jwksServer{jwks: jwks}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		s.mu.Lock()
		defer s.mu.Unlock()
		require.NoError(t, json.NewEncoder(w).Encode(s.jwks))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *jwksServer) rotate(jwks jwtx.JWKS) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwks = jwks
}

func generateJWK(t *testing.T, kid string) jwtx.JWK {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtx.NewRSAJWK(kid, "RS256", &priv.PublicKey)
}

func TestRemoteKeySetFetchesOnceAndCaches(t *testing.T) {
	t.Parallel()

	server := newJWKSServer(t, jwtx.JWKS{Keys: []jwtx.JWK{generateJWK(t, "key-1")}})
	keys := jwtx.NewRemoteKeySet(server.srv.URL, server.srv.Client())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := keys.Key(ctx, "key-1")
		require.NoError(t, err)
	}

	require.Equal(t, int64(1), server.fetches.Load())
}

func TestRemoteKeySetRefetchesOnRotation(t *testing.T) {
	t.Parallel()

	server := newJWKSServer(t, jwtx.JWKS{Keys: []jwtx.JWK{generateJWK(t, "key-1")}})
	keys := jwtx.NewRemoteKeySet(server.srv.URL, server.srv.Client())

	ctx := context.Background()
	_, err := keys.Key(ctx, "key-1")
	require.NoError(t, err)

	// Provider rotates its signing key.
	server.rotate(jwtx.JWKS{Keys: []jwtx.JWK{generateJWK(t, "key-2")}})

	_, err = keys.Key(ctx, "key-2")
	require.NoError(t, err)
	require.Equal(t, int64(2), server.fetches.Load())

	// The rotated-away key is gone now.
	_, err = keys.Key(ctx, "key-1")
	require.ErrorIs(t, err, jwtx.ErrUnknownKeyID)
}

func TestRemoteKeySetUnknownKidAfterColdFetch(t *testing.T) {
	t.Parallel()

	server := newJWKSServer(t, jwtx.JWKS{Keys: []jwtx.JWK{generateJWK(t, "key-1")}})
	keys := jwtx.NewRemoteKeySet(server.srv.URL, server.srv.Client())

	_, err := keys.Key(context.Background(), "no-such-kid")
	require.ErrorIs(t, err, jwtx.ErrUnknownKeyID)
	require.Equal(t, int64(1), server.fetches.Load())
}

func TestRemoteKeySetSingleFlight(t *testing.T) {
	t.Parallel()

	jwks := jwtx.JWKS{Keys: []jwtx.JWK{generateJWK(t, "key-1")}}

	// Slow server: every concurrent cold lookup piles up on one in-flight
	// fetch instead of issuing its own.
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, json.NewEncoder(w).Encode(jwks))
	}))
	defer srv.Close()

	keys := jwtx.NewRemoteKeySet(srv.URL, srv.Client())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = keys.Key(context.Background(), "key-1")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), fetches.Load())
}

func TestRemoteKeySetNetworkErrorPropagates(t *testing.T) {
	t.Parallel()

	server := newJWKSServer(t, jwtx.JWKS{})
	server.srv.Close()

	keys := jwtx.NewRemoteKeySet(server.srv.URL, nil)
	_, err := keys.Key(context.Background(), "key-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, jwtx.ErrUnknownKeyID)
}
