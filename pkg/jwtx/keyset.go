package jwtx

import (
	"context"
	"crypto"
	"errors"
	"sync"
)

// ErrUnknownKeyID reports a kid with no matching key, after any re-fetch
// the provider was willing to do.
var ErrUnknownKeyID = errors.New("jwtx: unknown kid")

// KeyProvider resolves a verification key by its kid. Implementations may
// hit the network, so lookups take a context.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// KeySet is a static, in-memory KeyProvider. It backs RemoteKeySet's
// cache and serves callers that pin their provider keys.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]crypto.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]crypto.PublicKey)}
}

// AddJWK parses a JWK into a crypto key and registers it under its kid.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := j.PublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[j.Kid] = key
	return nil
}

// Key returns the key registered under kid, or ErrUnknownKeyID.
func (k *KeySet) Key(_ context.Context, kid string) (crypto.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrUnknownKeyID
}

// ResetFromJWKS replaces all keys with the contents of a freshly fetched
// key set. The swap is atomic: concurrent lookups see either the old set
// or the new one, never a half-built map.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	next := make(map[string]crypto.PublicKey, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := j.PublicKey()
		if err != nil {
			return err
		}
		next[j.Kid] = key
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = next
	return nil
}
