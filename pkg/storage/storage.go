// Package storage abstracts the persisted key-value store the SDK keeps
// its sessions and ephemeral login state in. Implementations are assumed
// to already provide confidentiality (keychain, encrypted file, ...);
// the SDK does not encrypt values itself.
package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound reports a missing key.
var ErrNotFound = errors.New("storage: key not found")

// KeyValueStore is the persistence interface the SDK is written against.
type KeyValueStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns all keys with the given prefix, sorted ascending.
	Keys(prefix string) ([]string, error)
}

// MemStore is an in-memory KeyValueStore. Good for tests and for apps
// that explicitly opt out of persistence.
type MemStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string][]byte)}
}

func (s *MemStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Copy so callers can't mutate the stored value behind our back.
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *MemStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
