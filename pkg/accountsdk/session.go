package accountsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nordauth/accountsdk/pkg/storage"
)

const (
	sessionKeyPrefix    = "session/"
	loginStateKeyPrefix = "login-state/"
)

// UserSession is what survives a process restart: the tokens of the
// last completed login for one client, stamped with when they last
// changed. One slot per client; a new login replaces the old session.
type UserSession struct {
	ClientID   string     `json:"clientId"`
	UserTokens UserTokens `json:"userTokens"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// sessionStore maps sessions and in-flight login state onto a plain
// key-value store, so callers can plug in bbolt, memory, or whatever
// the platform keychain turns out to be.
type sessionStore struct {
	kv  storage.KeyValueStore
	now func() time.Time
}

func (s *sessionStore) save(tokens UserTokens, clientID string) (*UserSession, error) {
	session := UserSession{
		ClientID:   clientID,
		UserTokens: tokens,
		UpdatedAt:  s.now(),
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("accountsdk: encoding session: %w", err)
	}
	if err := s.kv.Set(sessionKeyPrefix+clientID, raw); err != nil {
		return nil, fmt.Errorf("accountsdk: persisting session: %w", err)
	}
	return &session, nil
}

func (s *sessionStore) get(clientID string) (*UserSession, error) {
	raw, err := s.kv.Get(sessionKeyPrefix + clientID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoSessionFound
	}
	if err != nil {
		return nil, fmt.Errorf("accountsdk: reading session: %w", err)
	}

	var session UserSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("accountsdk: decoding session: %w", err)
	}
	return &session, nil
}

func (s *sessionStore) delete(clientID string) error {
	if err := s.kv.Delete(sessionKeyPrefix + clientID); err != nil {
		return fmt.Errorf("accountsdk: deleting session: %w", err)
	}
	return nil
}

// latest returns the most recently updated session across all clients
// sharing the store. Ties on the timestamp go to the smaller client ID
// so the answer is stable.
func (s *sessionStore) latest() (*UserSession, error) {
	keys, err := s.kv.Keys(sessionKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("accountsdk: listing sessions: %w", err)
	}

	var best *UserSession
	for _, key := range keys {
		raw, err := s.kv.Get(key)
		if errors.Is(err, storage.ErrNotFound) {
			continue // deleted between Keys and Get
		}
		if err != nil {
			return nil, fmt.Errorf("accountsdk: reading session: %w", err)
		}

		var session UserSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return nil, fmt.Errorf("accountsdk: decoding session: %w", err)
		}

		if best == nil || session.UpdatedAt.After(best.UpdatedAt) ||
			(session.UpdatedAt.Equal(best.UpdatedAt) && session.ClientID < best.ClientID) {
			copied := session
			best = &copied
		}
	}
	if best == nil {
		return nil, ErrNoSessionFound
	}
	return best, nil
}

func (s *sessionStore) saveAuthState(state AuthState, clientID string) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("accountsdk: encoding login state: %w", err)
	}
	if err := s.kv.Set(loginStateKeyPrefix+clientID, raw); err != nil {
		return fmt.Errorf("accountsdk: persisting login state: %w", err)
	}
	return nil
}

func (s *sessionStore) authState(clientID string) (*AuthState, error) {
	raw, err := s.kv.Get(loginStateKeyPrefix + clientID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("accountsdk: reading login state: %w", err)
	}

	var state AuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("accountsdk: decoding login state: %w", err)
	}
	return &state, nil
}

func (s *sessionStore) clearAuthState(clientID string) error {
	if err := s.kv.Delete(loginStateKeyPrefix + clientID); err != nil {
		return fmt.Errorf("accountsdk: clearing login state: %w", err)
	}
	return nil
}
