package accountsdk

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// User represents an authenticated end user of one client. It carries
// the tokens from the login and keeps them fresh: requests sent through
// it are retried once behind a token refresh when the server rejects
// the access token.
//
// A User whose tokens have been cleared by Logout is logged out; using
// it afterwards returns ErrUserLoggedOut.
type User struct {
	client *Client
	uuid   string

	mu     sync.Mutex
	tokens *UserTokens // nil once logged out
}

// ErrUserLoggedOut is returned when a request is made through a user
// that has logged out.
var ErrUserLoggedOut = errors.New("accountsdk: user is logged out")

func newUser(client *Client, tokens UserTokens) *User {
	return &User{
		client: client,
		uuid:   tokens.IDTokenClaims.Sub,
		tokens: &tokens,
	}
}

// UUID is the subject identifier from the user's ID token. It stays
// valid after logout.
func (u *User) UUID() string {
	return u.uuid
}

// Tokens returns a copy of the user's current tokens, or nil when the
// user is logged out.
func (u *User) Tokens() *UserTokens {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tokens == nil {
		return nil
	}
	copied := *u.tokens
	return &copied
}

// IsLoggedIn reports whether the user still holds tokens.
func (u *User) IsLoggedIn() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens != nil
}

// Equal reports whether two users represent the same person, logged
// into the same client, with the same tokens. Two logged-out users of
// one client with the same UUID are equal.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	if u.uuid != other.uuid || u.client.cfg.ClientID != other.client.cfg.ClientID {
		return false
	}

	a, b := u.Tokens(), other.Tokens()
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.AccessToken == b.AccessToken &&
		a.IDToken == b.IDToken &&
		a.RefreshToken == b.RefreshToken
}

// Logout clears the user's tokens and removes the persisted session.
// The user object is unusable for requests afterwards.
func (u *User) Logout() error {
	u.mu.Lock()
	u.tokens = nil
	u.mu.Unlock()
	return u.client.sessions.delete(u.client.cfg.ClientID)
}

// setTokens replaces the user's tokens after a successful refresh.
func (u *User) setTokens(tokens UserTokens) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tokens != nil {
		*u.tokens = tokens
	}
}

// Request sends req with the user's access token as a Bearer credential.
// When the server answers 401 the tokens are refreshed and the request
// is replayed exactly once with the new access token; any other status
// is returned untouched. Requests with a body must be replayable, which
// http.NewRequest arranges for the common body types via GetBody.
func (u *User) Request(req *http.Request) (*http.Response, error) {
	return u.client.retryWithRefresh(u, req)
}

// send performs one attempt of req with the current access token. The
// request is cloned so the retry after a refresh starts from a pristine
// request.
func (u *User) send(req *http.Request) (*http.Response, error) {
	u.mu.Lock()
	tokens := u.tokens
	u.mu.Unlock()
	if tokens == nil {
		return nil, ErrUserLoggedOut
	}

	attempt := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("accountsdk: rewinding request body: %w", err)
		}
		attempt.Body = body
	}
	attempt.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	return u.client.httpClient.Do(attempt)
}
