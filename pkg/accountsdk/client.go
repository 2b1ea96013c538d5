package accountsdk

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nordauth/accountsdk/pkg/httpx"
	"github.com/nordauth/accountsdk/pkg/jwtx"
	"github.com/nordauth/accountsdk/pkg/storage"
)

// Client is the entry point of the SDK. One Client per configured
// OAuth2 client; users obtained from it share its HTTP client, key
// provider and session store.
type Client struct {
	cfg        Config
	httpClient httpx.Doer
	now        func() time.Time

	tokens   *tokenHandler
	sessions *sessionStore

	refreshGroup singleflight.Group
}

// Option customises a Client at construction time.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every outbound
// request, token endpoint calls included.
func WithHTTPClient(doer httpx.Doer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithKeyProvider replaces the JWKS-backed key provider used to verify
// ID token signatures. Mostly useful in tests.
func WithKeyProvider(keys jwtx.KeyProvider) Option {
	return func(c *Client) { c.tokens.keys = keys }
}

// WithClock injects the time source for ID token expiry checks and
// session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
		c.tokens.now = now
		c.sessions.now = now
	}
}

// NewClient builds a Client for cfg, persisting sessions and in-flight
// login state into store. Sessions survive restarts for as long as the
// store does.
func NewClient(cfg Config, store storage.KeyValueStore, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	c.tokens = &tokenHandler{cfg: cfg, now: time.Now}
	c.sessions = &sessionStore{kv: store, now: time.Now}

	for _, opt := range opts {
		opt(c)
	}

	// The handlers share whatever HTTP client the options landed on.
	c.tokens.httpClient = c.httpClient
	if c.tokens.keys == nil {
		c.tokens.keys = jwtx.NewRemoteKeySet(cfg.JWKSEndpoint(), c.httpClient)
	}
	return c
}

// ResumeLastLoggedInUser rebuilds the user from the session persisted
// for this client, or returns nil when nobody is logged in.
func (c *Client) ResumeLastLoggedInUser() (*User, error) {
	session, err := c.sessions.get(c.cfg.ClientID)
	if errors.Is(err, ErrNoSessionFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return newUser(c, session.UserTokens), nil
}

// CancelLogin discards any login attempt that is waiting for its
// redirect. Responses arriving afterwards are treated as unsolicited.
func (c *Client) CancelLogin() error {
	return c.sessions.clearAuthState(c.cfg.ClientID)
}
