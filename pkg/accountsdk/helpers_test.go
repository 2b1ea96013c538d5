package accountsdk_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/nordauth/accountsdk/pkg/accountsdk"
	"github.com/nordauth/accountsdk/pkg/jwtx"
	"github.com/nordauth/accountsdk/pkg/storage"
)

const (
	testKid         = "test-key"
	testSub         = "user-uuid-1"
	testRedirectURI = "app://login-callback"
)

// fakeIDP is an httptest-backed identity provider serving the token,
// jwks and session-exchange endpoints. Behaviour knobs and call counts
// are all guarded by mu so tests can hammer it concurrently.
type fakeIDP struct {
	t   *testing.T
	key *rsa.PrivateKey
	srv *httptest.Server

	mu            sync.Mutex
	tokenCalls    int
	refreshCalls  int
	exchangeCalls int

	nonce          string // echoed into minted ID tokens, empty for none
	amr            []string
	sub            string
	omitIDToken    bool
	omitRefresh    bool
	failRefresh    bool
	refreshDelay   time.Duration
	accessTokenSeq int
	expectedCode   string
	exchangedCode  string
}

func newFakeIDP(t *testing.T) *fakeIDP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIDP{
		t:             t,
		key:           key,
		sub:           testSub,
		expectedCode:  "valid-code",
		exchangedCode: "exchanged-code",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", idp.handleToken)
	mux.HandleFunc("/oauth/jwks", idp.handleJWKS)
	mux.HandleFunc("/api/2/oauth/exchange", idp.handleExchange)
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)

	return idp
}

func (f *fakeIDP) issuer() string { return f.srv.URL }

func (f *fakeIDP) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	jwks := jwtx.JWKS{Keys: []jwtx.JWK{
		jwtx.NewRSAJWK(testKid, "RS256", &f.key.PublicKey),
	}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jwks) //nolint:errcheck
}

func (f *fakeIDP) handleToken(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		f.handleCodeGrant(w, r)
	case "refresh_token":
		f.handleRefreshGrant(w, r)
	default:
		http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
	}
}

func (f *fakeIDP) handleCodeGrant(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tokenCalls++
	code := r.PostForm.Get("code")
	ok := code == f.expectedCode || code == f.exchangedCode
	resp := map[string]any{
		"access_token": f.nextAccessToken(),
		"expires_in":   3600,
	}
	if !f.omitRefresh {
		resp["refresh_token"] = "refresh-1"
	}
	if !f.omitIDToken {
		resp["id_token"] = f.mintIDToken(r.PostForm.Get("client_id"))
	}
	f.mu.Unlock()

	if !ok {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (f *fakeIDP) handleRefreshGrant(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.refreshCalls++
	fail := f.failRefresh
	delay := f.refreshDelay
	resp := map[string]any{
		"access_token":  f.nextAccessToken(),
		"refresh_token": "refresh-2",
		"expires_in":    3600,
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (f *fakeIDP) handleExchange(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.exchangeCalls++
	code := f.exchangedCode
	f.mu.Unlock()

	if r.Header.Get("Authorization") == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	require.NoError(f.t, r.ParseForm())
	require.Equal(f.t, "code", r.PostForm.Get("type"))
	require.NotEmpty(f.t, r.PostForm.Get("clientId"))

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":{"code":%q}}`, code)
}

// nextAccessToken must be called with mu held.
func (f *fakeIDP) nextAccessToken() string {
	f.accessTokenSeq++
	return fmt.Sprintf("access-%d", f.accessTokenSeq)
}

// mintIDToken must be called with mu held.
func (f *fakeIDP) mintIDToken(audience string) string {
	claims := jwt.MapClaims{
		"sub": f.sub,
		"iss": f.srv.URL,
		"aud": audience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if f.nonce != "" {
		claims["nonce"] = f.nonce
	}
	if len(f.amr) > 0 {
		claims["amr"] = f.amr
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid

	signed, err := token.SignedString(f.key)
	require.NoError(f.t, err)
	return signed
}

func (f *fakeIDP) counts() (token, refresh, exchange int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.refreshCalls, f.exchangeCalls
}

func newTestClient(t *testing.T, idp *fakeIDP, clientID string, store storage.KeyValueStore) *accountsdk.Client {
	t.Helper()

	if store == nil {
		store = storage.NewMemStore()
	}
	cfg := accountsdk.Config{
		Issuer:      idp.issuer(),
		ClientID:    clientID,
		RedirectURI: testRedirectURI,
	}
	return accountsdk.NewClient(cfg, store,
		accountsdk.WithHTTPClient(idp.srv.Client()))
}

// completeLogin runs the whole browserless login dance against the fake
// provider and returns the resulting user.
func completeLogin(t *testing.T, client *accountsdk.Client, idp *fakeIDP, opts accountsdk.LoginOptions) *accountsdk.User {
	t.Helper()

	loginURL, err := client.LoginURL(opts)
	require.NoError(t, err)

	query := parseQuery(t, loginURL)
	idp.mu.Lock()
	idp.nonce = query.Get("nonce")
	idp.mu.Unlock()

	redirect := testRedirectURI + "?state=" + url.QueryEscape(query.Get("state")) +
		"&code=" + idp.expectedCode
	user, err := client.HandleAuthenticationResponse(context.Background(), redirect)
	require.NoError(t, err)
	return user
}

func parseQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query()
}
