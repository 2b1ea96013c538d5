package accountsdk

// TokenResponse is the OAuth2 token endpoint response per RFC 6749, for
// both authorization_code and refresh_token grants.
type TokenResponse struct {
	// AccessToken authenticates API requests.
	AccessToken string `json:"access_token"`

	// RefreshToken obtains new access tokens. May be absent; refresh
	// responses that omit it leave the previous refresh token valid.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is the compact-serialized JWS carrying the OIDC identity
	// claims. Present on code exchanges, usually absent on refreshes.
	IDToken string `json:"id_token,omitempty"`

	// Scope is the space-delimited list of granted scopes.
	Scope string `json:"scope,omitempty"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`
}

// UserTokens is the credential bundle for a logged-in user. It is
// replaced wholesale on refresh, never mutated in place.
type UserTokens struct {
	AccessToken   string        `json:"accessToken"`
	RefreshToken  string        `json:"refreshToken,omitempty"`
	IDToken       string        `json:"idToken"`
	IDTokenClaims IDTokenClaims `json:"idTokenClaims"`
}
