package accountsdk

import "strings"

// Config identifies this app against the identity provider. All fields
// are required.
type Config struct {
	// Issuer is the base URL of the identity provider, with or without a
	// trailing slash.
	Issuer string

	// ClientID is the OAuth2 client ID registered for this app.
	ClientID string

	// RedirectURI is the registered redirect URI the provider sends the
	// user back to after authenticating.
	RedirectURI string
}

// MFAType requests a specific second factor during login. The value is
// passed as acr_values and later expected back in the ID token's amr
// claim.
type MFAType string

const (
	MFATypeOTP MFAType = "otp"
	MFATypeSMS MFAType = "sms"
)

func (c Config) issuerBase() string {
	return strings.TrimRight(c.Issuer, "/")
}

// AuthorizationEndpoint is where browser logins start.
func (c Config) AuthorizationEndpoint() string {
	return c.issuerBase() + "/oauth/authorize"
}

// TokenEndpoint serves authorization_code and refresh_token grants.
func (c Config) TokenEndpoint() string {
	return c.issuerBase() + "/oauth/token"
}

// JWKSEndpoint publishes the provider's signing keys.
func (c Config) JWKSEndpoint() string {
	return c.issuerBase() + "/oauth/jwks"
}

// ExchangeEndpoint trades an existing session's access token for an
// authorization code scoped to another client (simplified login).
func (c Config) ExchangeEndpoint() string {
	return c.issuerBase() + "/api/2/oauth/exchange"
}
