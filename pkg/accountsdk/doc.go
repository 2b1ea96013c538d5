// Package accountsdk is a client SDK for a single-sign-on identity
// provider speaking OAuth2 Authorization Code + PKCE with OIDC ID
// tokens.
//
// The Client is the entry point. It builds browser login URLs, handles
// the redirect coming back, validates the ID token against the
// provider's published JWKS, and persists the resulting session in a
// caller-supplied key-value store:
//
//	store, _ := storage.OpenBoltStore("sessions.db")
//	client := accountsdk.NewClient(accountsdk.Config{
//		Issuer:      "https://id.example.com",
//		ClientID:    "my-client",
//		RedirectURI: "com.example.app:/callback",
//	}, store)
//
//	loginURL, _ := client.LoginURL(accountsdk.LoginOptions{})
//	// ... user authenticates in a browser, app receives the redirect ...
//	user, err := client.HandleAuthenticationResponse(ctx, redirectURL)
//
// The returned User wraps the credential bundle. User.Request issues
// authenticated API calls with transparent refresh-and-retry-once
// semantics: an HTTP 401 triggers a single-flight refresh-token
// exchange followed by exactly one replay of the original request.
// Anything else is handed back to the caller untouched.
//
// Sessions survive restarts: ResumeLastLoggedInUser restores the
// persisted session without any network traffic, and
// PerformSimplifiedLogin signs a user into this client by exchanging
// another client's session from shared storage, skipping the browser
// round-trip entirely.
package accountsdk
