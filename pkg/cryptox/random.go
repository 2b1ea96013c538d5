package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
)

// Standard lengths for the random values used in the login flow.
const (
	// StateLength is the length of the OAuth2 state parameter.
	StateLength = 10
	// NonceLength is the length of the OIDC nonce claim value.
	NonceLength = 10
	// CodeVerifierLength is the length of the PKCE code verifier.
	// RFC 7636 requires at least 43 characters; we generate 60.
	CodeVerifierLength = 60
)

// CodeChallengeMethod is the only challenge method we support.
const CodeChallengeMethod = "S256"

// alphabet for random strings. Alphanumeric only, so every generated value
// is safe in URLs, form bodies and JSON without escaping. Also a strict
// subset of the RFC 7636 unreserved character set.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns a cryptographically random alphanumeric string of
// length n. It panics if the system CSPRNG fails, which is unrecoverable
// anyway.
func RandomString(n int) string {
	max := big.NewInt(int64(len(alphabet)))

	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("cryptox: csprng failure: " + err.Error())
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

// CodeChallenge derives the PKCE S256 code challenge from a code verifier:
// BASE64URL(SHA256(verifier)), no padding, per RFC 7636.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
