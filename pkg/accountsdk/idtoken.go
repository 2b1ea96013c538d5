package accountsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nordauth/accountsdk/pkg/jwtx"
)

// IDTokenClaims are the OIDC claims we parse out of a verified ID token.
// Sub is the stable user identifier.
type IDTokenClaims struct {
	Sub   string           `json:"sub"`
	Iss   string           `json:"iss"`
	Aud   jwt.ClaimStrings `json:"aud"`
	Exp   *jwt.NumericDate `json:"exp"`
	Nonce *string          `json:"nonce,omitempty"`
	AMR   []string         `json:"amr,omitempty"`
}

// idTokenValidationContext carries the expectations a particular login
// attempt imposes on the ID token.
type idTokenValidationContext struct {
	issuer   string
	clientID string
	nonce    *string // nil means the attempt carried no nonce
	// expectedAMR is the MFA method the login requested, empty for none.
	expectedAMR string
}

// validateIDToken verifies the token's signature against the key set and
// then applies the OIDC checks from
// https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
// in a fixed order; the first failing check short-circuits.
func validateIDToken(ctx context.Context, idToken string, keys jwtx.KeyProvider, vc idTokenValidationContext, now func() time.Time) (*IDTokenClaims, error) {
	payload, err := jwtx.VerifySignature(ctx, idToken, keys)
	if err != nil {
		return nil, fmt.Errorf("accountsdk: id token signature validation failed: %w", err)
	}

	var claims IDTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrFailedToDecodePayload
	}

	// A single trailing slash on either side is not a mismatch; providers
	// are not consistent about it.
	if trimTrailingSlash(claims.Iss) != trimTrailingSlash(vc.issuer) {
		return nil, ErrInvalidIssuer
	}

	if !slices.Contains(claims.Aud, vc.clientID) {
		return nil, ErrInvalidAudience
	}

	if claims.Exp == nil || !claims.Exp.After(now()) {
		return nil, ErrExpired
	}

	if !nonceMatches(claims.Nonce, vc.nonce) {
		return nil, ErrInvalidNonce
	}

	if !amrContains(claims.AMR, vc.expectedAMR) {
		// Soft failure at this layer: logged and reported typed, the flow
		// controller decides whether it kills the login.
		slog.Info("requested AMR value was not fulfilled",
			"amr", claims.AMR, "expected", vc.expectedAMR)
		return nil, ErrMissingExpectedAMRValue
	}

	return &claims, nil
}

// nonceMatches treats two absent nonces as a match; an absent nonce on
// either side alone is a mismatch.
func nonceMatches(got, want *string) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	return *got == *want
}

// amrContains passes when nothing is expected. An expectation against an
// absent amr claim fails.
func amrContains(values []string, expected string) bool {
	if expected == "" {
		return true
	}
	return slices.Contains(values, expected)
}

func trimTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
