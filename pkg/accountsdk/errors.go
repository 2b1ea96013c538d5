package accountsdk

import (
	"errors"
	"fmt"
)

// Protocol errors: terminal for the login attempt they occur in.
var (
	// ErrUnsolicitedResponse reports a redirect whose state does not match
	// any persisted login attempt. No network call has been made when this
	// is returned.
	ErrUnsolicitedResponse = errors.New("accountsdk: unsolicited authentication response")

	// ErrMissingAuthCode reports a redirect that carried neither a code
	// nor an error from the provider.
	ErrMissingAuthCode = errors.New("accountsdk: missing authorization code in authentication response")

	// ErrMissingIDToken reports a code-exchange response without an
	// id_token, which a login flow cannot proceed without.
	ErrMissingIDToken = errors.New("accountsdk: token response missing id_token")

	// ErrMissingExpectedMFA reports a login that completed without the
	// requested MFA method showing up in the ID token's amr claim.
	ErrMissingExpectedMFA = errors.New("accountsdk: expected MFA was not performed")

	// ErrNoSessionFound reports that simplified login found no other
	// client's session in shared storage.
	ErrNoSessionFound = errors.New("accountsdk: no user sessions found")

	// ErrNoRefreshToken reports a refresh attempt for a user whose
	// credential bundle has no refresh token.
	ErrNoRefreshToken = errors.New("accountsdk: user has no refresh token")
)

// ID token validation errors, one per check. Validation failures are
// never retried; a bad token stays bad.
var (
	ErrFailedToDecodePayload   = errors.New("accountsdk: failed to decode id token payload")
	ErrInvalidIssuer           = errors.New("accountsdk: id token issuer mismatch")
	ErrInvalidAudience         = errors.New("accountsdk: id token audience mismatch")
	ErrExpired                 = errors.New("accountsdk: id token expired")
	ErrInvalidNonce            = errors.New("accountsdk: id token nonce mismatch")
	ErrMissingExpectedAMRValue = errors.New("accountsdk: id token missing expected amr value")
)

// AuthenticationError is the provider's own error response delivered on
// the redirect URI (error and error_description query parameters).
type AuthenticationError struct {
	Code        string
	Description string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("accountsdk: authentication error %s: %s", e.Code, e.Description)
}

// RefreshError reports a failed refresh-token exchange. It is distinct
// from the failure of the request that triggered the refresh so callers
// can tell "session is dead, log in again" from "transient failure, try
// later". The wrapped error carries the transport detail.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("accountsdk: token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
