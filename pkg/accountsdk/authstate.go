package accountsdk

import (
	"github.com/nordauth/accountsdk/pkg/cryptox"
	"github.com/nordauth/accountsdk/pkg/idx"
)

// AuthState is the ephemeral state of one login attempt: created when
// the login URL is built, persisted at the client's fixed slot, and
// consumed exactly once when the redirect comes back. A new attempt
// overwrites any previous one, so at most one AuthState is outstanding
// per client.
type AuthState struct {
	State        string  `json:"state"`
	Nonce        string  `json:"nonce"`
	CodeVerifier string  `json:"codeVerifier"`
	MFA          MFAType `json:"mfa,omitempty"`

	// AttemptID correlates the two halves of the flow in logs.
	AttemptID idx.ID `json:"attemptId,omitempty"`
}

// newAuthState generates fresh random values for a login attempt.
// Generation is pure; persisting the state is the Client's job.
func newAuthState(mfa MFAType) AuthState {
	return AuthState{
		State:        cryptox.RandomString(cryptox.StateLength),
		Nonce:        cryptox.RandomString(cryptox.NonceLength),
		CodeVerifier: cryptox.RandomString(cryptox.CodeVerifierLength),
		MFA:          mfa,
		AttemptID:    idx.New(),
	}
}

// CodeChallenge derives the S256 challenge sent to the authorization
// endpoint.
func (s AuthState) CodeChallenge() string {
	return cryptox.CodeChallenge(s.CodeVerifier)
}
