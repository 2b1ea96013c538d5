package accountsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nordauth/accountsdk/pkg/cryptox"
)

// LoginOptions tweaks a single login attempt.
type LoginOptions struct {
	// ExtraScopes are requested on top of the mandatory "openid" scope.
	// Duplicates are harmless.
	ExtraScopes []string

	// MFA, when set, forces the authorization server to run that second
	// factor. Logins completing without it are rejected.
	MFA MFAType
}

// LoginURL starts a login attempt: it generates fresh state, nonce and
// PKCE verifier, persists them for the redirect handler, and returns
// the authorization endpoint URL to open in the user's browser.
func (c *Client) LoginURL(opts LoginOptions) (string, error) {
	state := newAuthState(opts.MFA)
	if err := c.sessions.saveAuthState(state, c.cfg.ClientID); err != nil {
		return "", err
	}

	scopes := append([]string{"openid"}, opts.ExtraScopes...)

	query := url.Values{
		"client_id":             {c.cfg.ClientID},
		"redirect_uri":          {c.cfg.RedirectURI},
		"response_type":         {"code"},
		"state":                 {state.State},
		"scope":                 {strings.Join(scopes, " ")},
		"nonce":                 {state.Nonce},
		"code_challenge":        {state.CodeChallenge()},
		"code_challenge_method": {cryptox.CodeChallengeMethod},
	}
	if opts.MFA != "" {
		query.Set("acr_values", string(opts.MFA))
	} else {
		// Without an MFA requirement the user gets to pick the account,
		// instead of silently reusing whatever web session exists.
		query.Set("prompt", "select_account")
	}

	slog.Info("starting login attempt",
		"clientId", c.cfg.ClientID, "attemptId", state.AttemptID)

	return c.cfg.AuthorizationEndpoint() + "?" + query.Encode(), nil
}

// HandleAuthenticationResponse finishes a login attempt from the
// redirect the browser came back with. The redirect's state must match
// the pending attempt before anything touches the network; responses
// that don't match are dropped as unsolicited.
func (c *Client) HandleAuthenticationResponse(ctx context.Context, redirectURL string) (*User, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("accountsdk: parsing redirect url: %w", err)
	}
	query := parsed.Query()

	state, err := c.sessions.authState(c.cfg.ClientID)
	if err != nil {
		return nil, err
	}
	if state == nil || query.Get("state") != state.State {
		return nil, ErrUnsolicitedResponse
	}

	// The attempt is consumed no matter how the exchange goes; a replay
	// of the same redirect is unsolicited.
	if err := c.sessions.clearAuthState(c.cfg.ClientID); err != nil {
		return nil, err
	}

	if errCode := query.Get("error"); errCode != "" {
		return nil, &AuthenticationError{
			Code:        errCode,
			Description: query.Get("error_description"),
		}
	}

	code := query.Get("code")
	if code == "" {
		return nil, ErrMissingAuthCode
	}

	tokens, err := c.tokens.exchangeAuthCode(ctx, code, *state)
	if errors.Is(err, ErrMissingExpectedAMRValue) && state.MFA != "" {
		// The server logged the user in without the second factor we
		// demanded. That login is no good to us.
		return nil, ErrMissingExpectedMFA
	}
	if err != nil {
		return nil, err
	}

	if _, err := c.sessions.save(*tokens, c.cfg.ClientID); err != nil {
		return nil, err
	}

	slog.Info("login attempt completed",
		"clientId", c.cfg.ClientID, "attemptId", state.AttemptID,
		"user", tokens.IDTokenClaims.Sub)

	return newUser(c, *tokens), nil
}
