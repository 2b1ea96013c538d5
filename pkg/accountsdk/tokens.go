package accountsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/nordauth/accountsdk/pkg/httpx"
	"github.com/nordauth/accountsdk/pkg/jwtx"
)

// tokenHandler talks to the token endpoint and validates the ID tokens
// it gets back. It is the only place token responses are decoded.
type tokenHandler struct {
	cfg        Config
	httpClient httpx.Doer
	keys       jwtx.KeyProvider
	now        func() time.Time
}

// exchangeAuthCode trades an authorization code for user tokens,
// validating the ID token against the state captured when the login
// attempt started. The state's code verifier proves we initiated the
// attempt, and its nonce must round-trip through the ID token.
func (t *tokenHandler) exchangeAuthCode(ctx context.Context, code string, state AuthState) (*UserTokens, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {state.CodeVerifier},
		"client_id":     {t.cfg.ClientID},
		"redirect_uri":  {t.cfg.RedirectURI},
	}

	resp, err := t.requestTokens(ctx, form)
	if err != nil {
		return nil, err
	}
	if resp.IDToken == "" {
		return nil, ErrMissingIDToken
	}

	vc := idTokenValidationContext{
		issuer:      t.cfg.Issuer,
		clientID:    t.cfg.ClientID,
		nonce:       &state.Nonce,
		expectedAMR: expectedAMR(state.MFA),
	}
	claims, err := validateIDToken(ctx, resp.IDToken, t.keys, vc, t.now)
	if err != nil {
		return nil, err
	}

	return &UserTokens{
		AccessToken:   resp.AccessToken,
		RefreshToken:  resp.RefreshToken,
		IDToken:       resp.IDToken,
		IDTokenClaims: *claims,
	}, nil
}

// exchangeExternalCode trades a code minted outside the PKCE flow, such
// as one obtained through the session exchange endpoint. There is no
// verifier to present and no nonce to expect in the ID token.
func (t *tokenHandler) exchangeExternalCode(ctx context.Context, code string) (*UserTokens, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"client_id":    {t.cfg.ClientID},
		"redirect_uri": {t.cfg.RedirectURI},
	}

	resp, err := t.requestTokens(ctx, form)
	if err != nil {
		return nil, err
	}
	if resp.IDToken == "" {
		return nil, ErrMissingIDToken
	}

	vc := idTokenValidationContext{
		issuer:   t.cfg.Issuer,
		clientID: t.cfg.ClientID,
	}
	claims, err := validateIDToken(ctx, resp.IDToken, t.keys, vc, t.now)
	if err != nil {
		return nil, err
	}

	return &UserTokens{
		AccessToken:   resp.AccessToken,
		RefreshToken:  resp.RefreshToken,
		IDToken:       resp.IDToken,
		IDTokenClaims: *claims,
	}, nil
}

// exchangeRefreshToken performs a refresh_token grant. The response is
// returned as-is; callers decide how to merge it into existing tokens.
func (t *tokenHandler) exchangeRefreshToken(ctx context.Context, refreshToken, scope string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {t.cfg.ClientID},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return t.requestTokens(ctx, form)
}

func (t *tokenHandler) requestTokens(ctx context.Context, form url.Values) (*TokenResponse, error) {
	body, err := httpx.PostForm(ctx, t.httpClient, t.cfg.TokenEndpoint(), form)
	if err != nil {
		return nil, fmt.Errorf("accountsdk: token request failed: %w", err)
	}

	var resp TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("accountsdk: decoding token response: %w", err)
	}
	return &resp, nil
}

// expectedAMR maps an MFA request to the AMR value the ID token must
// carry. No MFA means no AMR requirement.
func expectedAMR(mfa MFAType) string {
	return string(mfa)
}
