package accountsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nordauth/accountsdk/pkg/httpx"
)

// codeExchangeResponse is the envelope the exchange endpoint wraps its
// payload in.
type codeExchangeResponse struct {
	Data struct {
		Code string `json:"code"`
	} `json:"data"`
}

// PerformSimplifiedLogin logs the user into this client by reusing the
// most recent session another client persisted into the shared store.
// The donor session's access token buys a one-time authorization code
// scoped to this client, which then goes through the regular code
// exchange. The donor's session is left untouched.
//
// ErrNoSessionFound is returned when no other client has a session to
// borrow.
func (c *Client) PerformSimplifiedLogin(ctx context.Context) (*User, error) {
	donor, err := c.sessions.latest()
	if err != nil {
		return nil, err
	}
	if donor.ClientID == c.cfg.ClientID {
		// Our own session is the newest one. Nothing to exchange; the
		// caller wants ResumeLastLoggedInUser for this.
		return nil, ErrNoSessionFound
	}

	code, err := c.exchangeSessionForCode(ctx, donor)
	if err != nil {
		return nil, err
	}

	tokens, err := c.tokens.exchangeExternalCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if _, err := c.sessions.save(*tokens, c.cfg.ClientID); err != nil {
		return nil, err
	}

	slog.Info("simplified login completed",
		"clientId", c.cfg.ClientID, "donorClientId", donor.ClientID,
		"user", tokens.IDTokenClaims.Sub)

	return newUser(c, *tokens), nil
}

// exchangeSessionForCode asks the authorization server to mint a code
// for this client on the strength of the donor session's access token.
func (c *Client) exchangeSessionForCode(ctx context.Context, donor *UserSession) (string, error) {
	form := url.Values{
		"type":     {"code"},
		"clientId": {c.cfg.ClientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.ExchangeEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("accountsdk: building exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+donor.UserTokens.AccessToken)

	body, err := httpx.Do(c.httpClient, req)
	if err != nil {
		return "", fmt.Errorf("accountsdk: code exchange failed: %w", err)
	}

	var resp codeExchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("accountsdk: decoding code exchange response: %w", err)
	}
	if resp.Data.Code == "" {
		return "", ErrMissingAuthCode
	}
	return resp.Data.Code, nil
}
