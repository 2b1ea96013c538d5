package accountsdk

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// retryWithRefresh is the request path behind User.Request. Exactly one
// refresh-and-replay happens per 401; if the replay comes back 401 too,
// that response simply goes to the caller.
func (c *Client) retryWithRefresh(u *User, req *http.Request) (*http.Response, error) {
	resp, err := u.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// The retry replaces this response. Drain it so the transport can
	// reuse the connection.
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	if err := c.RefreshTokens(req.Context(), u); err != nil {
		return nil, err
	}
	return u.send(req)
}

// RefreshTokens exchanges the user's refresh token for fresh tokens and
// persists them. Concurrent calls for the same user collapse into one
// token request; everyone gets the outcome of that single exchange.
func (c *Client) RefreshTokens(ctx context.Context, u *User) error {
	_, err, _ := c.refreshGroup.Do(u.uuid, func() (any, error) {
		return nil, c.refreshWithoutRetry(ctx, u)
	})
	return err
}

func (c *Client) refreshWithoutRetry(ctx context.Context, u *User) error {
	current := u.Tokens()
	if current == nil {
		return ErrUserLoggedOut
	}
	if current.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	resp, err := c.tokens.exchangeRefreshToken(ctx, current.RefreshToken, "")
	if err != nil {
		slog.Info("failed to refresh tokens", "user", u.uuid, "error", err)
		return &RefreshError{Err: err}
	}

	// The refresh grant does not reissue an ID token; the identity from
	// the login sticks around.
	updated := *current
	updated.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		updated.RefreshToken = resp.RefreshToken
	}

	if _, err := c.sessions.save(updated, c.cfg.ClientID); err != nil {
		return err
	}
	u.setTokens(updated)
	return nil
}
