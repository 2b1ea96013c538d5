// Package httpx holds the client-side HTTP plumbing shared by the SDK:
// a minimal transport interface, the typed error-response type, and
// helpers for form posts and JSON decoding.
//
// Transport failures come in two flavours and callers need to tell them
// apart: a network-level error (connection refused, timeout, DNS) is
// returned as a wrapped plain error, while an HTTP error response from
// the server is returned as a *ResponseError carrying the status code
// and raw body. Nothing is ever swallowed.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Doer is the minimal transport interface. *http.Client satisfies it;
// tests substitute counting fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResponseError is an HTTP error response (non-2xx) with its body intact.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("httpx: error response %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is an HTTP 401 error response.
// Network errors and other statuses return false.
func IsUnauthorized(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusUnauthorized
}

// Do executes req and returns the response body. A network failure is
// returned wrapped; a non-2xx status is returned as *ResponseError.
func Do(doer Doer, req *http.Request) ([]byte, error) {
	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpx: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpx: failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// PostForm sends a form-encoded POST and returns the response body,
// with the same error split as Do.
func PostForm(ctx context.Context, doer Doer, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("httpx: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return Do(doer, req)
}

// GetJSON performs a GET and decodes the JSON response into target.
func GetJSON(ctx context.Context, doer Doer, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("httpx: failed to create request: %w", err)
	}

	body, err := Do(doer, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("httpx: failed to decode response: %w", err)
	}
	return nil
}
