// Package apiclient talks to the sentient-inbox backend REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

// AuthError means the backend rejected the credentials (HTTP 401).
type AuthError struct {
	Path    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Path, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Detail)
}

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() string
}

// Client is a thin HTTP client for the backend. Calls that need a session
// read the bearer token from the TokenSource on every request.
type Client struct {
	baseURL    string
	clientID   string
	redirect   string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL, clientID, redirectURI string, tokens TokenSource) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		redirect: redirectURI,
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: 3,
	}
}

// ExchangeCode trades an authorization code for a backend bearer token.
// It implements auth.Exchanger.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	var resp model.TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/google", model.ExchangeRequest{
		Code:        code,
		ClientID:    c.clientID,
		RedirectURI: c.redirect,
	}, &resp, false)
	if err != nil {
		return "", fmt.Errorf("exchanging code: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("exchanging code: response carried no access_token")
	}
	return resp.AccessToken, nil
}

// Logout deletes the backend session the bearer token names.
func (c *Client) Logout(ctx context.Context) error {
	var resp model.MessageResponse
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, &resp, true)
}

// Profile returns the signed-in mailbox.
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListEmails returns up to max inbox messages, newest first.
func (c *Client) ListEmails(ctx context.Context, max int) ([]model.Email, error) {
	path := "/emails/"
	if max > 0 {
		path += "?max_results=" + strconv.Itoa(max)
	}
	var emails []model.Email
	if err := c.do(ctx, http.MethodGet, path, nil, &emails, true); err != nil {
		return nil, err
	}
	return emails, nil
}

// MarkRead removes the UNREAD label from a message.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	var resp model.MessageResponse
	return c.do(ctx, http.MethodPost, "/emails/"+url.PathEscape(id)+"/read", nil, &resp, true)
}

// Analysis returns the AI analysis of one message.
func (c *Client) Analysis(ctx context.Context, id string) (*model.Analysis, error) {
	var a model.Analysis
	if err := c.do(ctx, http.MethodGet, "/emails/"+url.PathEscape(id)+"/analysis", nil, &a, true); err != nil {
		return nil, err
	}
	return &a, nil
}

// Insights summarises the most recent maxEmails messages.
func (c *Client) Insights(ctx context.Context, maxEmails int) (*model.Insights, error) {
	path := "/ai/insights"
	if maxEmails > 0 {
		path += "?max_emails=" + strconv.Itoa(maxEmails)
	}
	var in model.Insights
	if err := c.do(ctx, http.MethodGet, path, nil, &in, true); err != nil {
		return nil, err
	}
	return &in, nil
}

// Health pings the backend.
func (c *Client) Health(ctx context.Context) error {
	var h model.Health
	return c.do(ctx, http.MethodGet, "/health", nil, &h, false)
}

// do builds the request, attaches the bearer token when authed is set,
// retries on 429 and decodes the JSON response into result.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	result any,
	authed bool,
) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var token string
	if authed {
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return &AuthError{Path: path, Message: "not signed in"}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &AuthError{Path: path, Message: errorDetail(respBody)}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{
				StatusCode: resp.StatusCode,
				Method:     method,
				Path:       path,
				Detail:     errorDetail(respBody),
			}
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// errorDetail extracts a message from the backend error envelope, falling
// back to the raw body.
func errorDetail(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &env) == nil {
		switch {
		case env.Message != "":
			return env.Message
		case env.Detail != "":
			return env.Detail
		case env.Error != "":
			return env.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// retryAfterDuration reads Retry-After, falling back to exponential backoff.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
