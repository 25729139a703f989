// Package client is a Go mirror of the browser session contract: the
// access token lives in memory, the refresh token rides in the cookie
// jar, and a 401 triggers exactly one coalesced silent renewal before
// the original request is retried once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is returned once renewal fails or a retried request
// is rejected again; the in-memory token is cleared and the caller must
// log in again.
var ErrSessionExpired = errors.New("session expired")

// APIError carries a non-2xx response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Session is the account-plus-token payload returned by the auth endpoints.
type Session struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage"`
	AccessToken  string `json:"accessToken"`
}

// Client talks to the user-service API for the user audience.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu          sync.RWMutex
	accessToken string

	renewals singleflight.Group
}

// New builds a client with its own cookie jar; the refresh cookie is
// never exposed to callers.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Jar: jar},
	}, nil
}

// AccessToken returns the current in-memory access token.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// Register creates an account and establishes a session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	return c.startSession(ctx, "/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
}

// Login authenticates and establishes a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.startSession(ctx, "/auth/login", map[string]string{
		"email": email, "password": password,
	})
}

// Logout clears the refresh cookie server-side and drops the access token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doOnce(ctx, http.MethodPost, "/auth/logout", nil, nil, "")
	c.setAccessToken("")
	return err
}

// Do performs an authenticated request. On a 401 it runs one coalesced
// refresh and retries once; concurrent 401s share the same in-flight
// renewal instead of stampeding the refresh endpoint.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	err := c.doOnce(ctx, method, path, body, out, c.AccessToken())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return err
	}

	token, err := c.renewAccessToken(ctx)
	if err != nil {
		c.setAccessToken("")
		return ErrSessionExpired
	}

	err = c.doOnce(ctx, method, path, body, out, token)
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		c.setAccessToken("")
		return ErrSessionExpired
	}
	return err
}

// Refresh forces a silent renewal, as the browser does on page load to
// re-establish a session before rendering protected views.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", nil, &session, ""); err != nil {
		return nil, err
	}
	c.setAccessToken(session.AccessToken)
	return &session, nil
}

func (c *Client) renewAccessToken(ctx context.Context) (string, error) {
	result, err, _ := c.renewals.Do("refresh", func() (any, error) {
		session, err := c.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		return session.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) startSession(ctx context.Context, path string, body any) (*Session, error) {
	var session Session
	if err := c.doOnce(ctx, http.MethodPost, path, body, &session, ""); err != nil {
		return nil, err
	}
	c.setAccessToken(session.AccessToken)
	return &session, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any, token string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
