// Package authclient is a Go client for the auth HTTP API that keeps the access token fresh.
//
// Requests sent through HTTPClient carry the current access token. On 401 the client refreshes
// once for all concurrent callers using the refresh cookie and retries each request with the new
// token; if the refresh fails the session is dropped and ErrSessionExpired is returned.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrSessionExpired is returned when the refresh token is no longer accepted. Log in again.
var ErrSessionExpired = errors.New("authclient: session expired")

// APIError is a non-2xx response from the auth API.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authclient: %d %s: %s", e.Status, e.Code, e.Message)
}

// User is the account summary returned by the API.
type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Active    bool    `json:"active"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type authResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// Client talks to the auth API and holds the caller's access token and refresh cookie.
type Client struct {
	baseURL string
	jar     *resettableJar
	raw     *http.Client
	authed  *http.Client
	flight  RefreshFlight

	mu          sync.RWMutex
	accessToken string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	base    http.RoundTripper
	timeout time.Duration
}

// WithTransport sets the underlying RoundTripper (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithTimeout sets the per-request timeout of both HTTP clients (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// NewClient returns a Client for the API at baseURL (e.g. "http://localhost:8080").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	o := options{base: http.DefaultTransport, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	jar, err := newResettableJar()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		jar:     jar,
	}
	c.raw = &http.Client{Transport: o.base, Jar: jar, Timeout: o.timeout}
	c.authed = &http.Client{Transport: &Transport{Base: o.base, Client: c}, Jar: jar, Timeout: o.timeout}
	return c, nil
}

// HTTPClient returns an *http.Client that authenticates requests and refreshes on 401.
// Use it for calls to services that accept the access token.
func (c *Client) HTTPClient() *http.Client {
	return c.authed
}

// AccessToken returns the current access token, or "" when logged out.
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

// clearSession drops the access token and the refresh cookie.
func (c *Client) clearSession() {
	c.setAccessToken("")
	c.jar.Reset()
}

// Login authenticates and stores the access token and refresh cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	var out authResponse
	if err := c.call(ctx, c.raw, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.setAccessToken(out.AccessToken)
	return &out.User, nil
}

// Refresh exchanges the refresh cookie for a new access token. Concurrent callers share one
// request. Any failure clears the session and returns ErrSessionExpired.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.flight.GetOrStart(ctx, c.refresh)
}

// refreshAfter refreshes unless the stored token already moved past stale. The check runs inside
// the flight, so a caller that saw a 401 just before another refresh settled reuses its token.
func (c *Client) refreshAfter(ctx context.Context, stale string) (string, error) {
	return c.flight.GetOrStart(ctx, func(ctx context.Context) (string, error) {
		if cur := c.AccessToken(); cur != "" && cur != stale {
			return cur, nil
		}
		return c.refresh(ctx)
	})
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	var out authResponse
	if err := c.call(ctx, c.raw, http.MethodPost, "/auth/refresh", nil, &out); err != nil {
		c.clearSession()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	c.setAccessToken(out.AccessToken)
	return out.AccessToken, nil
}

// Logout revokes the current session and clears local state, even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.clearSession()
	return c.call(ctx, c.authed, http.MethodPost, "/auth/logout", nil, nil)
}

// LogoutAll revokes every session of the account and clears local state.
func (c *Client) LogoutAll(ctx context.Context) error {
	defer c.clearSession()
	return c.call(ctx, c.authed, http.MethodPost, "/auth/logout-all", nil, nil)
}

// Me returns the caller's account, refreshing the access token if needed.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, c.authed, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) call(ctx context.Context, hc *http.Client, method, path string, body []byte, out interface{}) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// resettableJar is a cookie jar that can be emptied while in use.
type resettableJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newResettableJar() (*resettableJar, error) {
	j, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &resettableJar{jar: j}, nil
}

func (r *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.jar.SetCookies(u, cookies)
}

func (r *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jar.Cookies(u)
}

// Reset drops every stored cookie.
func (r *resettableJar) Reset() {
	j, _ := cookiejar.New(nil)
	r.mu.Lock()
	r.jar = j
	r.mu.Unlock()
}
