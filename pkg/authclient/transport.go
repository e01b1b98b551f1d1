package authclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Transport attaches the client's access token and, on 401, refreshes once through the client's
// RefreshFlight and retries the request with the new token.
type Transport struct {
	// Base performs the requests; http.DefaultTransport when nil.
	Base   http.RoundTripper
	Client *Client
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	token := t.Client.AccessToken()
	resp, err := t.base().RoundTrip(withToken(req, token, body))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	next := t.Client.AccessToken()
	switch {
	case next == "":
		// never logged in, or another waiter's refresh already failed
		return nil, ErrSessionExpired
	case next == token:
		next, err = t.Client.refreshAfter(req.Context(), token)
		if err != nil {
			return nil, err
		}
	}
	return t.base().RoundTrip(withToken(req, next, body))
}

// replayableBody buffers the request body so it can be sent twice. Returns nil for no body.
func replayableBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return b, nil
}

func withToken(req *http.Request, token string, body []byte) *http.Request {
	r := req.Clone(req.Context())
	if body != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
		r.ContentLength = int64(len(body))
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}
