package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const userAgent = "toasts (+https://github.com/toasts-app/toasts)"

// credentials is the basic-auth pair attached by authRoundTripper. It is set
// once by Authenticate and only read afterwards.
type credentials struct {
	username string
	password string
}

func (c *credentials) set(username, password string) {
	c.username, c.password = username, password
}

func (c *credentials) get() (string, string, bool) {
	return c.username, c.password, c.username != "" || c.password != ""
}

// authRoundTripper injects the session's credentials into every request.
type authRoundTripper struct {
	base  http.RoundTripper
	creds *credentials
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	if u, p, ok := t.creds.get(); ok {
		req.SetBasicAuth(u, p)
	}
	return t.base.RoundTrip(req)
}

// session is the per-client HTTP state reused across fetches: one connection
// pool, the credentials, and the last Last-Modified value seen.
type session struct {
	client       *http.Client
	creds        *credentials
	lastModified string
}

// newSession builds a session whose requests are bounded by timeout.
func newSession(timeout time.Duration) *session {
	creds := &credentials{}
	return &session{
		client: &http.Client{
			Transport: &authRoundTripper{base: http.DefaultTransport.(*http.Transport).Clone(), creds: creds},
			Timeout:   timeout,
		},
		creds: creds,
	}
}

// get performs a conditional GET: when a previous response carried
// Last-Modified it is sent back as If-Modified-Since.
func (s *session) get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if s.lastModified != "" {
		req.Header.Set("If-Modified-Since", s.lastModified)
	}

	return s.client.Do(req)
}

// remember stores resp's Last-Modified for the next conditional GET. Callers
// invoke it only once the response body has been consumed successfully.
func (s *session) remember(resp *http.Response) {
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		s.lastModified = lm
	}
}
