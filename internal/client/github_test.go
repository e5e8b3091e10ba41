package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/toasts-app/toasts/internal/config"
)

// githubThreads is a trimmed version of a real /notifications response.
const githubThreads = `[
  {
    "id": "1001",
    "unread": true,
    "reason": "review_requested",
    "subject": {"title": "Fix flaky watcher test", "type": "PullRequest", "url": "https://api.github.com/repos/octo/toasts/pulls/7"},
    "repository": {"id": 1, "full_name": "octo/toasts"}
  },
  {
    "id": "1002",
    "unread": true,
    "reason": "mention",
    "subject": {"title": "Crash on empty config", "type": "Issue"},
    "repository": {"id": 1, "full_name": "octo/toasts"}
  }
]`

// newTestGitHub returns an authenticated client pointed at srv.
func newTestGitHub(t *testing.T, url string) *GitHubClient {
	t.Helper()
	t.Setenv("TEST_GH_USER", "octocat")
	t.Setenv("TEST_GH_TOKEN", "ghp_secret")
	yaml := "general:\n  request_timeout: 2\nsites:\n  github:\n    username: TEST_GH_USER\n    token: TEST_GH_TOKEN\n    endpoint: " + url + "\n"
	cfg, err := config.Parse([]byte(yaml), "test")
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	c, err := NewGitHub(cfg)
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return c.(*GitHubClient)
}

func TestGitHub_Fetch_ParsesThreads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != "octocat" || p != "ghp_secret" {
			t.Errorf("basic auth = %q/%q (ok=%v), want octocat/ghp_secret", u, p, ok)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent not set")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(githubThreads))
	}))
	defer srv.Close()

	recs, err := newTestGitHub(t, srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].UID != "1001" || recs[1].UID != "1002" {
		t.Errorf("uids = %q, %q; want 1001, 1002", recs[0].UID, recs[1].UID)
	}
	if want := "PullRequest: Fix flaky watcher test (octo/toasts)"; recs[0].Body != want {
		t.Errorf("body = %q, want %q", recs[0].Body, want)
	}
	if recs[0].Source != "github" {
		t.Errorf("source = %q, want github", recs[0].Source)
	}
	if recs[0].Title != "Notification from Github" {
		t.Errorf("title = %q", recs[0].Title)
	}
}

func TestGitHub_Fetch_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantAuth   bool
		wantStatus int // non-zero: expect UnexpectedResponseError with this code
	}{
		{"unauthorized", http.StatusUnauthorized, true, 0},
		{"server error", http.StatusInternalServerError, false, 500},
		{"forbidden", http.StatusForbidden, false, 403},
		{"teapot", http.StatusTeapot, false, 418},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			recs, err := newTestGitHub(t, srv.URL).Fetch(context.Background())
			if recs != nil {
				t.Errorf("records = %v, want nil", recs)
			}
			var authErr *AuthError
			var unexpected *UnexpectedResponseError
			switch {
			case tc.wantAuth:
				if !errors.As(err, &authErr) {
					t.Fatalf("err = %v, want *AuthError", err)
				}
				if authErr.Source != "GitHub" {
					t.Errorf("AuthError.Source = %q", authErr.Source)
				}
			default:
				if !errors.As(err, &unexpected) {
					t.Fatalf("err = %v, want *UnexpectedResponseError", err)
				}
				if unexpected.StatusCode != tc.wantStatus {
					t.Errorf("StatusCode = %d, want %d", unexpected.StatusCode, tc.wantStatus)
				}
			}
		})
	}
}

func TestGitHub_Fetch_NotModifiedIsEmpty(t *testing.T) {
	const lastModified = "Thu, 15 Oct 2026 10:00:00 GMT"
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			if r.Header.Get("If-Modified-Since") != "" {
				t.Error("first request sent If-Modified-Since")
			}
			w.Header().Set("Last-Modified", lastModified)
			_, _ = w.Write([]byte(githubThreads))
			return
		}
		if got := r.Header.Get("If-Modified-Since"); got != lastModified {
			t.Errorf("If-Modified-Since = %q, want %q", got, lastModified)
		}
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	c := newTestGitHub(t, srv.URL)
	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	recs, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("304 records = %v, want empty non-nil slice", recs)
	}
}

func TestGitHub_Fetch_BadJSONIsNotClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message": "not a list"}`))
	}))
	defer srv.Close()

	_, err := newTestGitHub(t, srv.URL).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected decode error, got nil")
	}
	var authErr *AuthError
	var unexpected *UnexpectedResponseError
	if errors.As(err, &authErr) || errors.As(err, &unexpected) {
		t.Errorf("decode failure classified as a domain error: %v", err)
	}
}

func TestGitHub_Fetch_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestGitHub(t, srv.URL)
	c.sess.client.Timeout = 50 * time.Millisecond

	_, err := c.Fetch(context.Background())
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("err = %v, want a net.Error timeout", err)
	}
}

func TestGitHub_Authenticate_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		user string
		tok  string
	}{
		{"both missing", "", ""},
		{"token missing", "octocat", ""},
		{"user missing", "", "ghp_secret"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_GH_USER", tc.user)
			t.Setenv("TEST_GH_TOKEN", tc.tok)
			cfg, err := config.Parse([]byte("sites:\n  github:\n    username: TEST_GH_USER\n    token: TEST_GH_TOKEN\n"), "test")
			if err != nil {
				t.Fatal(err)
			}
			c, _ := NewGitHub(cfg)
			var authErr *AuthError
			if err := c.Authenticate(context.Background()); !errors.As(err, &authErr) {
				t.Errorf("Authenticate() = %v, want *AuthError", err)
			}
		})
	}
}

func TestNewGitHub_DefaultEndpoint(t *testing.T) {
	c, err := NewGitHub(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if got := c.(*GitHubClient).endpoint; got != "https://api.github.com/notifications" {
		t.Errorf("endpoint = %q", got)
	}
}

func TestNewGitHub_InvalidEndpoint(t *testing.T) {
	for _, ep := range []string{
		"api.github.com/notifications",
		"ftp://api.github.com/notifications",
		"http://[::1",
		"https:///notifications",
	} {
		t.Run(ep, func(t *testing.T) {
			cfg, err := config.Parse([]byte("sites:\n  github:\n    endpoint: '"+ep+"'\n"), "test")
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if _, err := NewGitHub(cfg); err == nil {
				t.Errorf("NewGitHub accepted endpoint %q", ep)
			}
		})
	}
}
