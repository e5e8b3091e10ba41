package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/toasts-app/toasts/internal/config"
	"github.com/toasts-app/toasts/internal/notification"
)

// GitHub API details.
// See https://docs.github.com/en/rest/activity/notifications
const (
	githubName        = "github"
	githubDisplayName = "GitHub"
	githubEndpoint    = "https://api.github.com/notifications"
	githubAPIVersion  = "2022-11-28"
)

// githubThread is the subset of a notification thread toasts displays.
type githubThread struct {
	ID      string `json:"id"`
	Subject struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"subject"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// GitHubClient polls the authenticated user's notification threads using a
// username and personal access token over basic auth.
type GitHubClient struct {
	cfg      *config.Config
	endpoint string
	sess     *session
}

// NewGitHub builds a GitHub client. The endpoint can be overridden with
// sites.github.endpoint for GitHub Enterprise; it must be an absolute http or
// https URL.
func NewGitHub(cfg *config.Config) (Client, error) {
	endpoint := githubEndpoint
	if ep, err := cfg.String("sites.github.endpoint"); err == nil && ep != "" {
		if err := checkEndpoint(ep); err != nil {
			return nil, fmt.Errorf("github: sites.github.endpoint: %w", err)
		}
		endpoint = ep
	}
	return &GitHubClient{
		cfg:      cfg,
		endpoint: endpoint,
		sess:     newSession(cfg.General.RequestTimeoutDuration()),
	}, nil
}

func checkEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}

// Name implements Client.
func (c *GitHubClient) Name() string { return githubName }

// Authenticate reads the names of the environment variables holding the
// username and token from sites.github.username and sites.github.token, and
// attaches their values to the session.
func (c *GitHubClient) Authenticate(_ context.Context) error {
	username := c.envValue("username")
	token := c.envValue("token")
	if username == "" || token == "" {
		return &AuthError{Source: githubDisplayName}
	}
	c.sess.creds.set(username, token)
	return nil
}

func (c *GitHubClient) envValue(key string) string {
	name, err := c.cfg.String("sites." + githubName + "." + key)
	if err != nil || name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Fetch implements Client.
func (c *GitHubClient) Fetch(ctx context.Context) ([]notification.Record, error) {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", githubAPIVersion)

	resp, err := c.sess.get(ctx, c.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("github: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return []notification.Record{}, nil
	case http.StatusUnauthorized:
		return nil, &AuthError{Source: githubDisplayName}
	default:
		return nil, &UnexpectedResponseError{Source: githubDisplayName, StatusCode: resp.StatusCode}
	}

	var threads []githubThread
	if err := json.NewDecoder(resp.Body).Decode(&threads); err != nil {
		return nil, fmt.Errorf("github: decode notifications: %w", err)
	}
	c.sess.remember(resp)
	return parseGitHubThreads(threads)
}

// parseGitHubThreads renders each thread as "<type>: <title> (<owner/repo>)".
func parseGitHubThreads(threads []githubThread) ([]notification.Record, error) {
	out := make([]notification.Record, 0, len(threads))
	for i, th := range threads {
		if th.ID == "" {
			return nil, fmt.Errorf("github: decode notifications: thread %d has no id", i)
		}
		msg := fmt.Sprintf("%s: %s (%s)", th.Subject.Type, th.Subject.Title, th.Repository.FullName)
		out = append(out, notification.New(githubName, th.ID, msg))
	}
	return out, nil
}
