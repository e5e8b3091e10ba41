package client

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/toasts-app/toasts/internal/config"
	"github.com/toasts-app/toasts/internal/notification"
)

// Client is implemented by every notification source.
type Client interface {
	// Name is the registry name, also used as the record source and icon.
	Name() string

	// Authenticate resolves credentials and attaches them to the session.
	// It returns *AuthError when they are missing or unusable.
	Authenticate(ctx context.Context) error

	// Fetch returns the source's current notifications. "Nothing new" is an
	// empty slice. It returns *AuthError when the source rejects the
	// credentials and *UnexpectedResponseError for any other non-success
	// status. Transport failures are returned wrapped, not translated.
	Fetch(ctx context.Context) ([]notification.Record, error)
}

// AuthError reports missing or rejected credentials.
type AuthError struct {
	Source string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Invalid credentials for authentication in %s", e.Source)
}

// UnexpectedResponseError reports a status code the client has no mapping for.
type UnexpectedResponseError struct {
	Source     string
	StatusCode int
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("Unexpected response from %s (status code: %d)", e.Source, e.StatusCode)
}

// ErrUnknownClient is returned by Registry.Build for unregistered names.
var ErrUnknownClient = errors.New("unknown client")

// Constructor builds an unauthenticated client from the loaded config.
type Constructor func(cfg *config.Config) (Client, error)

// Registry maps configured client names to constructors.
type Registry map[string]Constructor

// DefaultRegistry returns the clients compiled into toasts.
func DefaultRegistry() Registry {
	return Registry{
		githubName: NewGitHub,
	}
}

// Build constructs and authenticates the client registered under name.
func (r Registry) Build(ctx context.Context, cfg *config.Config, name string) (Client, error) {
	ctor, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownClient, name)
	}
	c, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", name, err)
	}
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Names returns the registered names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
