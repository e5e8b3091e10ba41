package poller

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/toasts-app/toasts/internal/client"
)

// Kind is the failure taxonomy the poll loop acts on.
type Kind int

const (
	// KindUnclassified is anything not covered below. Fatal.
	KindUnclassified Kind = iota
	// KindConfig is a bad client list or an unloadable config. Fatal.
	KindConfig
	// KindAuth is missing or rejected credentials. Fatal.
	KindAuth
	// KindUnexpectedResponse is an unmapped status from a source. Logged.
	KindUnexpectedResponse
	// KindTransport is a timeout or connection failure. Ignored.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindUnexpectedResponse:
		return "unexpected_response"
	case KindTransport:
		return "transport"
	default:
		return "unclassified"
	}
}

// Fatal reports whether a failure of this kind terminates the process.
func (k Kind) Fatal() bool {
	return k == KindConfig || k == KindAuth || k == KindUnclassified
}

// Classify maps err onto the taxonomy.
func Classify(err error) Kind {
	var (
		authErr    *client.AuthError
		unexpected *client.UnexpectedResponseError
	)
	switch {
	case err == nil:
		return KindUnclassified
	case errors.Is(err, client.ErrUnknownClient):
		return KindConfig
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &unexpected):
		return KindUnexpectedResponse
	case isTransport(err):
		return KindTransport
	}
	return KindUnclassified
}

// isTransport reports whether err is a network-level failure. A *url.Error
// alone does not qualify: http.Client also returns one for a bad scheme or an
// unparseable URL.
func isTransport(err error) bool {
	var (
		opErr   *net.OpError
		dnsErr  *net.DNSError
		timeout interface{ Timeout() bool }
		urlErr  *url.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &opErr),
		errors.As(err, &dnsErr):
		return true
	case errors.As(err, &timeout) && timeout.Timeout():
		return true
	case errors.As(err, &urlErr) && errors.Is(urlErr.Err, io.EOF):
		// Server closed the connection before responding.
		return true
	}
	return false
}

// FatalError ends the run. The user has already been shown a notification by
// the time it is returned; Detail is meant for the diagnostic stream.
type FatalError struct {
	Kind   Kind
	Detail string
}

func (e *FatalError) Error() string { return e.Detail }
