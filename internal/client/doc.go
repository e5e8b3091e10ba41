// Package client provides the notification sources toasts polls.
//
// Each source implements Client (Name, Authenticate, Fetch) and is registered
// by name in a Registry; DefaultRegistry holds the built-in sources and
// Registry.Build constructs and authenticates one from the loaded config.
//
// Fetch maps the source's response onto three outcomes: records (possibly
// none), *AuthError and *UnexpectedResponseError. Transport failures are
// returned wrapped so the poller can classify them.
//
// HTTP state lives in a per-client session (session.go): one http.Client whose
// authRoundTripper attaches the credentials, a per-request timeout from
// general.request_timeout, and Last-Modified tracking for conditional GETs.
//
// Implemented sources: GitHub (github.go).
package client
