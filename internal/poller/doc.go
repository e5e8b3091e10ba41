// Package poller runs the toasts poll loop.
//
// Start validates the configured client list and authenticates every client
// before anything is polled. Run then polls each client in order, passes the
// results through the client's dedup history and the per-cycle display cap,
// and hands survivors to a Sink. Failures are sorted by Classify: transport
// failures are ignored, unexpected responses are logged, and everything else
// shows the user an error notification and ends the run with a *FatalError.
package poller
