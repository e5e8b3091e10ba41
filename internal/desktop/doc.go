// Package desktop shows notifications on the user's desktop.
//
// Notifier is the display sink the poller writes to. It resolves a logical
// icon name (the client name, or "error") to a file under icons_dir or a
// theme icon, and keeps a fixed gap (DefaultPace) between notifications with a
// golang.org/x/time/rate limiter so a burst does not flood the OS queue. The
// wait happens on the caller's goroutine.
//
// Backends: freedesktop D-Bus via esiqveland/notify on Linux (supports the
// display timeout), gen2brain/beeep elsewhere or when no session bus exists.
package desktop
