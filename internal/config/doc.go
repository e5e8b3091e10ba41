// Package config loads the toasts preferences file (config.yaml).
//
// Top-level types:
//   - Config{General} plus a dotted-key Get for everything else, notably the
//     per-site credential keys under "sites.<name>.*"
//   - General: clients, notif_timeout, notif_max_show, check_every,
//     request_timeout, log_level, metrics_file, icons_dir
//
// Load(path) decodes the embedded default.yaml first and the user's file on
// top, so keys missing from the user's file keep their defaults. Ranges are
// then validated. The client list itself is not checked here; the poller's
// startup validator owns that so it can tell the user.
//
// LoadOrCreate writes default.yaml to the path first when the file is missing,
// and WriteDefault backs "toasts config init".
//
// Watcher uses fsnotify to notice edits. The configuration is never reloaded
// while running; the poll loop calls Watcher.Check between cycles to log that a
// restart is needed.
package config
