package util

import "time"

const (
	// HandshakeTimeout is the total time the launcher waits for the autossh
	// helper to write its pid file after a successful spawn. autossh forks
	// into the background immediately, so the pid file is normally present
	// well under a second later; five seconds covers slow hosts without
	// leaving the user staring at a hung command.
	// Used by: internal/autossh (Client.Start poll loop).
	HandshakeTimeout = 5 * time.Second

	// HandshakePollInterval is the granularity of the pid-file poll loop.
	// The loop is a plain bounded busy-wait, not an event subscription; a
	// 100ms interval keeps the worst-case detection latency negligible
	// while bounding the number of filesystem stats at ~50 per launch.
	HandshakePollInterval = 100 * time.Millisecond

	// DefaultServerAliveInterval is the ServerAliveInterval (seconds) passed
	// to the underlying ssh process so dead connections are noticed and
	// autossh can reconnect. Overridable via config.yaml.
	DefaultServerAliveInterval = 30

	// DefaultServerAliveCountMax is the ServerAliveCountMax companion option:
	// the connection is declared dead after this many unanswered keep-alive
	// probes. Overridable via config.yaml.
	DefaultServerAliveCountMax = 3

	// DefaultRefreshSeconds is the fallback interval (in seconds) for the
	// TUI dashboard's periodic tunnel status refresh, used when config.yaml
	// has a missing or invalid refresh_seconds value.
	DefaultRefreshSeconds = 3
)
