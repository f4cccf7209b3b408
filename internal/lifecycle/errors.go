package lifecycle

import "errors"

// Failures that abort the requested operation. Signal and pid-file cleanup
// problems are not errors: removal-style operations carry them as warnings
// and still reach a consistent end state.
var (
	// ErrPortUnavailable means the requested local port is bound by
	// something this registry cannot displace.
	ErrPortUnavailable = errors.New("local port already in use")

	// ErrTunnelActive means the target id already has a verified live
	// helper process.
	ErrTunnelActive = errors.New("tunnel already active")

	// ErrTunnelExists means the target id is registered but inactive;
	// it should be removed or restarted rather than re-added.
	ErrTunnelExists = errors.New("tunnel already registered")

	// ErrUnknownTunnel means the operation referenced an id absent from
	// the registry.
	ErrUnknownTunnel = errors.New("unknown tunnel")
)
