package util

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// ValidatePort checks if port is in valid range (1-65535).
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port %d out of range (must be %d-%d)", port, MinPort, MaxPort)
	}
	return nil
}

// PortInUse reports whether a TCP port is currently bound on the loopback
// interface. The probe attempts to bind a listener to 127.0.0.1:port: a
// successful bind means the port is free (the listener is released before
// returning), EADDRINUSE means occupied.
//
// Any other bind failure is treated conservatively as occupied, and the
// underlying error is returned alongside so callers can surface a warning.
// The probe has no side effects beyond the transient bind/release.
func PortInUse(port int) (bool, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err == nil {
		_ = ln.Close()
		return false, nil
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true, nil
	}
	// An unexplained bind error is reported as occupied.
	return true, err
}
