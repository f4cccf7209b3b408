package model

import "fmt"

// TunnelRecord is one persisted entry in the tunnel registry. The registry
// key is the record's ID (see TunnelID); the record itself stores only the
// forwarding triple plus whatever is known about the helper process.
type TunnelRecord struct {
	SSHHost    string `json:"ssh_host"`
	LocalPort  int    `json:"local_port"`
	RemotePort int    `json:"remote_port"`
	PID        int    `json:"pid,omitempty"`
	PIDFile    string `json:"pid_file,omitempty"`
}

// TunnelID builds the canonical registry key for a host/local-port pair.
func TunnelID(sshHost string, localPort int) string {
	return fmt.Sprintf("%s:%d", sshHost, localPort)
}

// ID returns the canonical registry key for this record.
func (r TunnelRecord) ID() string {
	return TunnelID(r.SSHHost, r.LocalPort)
}

// ForwardSpec returns the -L argument value for this record,
// e.g. "8080:localhost:80".
func (r TunnelRecord) ForwardSpec() string {
	return fmt.Sprintf("%d:localhost:%d", r.LocalPort, r.RemotePort)
}

// Forwarding returns the human-readable forwarding description shown in
// list output and the dashboard.
func (r TunnelRecord) Forwarding() string {
	return fmt.Sprintf("localhost:%d -> %s:%d", r.LocalPort, r.SSHHost, r.RemotePort)
}

// Registry maps tunnel id to its record. A record with PID zero is inactive
// by construction; a non-zero PID is a claim that must be verified against
// the process table before it is trusted.
type Registry map[string]TunnelRecord

// ByLocalPort finds the record claiming the given local port, if any.
func (reg Registry) ByLocalPort(port int) (string, TunnelRecord, bool) {
	for id, rec := range reg {
		if rec.LocalPort == port {
			return id, rec, true
		}
	}
	return "", TunnelRecord{}, false
}

type TunnelState string

const (
	TunnelActive   TunnelState = "active"
	TunnelInactive TunnelState = "inactive"
)

// TunnelStatus is the computed view of one registry entry: the stored record
// plus its liveness as verified against the OS process table.
type TunnelStatus struct {
	ID          string      `json:"id"`
	SSHHost     string      `json:"ssh_host"`
	LocalPort   int         `json:"local_port"`
	RemotePort  int         `json:"remote_port"`
	PID         int         `json:"pid,omitempty"`
	State       TunnelState `json:"state"`
	Forwarding  string      `json:"forwarding"`
	LastStarted int64       `json:"last_started,omitempty"`
}
