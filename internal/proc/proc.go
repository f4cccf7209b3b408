// Package proc verifies that a stored tunnel pid still belongs to the
// autossh process the registry believes it does.
//
// A pid alone is weak evidence: processes exit and pids get reused. Where
// the platform exposes per-process command lines (Linux via /proc), the
// checker additionally requires the process to identify as autossh and to
// carry the exact forwarding specification and destination host the record
// claims. On other platforms it degrades to a best-effort liveness-only
// check, selected once at construction rather than branched per call.
package proc

import (
	"os"
	"strings"
	"syscall"

	"github.com/mNandhu/lpf-cli/internal/model"
)

// Expected describes the command-line attributes a tunnel helper process
// must match to be accepted as the process a registry record points at.
type Expected struct {
	SSHHost    string
	LocalPort  int
	RemotePort int
}

// ExpectedFor derives the identity expectation from a registry record.
func ExpectedFor(rec model.TunnelRecord) Expected {
	return Expected{SSHHost: rec.SSHHost, LocalPort: rec.LocalPort, RemotePort: rec.RemotePort}
}

// Checker answers liveness and identity questions about helper processes.
type Checker struct {
	verifyCmdline bool
}

// NewChecker selects the strongest identity strategy the platform supports.
func NewChecker() *Checker {
	return &Checker{verifyCmdline: cmdlineSupported}
}

// Verified reports whether command-line identity verification is available,
// or only best-effort liveness.
func (c *Checker) Verified() bool {
	return c.verifyCmdline
}

// Alive reports whether a process with the given pid exists. It sends the
// null signal, which performs an existence check without disturbing the
// target.
func (c *Checker) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

// Running reports whether pid is alive and, where supported, whether its
// argument vector matches the expected autossh invocation. A mismatch means
// the pid is stale (likely reused) and the tunnel must be treated as
// inactive; so must a process that disappears between the liveness probe and
// the argument read.
func (c *Checker) Running(pid int, exp Expected) bool {
	if !c.Alive(pid) {
		return false
	}
	if !c.verifyCmdline {
		return true
	}
	argv, err := readCmdline(pid)
	if err != nil {
		return false
	}
	return matchesExpected(argv, exp)
}

// Terminate sends a graceful termination signal (SIGTERM) to pid. There is
// no forceful-kill escalation; autossh exits promptly on SIGTERM and takes
// its ssh child down with it.
func (c *Checker) Terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(syscall.SIGTERM)
}

func matchesExpected(argv []string, exp Expected) bool {
	if len(argv) == 0 || !strings.Contains(argv[0], "autossh") {
		return false
	}
	fwd := model.TunnelRecord{LocalPort: exp.LocalPort, RemotePort: exp.RemotePort}.ForwardSpec()
	var haveFwd, haveHost bool
	for _, arg := range argv[1:] {
		if arg == fwd {
			haveFwd = true
		}
		if arg == exp.SSHHost {
			haveHost = true
		}
	}
	return haveFwd && haveHost
}
