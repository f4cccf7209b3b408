// Package autossh launches auto-reconnecting SSH tunnel helper processes
// via the system autossh binary.
//
// This package is responsible for spawning processes; it does NOT implement
// the SSH protocol or the reconnection algorithm itself. It shells out to
// autossh, which in turn runs the system ssh binary, so the user's full SSH
// configuration (keys, agents, ProxyJump chains, etc.) applies without any
// of that logic being reimplemented here.
//
// Because autossh daemonizes (-f), the spawn call returns before the tunnel
// process id is known. The helper announces its own pid through a filesystem
// handshake: the AUTOSSH_PIDFILE environment variable names a file autossh
// writes its pid to once established, and Client.Start polls that file at a
// fixed short interval up to a bounded timeout. AUTOSSH_GATETIME=0 disables
// the startup grace period so the first connection attempt counts.
//
// Security note: all arguments are passed via exec.Command's argv (not via
// shell interpolation), which prevents injection from host names that
// contain shell metacharacters.
package autossh

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creack/pty"

	"github.com/mNandhu/lpf-cli/internal/appconfig"
	"github.com/mNandhu/lpf-cli/internal/model"
	"github.com/mNandhu/lpf-cli/internal/util"
)

// LaunchError reports a failed tunnel launch: either the spawn itself failed
// or the pid-file handshake did not complete in time. Output carries the
// captured diagnostic text from the helper, when any was produced.
type LaunchError struct {
	Reason string
	Output string
}

func (e *LaunchError) Error() string {
	if strings.TrimSpace(e.Output) == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.TrimSpace(e.Output))
}

// Client launches tunnel helper processes and performs the pid handshake.
//
// The zero value is not useful; use New. The runCmd, now, and sleep fields
// are injection points so tests can simulate spawn failures and handshake
// timeouts without real processes or real elapsed time.
type Client struct {
	pidDir string
	cfg    appconfig.TunnelConfig

	runCmd func(*exec.Cmd) ([]byte, error)
	now    func() time.Time
	sleep  func(time.Duration)
}

// New creates a client that stores pid-handshake files under pidDir.
func New(pidDir string, cfg appconfig.TunnelConfig) *Client {
	return &Client{
		pidDir: pidDir,
		cfg:    cfg,
		runCmd: (*exec.Cmd).CombinedOutput,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// EnsureBinaries checks that autossh and ssh are available on PATH.
//
// Called early during startup so the user gets a clear message instead of a
// confusing exec error halfway through an add.
func EnsureBinaries() error {
	if _, err := exec.LookPath("autossh"); err != nil {
		return fmt.Errorf("autossh binary not found in PATH")
	}
	if _, err := exec.LookPath("ssh"); err != nil {
		return fmt.Errorf("ssh binary not found in PATH")
	}
	return nil
}

// PIDFilePath computes the handshake file location for a tunnel id. The id
// contains characters that are not filesystem-safe ("@", ":"), so it is
// sanitized first.
func (c *Client) PIDFilePath(id string) string {
	return filepath.Join(c.pidDir, util.SanitizeFileName(id)+".pid")
}

// BuildArgs constructs the autossh argument vector for a record without
// starting a process. Useful for dry-run display and for unit testing
// argument composition independently from process execution.
//
// Example output for localhost:8080 -> user@host:80:
//
//	["-f", "-M", "0", "-N",
//	 "-o", "ServerAliveInterval=30", "-o", "ServerAliveCountMax=3",
//	 "-L", "8080:localhost:80", "user@host"]
func (c *Client) BuildArgs(rec model.TunnelRecord) []string {
	return []string{
		// -f: drop to the background once the connection is up.
		// -M 0: no separate monitor port; rely on ServerAlive probes instead.
		// -N: no remote command, port forwarding only.
		"-f",
		"-M", "0",
		"-N",
		"-o", fmt.Sprintf("ServerAliveInterval=%d", c.cfg.ServerAliveIntervalSec),
		"-o", fmt.Sprintf("ServerAliveCountMax=%d", c.cfg.ServerAliveCountMax),
		"-L", rec.ForwardSpec(),
		rec.SSHHost,
	}
}

// Start spawns the helper for one tunnel and returns its pid once the
// pid-file handshake completes.
//
// If the spawn itself fails, a LaunchError with the captured output is
// returned immediately and no polling happens. If the spawn succeeds but no
// valid pid appears within the handshake timeout, a LaunchError is returned
// and the caller must not assume the helper is or isn't running. In
// particular it must not record a pid-less "active" tunnel.
func (c *Client) Start(ctx context.Context, rec model.TunnelRecord) (int, string, error) {
	pidFile := c.PIDFilePath(rec.ID())

	cmd := exec.CommandContext(ctx, "autossh", c.BuildArgs(rec)...)
	cmd.Env = append(os.Environ(),
		"AUTOSSH_PIDFILE="+pidFile,
		"AUTOSSH_GATETIME=0",
	)

	out, err := c.runCmd(cmd)
	if err != nil {
		return 0, "", &LaunchError{Reason: "failed to start autossh", Output: string(out)}
	}

	pid, err := c.awaitPidFile(pidFile)
	if err != nil {
		return 0, "", err
	}
	return pid, pidFile, nil
}

// awaitPidFile polls for the handshake file to exist with non-empty,
// integer-parseable content. A file that exists but doesn't parse yet is
// treated as still being written.
func (c *Client) awaitPidFile(pidFile string) (int, error) {
	deadline := c.now().Add(c.cfg.HandshakeTimeout())
	for {
		if b, err := os.ReadFile(pidFile); err == nil {
			content := strings.TrimSpace(string(b))
			if content != "" {
				if pid, err := strconv.Atoi(content); err == nil {
					return pid, nil
				}
			}
		}
		if !c.now().Before(deadline) {
			return 0, &LaunchError{Reason: fmt.Sprintf("pid handshake timed out after %s; tunnel may have failed to start", c.cfg.HandshakeTimeout())}
		}
		c.sleep(util.HandshakePollInterval)
	}
}

// Connect opens an interactive SSH session to host in a pseudo-terminal.
//
// The PTY is required for password prompts, remote line editing, and other
// interactive features. The call blocks until the session ends; if ctx is
// cancelled while the session is active, the ssh process is killed.
func (c *Client) Connect(ctx context.Context, host string) error {
	cmd := exec.Command("ssh", host)

	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	// Forward keystrokes into the PTY master; the goroutine ends when the
	// PTY closes after the ssh process exits.
	go func() {
		_, _ = io.Copy(f, os.Stdin)
	}()

	_, _ = io.Copy(os.Stdout, f)

	if ctx.Err() != nil {
		_ = cmd.Process.Kill()
	}
	return cmd.Wait()
}
