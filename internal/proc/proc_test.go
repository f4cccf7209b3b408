package proc

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestAlive(t *testing.T) {
	c := NewChecker()
	if !c.Alive(os.Getpid()) {
		t.Fatal("expected own pid to be alive")
	}
	if c.Alive(0) {
		t.Fatal("pid 0 must report not alive")
	}
	if c.Alive(-1) {
		t.Fatal("negative pid must report not alive")
	}
}

func TestRunningRejectsMissingPid(t *testing.T) {
	c := NewChecker()
	if c.Running(0, Expected{SSHHost: "h", LocalPort: 1, RemotePort: 1}) {
		t.Fatal("pid 0 must report not running")
	}
}

// The checker must treat a live process whose command line is not the
// expected autossh invocation as stale, not as running.
func TestRunningRejectsMismatchedProcess(t *testing.T) {
	c := NewChecker()
	if !c.Verified() {
		t.Skip("command-line verification unavailable on this platform")
	}
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	if c.Running(cmd.Process.Pid, Expected{SSHHost: "user@host", LocalPort: 9000, RemotePort: 9000}) {
		t.Fatal("sleep process must not pass the identity check")
	}
}

func TestTerminateStopsProcess(t *testing.T) {
	c := NewChecker()
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	pid := cmd.Process.Pid

	if err := c.Terminate(pid); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	_ = cmd.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for c.Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.Alive(pid) {
		t.Fatalf("pid %d still alive after SIGTERM", pid)
	}
}

func TestMatchesExpected(t *testing.T) {
	exp := Expected{SSHHost: "user@host", LocalPort: 9000, RemotePort: 80}
	good := []string{"/usr/bin/autossh", "-f", "-M", "0", "-N", "-L", "9000:localhost:80", "user@host"}
	if !matchesExpected(good, exp) {
		t.Fatal("expected matching argv to pass")
	}

	cases := map[string][]string{
		"wrong binary":  {"/usr/bin/python3", "-L", "9000:localhost:80", "user@host"},
		"wrong forward": {"/usr/bin/autossh", "-L", "9001:localhost:80", "user@host"},
		"wrong host":    {"/usr/bin/autossh", "-L", "9000:localhost:80", "other@host"},
		"empty argv":    {},
	}
	for name, argv := range cases {
		if matchesExpected(argv, exp) {
			t.Errorf("%s: expected mismatch", name)
		}
	}
}
