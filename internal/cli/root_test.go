package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mNandhu/lpf-cli/internal/model"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	w.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func seedRegistry(t *testing.T, home string, reg model.Registry) {
	t.Helper()
	dir := filepath.Join(home, "lpf")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	payload := map[string]any{"version": 1, "tunnels": reg}
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tunnels.json"), b, 0o600); err != nil {
		t.Fatal(err)
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var execErr error
	out := captureStdout(t, func() {
		cmd := NewRootCommand()
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		cmd.SetArgs(args)
		execErr = cmd.Execute()
	})
	return out, execErr
}

func TestListEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := runCommand(t, "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, "No tunnels are configured.") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestListTable(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	seedRegistry(t, home, model.Registry{
		"user@host:9000": {SSHHost: "user@host", LocalPort: 9000, RemotePort: 9000},
	})

	out, err := runCommand(t, "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, "user@host:9000") {
		t.Fatalf("expected tunnel id in output: %q", out)
	}
	if !strings.Contains(out, "INACTIVE") {
		t.Fatalf("pid-less record must list as INACTIVE: %q", out)
	}
	if !strings.Contains(out, "localhost:9000 -> user@host:9000") {
		t.Fatalf("expected forwarding description in output: %q", out)
	}
}

func TestListJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	seedRegistry(t, home, model.Registry{
		"user@host:9000": {SSHHost: "user@host", LocalPort: 9000, RemotePort: 8080},
	})

	out, err := runCommand(t, "ls", "--json")
	if err != nil {
		t.Fatalf("ls --json: %v", err)
	}
	var statuses []model.TunnelStatus
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(statuses) != 1 || statuses[0].ID != "user@host:9000" {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
	if statuses[0].Forwarding != "localhost:9000 -> user@host:8080" {
		t.Fatalf("unexpected forwarding description: %s", statuses[0].Forwarding)
	}
}

func TestSyncInSync(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := runCommand(t, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "Registry is in sync.") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSyncDemotesStaleEntry(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	seedRegistry(t, home, model.Registry{
		"user@host:9000": {SSHHost: "user@host", LocalPort: 9000, RemotePort: 9000, PID: 1 << 22},
	})

	out, err := runCommand(t, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "demoted user@host:9000 to inactive") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestStopUnknownTunnel(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := runCommand(t, "stop", "9000")
	if err == nil {
		t.Fatal("expected an error for an unclaimed port")
	}
}

func TestStopByID(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	seedRegistry(t, home, model.Registry{
		"user@host:9000": {SSHHost: "user@host", LocalPort: 9000, RemotePort: 9000},
	})

	out, err := runCommand(t, "stop", "user@host:9000")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "removed user@host:9000") {
		t.Fatalf("unexpected output: %q", out)
	}

	out, err = runCommand(t, "ls")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No tunnels are configured.") {
		t.Fatalf("registry must be empty after stop: %q", out)
	}
}

func TestStopAllEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := runCommand(t, "stop-all")
	if err != nil {
		t.Fatalf("stop-all: %v", err)
	}
	if !strings.Contains(out, "No tunnels to stop.") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestEventsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := runCommand(t, "events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(out, "No events recorded.") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestEventsRejectsBadSince(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := runCommand(t, "events", "--since", "yesterday")
	if err == nil {
		t.Fatal("expected an error for an unparsable duration")
	}
}

func TestLastStartedString(t *testing.T) {
	if got := lastStartedString(0); got != "-" {
		t.Fatalf("zero timestamp: got %q", got)
	}
	if got := lastStartedString(-5); got != "-" {
		t.Fatalf("negative timestamp: got %q", got)
	}
	if got := lastStartedString(1700000000); got == "-" || len(got) != len("2006-01-02 15:04") {
		t.Fatalf("unexpected format: %q", got)
	}
}
