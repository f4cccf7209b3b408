package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mNandhu/lpf-cli/internal/model"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "tunnels.json"))
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	s := tempStore(t)
	reg := s.Load()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
	if len(reg) != 0 {
		t.Fatalf("expected empty registry, got %d entries", len(reg))
	}
}

func TestLoadMalformedFileReturnsEmpty(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	reg := s.Load()
	if len(reg) != 0 {
		t.Fatalf("expected empty registry for malformed content, got %d entries", len(reg))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)
	want := model.Registry{
		"user@host:9000": {SSHHost: "user@host", LocalPort: 9000, RemotePort: 9000, PID: 4321, PIDFile: "/tmp/user_host_9000.pid"},
		"db:5432":        {SSHHost: "db", LocalPort: 5432, RemotePort: 5433},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := s.Load()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for id, rec := range want {
		if got[id] != rec {
			t.Errorf("record %q = %+v, want %+v", id, got[id], rec)
		}
	}
}

// Registries written before the version wrapper are a bare id->record map
// and must still load.
func TestLoadLegacyFlatMap(t *testing.T) {
	s := tempStore(t)
	legacy := `{"user@host:9000": {"ssh_host": "user@host", "local_port": 9000, "remote_port": 9000, "pid": 4321}}`
	if err := os.WriteFile(s.Path(), []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	reg := s.Load()
	rec, ok := reg["user@host:9000"]
	if !ok {
		t.Fatal("expected legacy record to load")
	}
	if rec.PID != 4321 || rec.LocalPort != 9000 {
		t.Fatalf("unexpected legacy record: %+v", rec)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "nested", "tunnels.json"))
	if err := s.Save(model.Registry{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("expected registry file to exist: %v", err)
	}
}
