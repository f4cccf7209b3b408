package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDirUsesXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	d, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if d != filepath.Join(home, "lpf") {
		t.Fatalf("unexpected config dir: %s", d)
	}
}

func TestStatePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	reg, err := RegistryFilePath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(reg) != "tunnels.json" {
		t.Fatalf("unexpected registry path: %s", reg)
	}

	pids, err := PidDir()
	if err != nil {
		t.Fatal(err)
	}
	if pids != filepath.Join(home, "lpf", "pids") {
		t.Fatalf("unexpected pid dir: %s", pids)
	}
}

func TestEnsureDirsCreatesPidDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	pids, _ := PidDir()
	info, err := os.Stat(pids)
	if err != nil || !info.IsDir() {
		t.Fatalf("pid dir missing after EnsureDirs: %v", err)
	}
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AutoSyncOnList {
		t.Fatal("auto sync on list must default to true")
	}
	if cfg.Tunnel.ServerAliveIntervalSec != 30 || cfg.Tunnel.ServerAliveCountMax != 3 {
		t.Fatalf("unexpected tunnel defaults: %+v", cfg.Tunnel)
	}
	if cfg.Tunnel.HandshakeTimeout() != 5*time.Second {
		t.Fatalf("unexpected handshake timeout: %v", cfg.Tunnel.HandshakeTimeout())
	}
	if _, err := os.Stat(filepath.Join(home, "lpf", "config.yaml")); err != nil {
		t.Fatalf("load must write the default config file: %v", err)
	}
}

func TestLoadNormalizesZeroValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)

	dir := filepath.Join(home, "lpf")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw := []byte("auto_sync_on_list: false\ntunnel:\n  server_alive_interval_seconds: 0\nui:\n  refresh_seconds: -1\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AutoSyncOnList {
		t.Fatal("explicit false must survive load")
	}
	if cfg.Tunnel.ServerAliveIntervalSec != 30 {
		t.Fatalf("zero interval must normalize to default, got %d", cfg.Tunnel.ServerAliveIntervalSec)
	}
	if cfg.UI.RefreshSeconds != 3 {
		t.Fatalf("negative refresh must normalize to default, got %d", cfg.UI.RefreshSeconds)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Tunnel.HandshakeTimeoutSec = 9
	cfg.UI.RefreshSeconds = 7
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Tunnel.HandshakeTimeoutSec != 9 || got.UI.RefreshSeconds != 7 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
