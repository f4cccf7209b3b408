// Package appconfig manages application configuration and state file paths.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mNandhu/lpf-cli/internal/util"
)

// TunnelConfig contains settings applied to every launched helper process.
type TunnelConfig struct {
	ServerAliveIntervalSec int `yaml:"server_alive_interval_seconds"`
	ServerAliveCountMax    int `yaml:"server_alive_count_max"`
	HandshakeTimeoutSec    int `yaml:"handshake_timeout_seconds"`
}

// HandshakeTimeout returns the configured pid-file handshake timeout.
func (t TunnelConfig) HandshakeTimeout() time.Duration {
	if t.HandshakeTimeoutSec <= 0 {
		return util.HandshakeTimeout
	}
	return time.Duration(t.HandshakeTimeoutSec) * time.Second
}

// UIConfig contains TUI display settings.
type UIConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
}

// Config holds application-level configuration.
type Config struct {
	// AutoSyncOnList makes `lpf ls` silently reconcile stale registry
	// entries before reporting status.
	AutoSyncOnList bool         `yaml:"auto_sync_on_list"`
	Tunnel         TunnelConfig `yaml:"tunnel"`
	UI             UIConfig     `yaml:"ui"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		AutoSyncOnList: true,
		Tunnel: TunnelConfig{
			ServerAliveIntervalSec: util.DefaultServerAliveInterval,
			ServerAliveCountMax:    util.DefaultServerAliveCountMax,
			HandshakeTimeoutSec:    int(util.HandshakeTimeout / time.Second),
		},
		UI: UIConfig{RefreshSeconds: util.DefaultRefreshSeconds},
	}
}

// ConfigDir returns the application config directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/lpf.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lpf"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "lpf"), nil
}

// RegistryFilePath returns the full path to tunnels.json.
func RegistryFilePath() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "tunnels.json"), nil
}

// PidDir returns the directory holding per-tunnel pid-handshake files.
func PidDir() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "pids"), nil
}

// EnsureDirs creates the config and pid directories if missing.
func EnsureDirs() error {
	pids, err := PidDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(pids, 0o755)
}

// Load reads config.yaml from the config directory.
// If the file doesn't exist, creates it with defaults.
func Load() (Config, error) {
	d, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return Config{}, err
	}
	path := filepath.Join(d, "config.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return normalize(cfg), nil
}

// Save writes config to config.yaml.
func Save(cfg Config) error {
	d, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d, "config.yaml")
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func normalize(cfg Config) Config {
	if cfg.Tunnel.ServerAliveIntervalSec <= 0 {
		cfg.Tunnel.ServerAliveIntervalSec = util.DefaultServerAliveInterval
	}
	if cfg.Tunnel.ServerAliveCountMax <= 0 {
		cfg.Tunnel.ServerAliveCountMax = util.DefaultServerAliveCountMax
	}
	if cfg.Tunnel.HandshakeTimeoutSec <= 0 {
		cfg.Tunnel.HandshakeTimeoutSec = int(util.HandshakeTimeout / time.Second)
	}
	if cfg.UI.RefreshSeconds <= 0 {
		cfg.UI.RefreshSeconds = util.DefaultRefreshSeconds
	}
	return cfg
}
