// Package registry persists the tunnel registry to disk.
//
// The registry file is the sole durable store: a single JSON document mapping
// tunnel ids to records, written with two-space indentation for human
// readability. Loading is corruption-tolerant: a missing or unreadable file
// degrades to "no tunnels known" instead of wedging every subsequent
// command. Writes are plain full overwrites; the tool assumes
// cooperative, non-concurrent invocation against one registry file, so there
// is no locking and no temp-file-then-rename dance.
package registry

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mNandhu/lpf-cli/internal/model"
)

// schemaVersion tags the on-disk format so a future layout change can be
// detected instead of silently misread.
const schemaVersion = 1

type fileModel struct {
	Version int            `json:"version"`
	Tunnels model.Registry `json:"tunnels"`
}

// Store reads and writes one registry file.
type Store struct {
	path string
}

// NewStore creates a store bound to the given registry file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the registry file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted registry. A missing file yields an empty
// registry; so does malformed content, with a warning logged. Unreadable
// state means "no known tunnels", never a crash.
func (s *Store) Load() model.Registry {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read registry file", "path", s.path, "error", err)
		}
		return model.Registry{}
	}

	var fm fileModel
	if err := json.Unmarshal(b, &fm); err == nil && fm.Tunnels != nil {
		return fm.Tunnels
	}

	// Registries written before the version wrapper are a bare id->record map.
	var legacy model.Registry
	if err := json.Unmarshal(b, &legacy); err == nil && legacy != nil {
		return legacy
	}

	slog.Warn("registry file is malformed, treating as empty", "path", s.path)
	return model.Registry{}
}

// Save overwrites the registry file with the given mapping.
func (s *Store) Save(reg model.Registry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(fileModel{Version: schemaVersion, Tunnels: reg}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}
