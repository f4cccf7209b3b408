package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/mNandhu/lpf-cli/internal/appconfig"
)

type store struct {
	LastStarted map[string]int64 `json:"last_started"`
}

func filePath() (string, error) {
	dir, err := appconfig.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.json"), nil
}

// Touch records a successful launch for a tunnel id.
func Touch(id string) error {
	st, err := load()
	if err != nil {
		return err
	}
	if st.LastStarted == nil {
		st.LastStarted = map[string]int64{}
	}
	st.LastStarted[id] = time.Now().Unix()
	return save(st)
}

// Forget drops the launch record for a tunnel id, if present.
func Forget(id string) error {
	st, err := load()
	if err != nil {
		return err
	}
	if _, ok := st.LastStarted[id]; !ok {
		return nil
	}
	delete(st.LastStarted, id)
	return save(st)
}

// LastStarted returns last successful launch timestamps by tunnel id.
func LastStarted() (map[string]int64, error) {
	st, err := load()
	if err != nil {
		return nil, err
	}
	return st.LastStarted, nil
}

func load() (store, error) {
	path, err := filePath()
	if err != nil {
		return store{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store{}, nil
		}
		return store{}, err
	}
	var st store
	if err := json.Unmarshal(b, &st); err != nil {
		// Treat a damaged history file as empty; it is advisory data only.
		return store{}, nil
	}
	return st, nil
}

func save(st store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
