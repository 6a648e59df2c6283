// Package checkpoint persists the relay's resumption state between runs.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is what survives a restart: the last fully processed position and
// the last token the service issued.
type State struct {
	StartTime int64     `json:"start_time_ms"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes the state file. Writes are atomic: the new state
// is staged to a temp file and renamed over the old one, so a crash never
// leaves a half-written checkpoint behind.
type Store struct {
	path string
}

// NewStore creates a store over the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// DefaultPath is the state file used when none is configured.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".wssrelay_state.json"), nil
}

// ExpandPath resolves a leading ~ against the home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Load reads the persisted state. A missing file is not an error; the
// second return value reports whether state existed.
func (s *Store) Load() (State, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return st, true, nil
}

// Save writes the state atomically, stamping UpdatedAt.
func (s *Store) Save(st State) error {
	st.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to stage state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush state: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
