package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the option map as a single JSON document. A missing
// file is treated as an empty store so first runs need no setup step.
type FileStore struct {
	path string

	writeMu sync.Mutex
	mem     *MemoryStore
}

// OpenFileStore loads the option document at path, creating an empty store
// when the file does not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("settings: read %s: %w", path, err)
		}
		raw = nil
	}

	values := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("settings: parse %s: %w", path, err)
		}
	}

	return &FileStore{path: path, mem: NewMemoryStore(values)}, nil
}

// Get returns the stored value for key, or def when absent or empty.
func (s *FileStore) Get(key, def string) string { return s.mem.Get(key, def) }

// GetInt returns the stored value parsed as an integer.
func (s *FileStore) GetInt(key string, def int) int { return s.mem.GetInt(key, def) }

// GetBool returns the stored value parsed as a boolean.
func (s *FileStore) GetBool(key string, def bool) bool { return s.mem.GetBool(key, def) }

// Set stores a value and rewrites the backing document. The write goes
// through a temp file and rename so a crash cannot leave a torn document.
func (s *FileStore) Set(key, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.mem.Set(key, value); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(s.mem.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".mailroute-settings-*")
	if err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	return nil
}
