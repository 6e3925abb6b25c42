// internal/archive/store.go
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timestampLayout is the suffix appended to archive file names.
const timestampLayout = "20060102_150405"

// Store persists lobby snapshots under a directory, one JSON file per
// archive event named <code>_<YYYYMMDD_HHMMSS>.json. Records are append-only;
// for rehydration the file with the latest modification time wins.
type Store struct {
	dir string
}

// NewStore returns a snapshot store rooted at dir. The directory is created
// lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the archive directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Write serializes snap to a timestamped record for code and returns the
// file path. A failed write never removes earlier records.
func (s *Store) Write(code string, snap interface{}) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot for %s: %w", code, err)
	}
	name := fmt.Sprintf("%s_%s.json", code, time.Now().Format(timestampLayout))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive record %s: %w", path, err)
	}
	return path, nil
}

// LoadLatest decodes the most recently modified record for code into out.
// Returns os.ErrNotExist if no record for the code is present.
func (s *Store) LoadLatest(code string, out interface{}) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return fmt.Errorf("read archive dir %s: %w", s.dir, err)
	}

	var latestPath string
	var latestMod time.Time
	prefix := code + "_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latestPath == "" || info.ModTime().After(latestMod) {
			latestPath = filepath.Join(s.dir, entry.Name())
			latestMod = info.ModTime()
		}
	}
	if latestPath == "" {
		return os.ErrNotExist
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return fmt.Errorf("read archive record %s: %w", latestPath, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode archive record %s: %w", latestPath, err)
	}
	return nil
}
