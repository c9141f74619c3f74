// CLAUDE:SUMMARY Atomic JSON file store: write to .tmp then rename, missing file loads as empty.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hazyhaar/ardoise/board/internal/strokelog"
)

// FileStore keeps the snapshot as a single JSON array on disk. Writes go
// through a temp file and rename so a crash mid-save never leaves a
// half-written snapshot behind.
type FileStore struct {
	path string

	mu      sync.Mutex
	mkdired bool
}

// NewFileStore returns a store writing to path. The parent directory is
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file location.
func (f *FileStore) Path() string { return f.path }

// Save marshals list as a JSON array and atomically replaces the file.
func (f *FileStore) Save(ctx context.Context, list []strokelog.Stroke) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if list == nil {
		list = []strokelog.Stroke{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("persist: marshal snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mkdired {
		if dir := filepath.Dir(f.path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("persist: create dir: %w", err)
			}
		}
		f.mkdired = true
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persist: write temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist: rename temp file: %w", err)
	}
	return nil
}

// Load reads the snapshot file. A missing file is a normal first boot and
// yields an empty slice; unparseable content is reported as an error so the
// caller can decide to start fresh.
func (f *FileStore) Load(ctx context.Context) ([]strokelog.Stroke, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()

	if err != nil {
		if os.IsNotExist(err) {
			return []strokelog.Stroke{}, nil
		}
		return nil, fmt.Errorf("persist: read snapshot: %w", err)
	}

	var list []strokelog.Stroke
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("persist: parse snapshot: %w", err)
	}
	if list == nil {
		list = []strokelog.Stroke{}
	}
	return list, nil
}
