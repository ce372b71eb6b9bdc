package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File is a directory-backed Backend. Each key lives in its own JSON file,
// human-readable and portable. No locking; fine for a local single-user
// tool where every writer goes through the store.
type File struct {
	dir string
}

// NewFile returns a Backend storing each key as <dir>/<key>.json.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// Path returns the file that holds the given key.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get reads the value for key. A missing file means the key was never set.
func (f *File) Get(key string) (string, bool, error) {
	b, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", f.Path(key), err)
	}
	return string(b), true, nil
}

// Set writes the value for key atomically: to a temp file first, then a
// rename over the target, so readers never observe a partial write.
func (f *File) Set(key, value string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", f.dir, err)
	}
	p := f.Path(key)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("rename %s: %w", p, err)
	}
	return nil
}

var _ Backend = (*File)(nil)
