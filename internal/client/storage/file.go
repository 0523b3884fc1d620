package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps every key in a single JSON document and rewrites it through a
// temp file + rename, so a batch write is atomic at the filesystem level.
// Values are opaque bytes (base64 inside the document).
type File struct {
	mu    sync.Mutex
	path  string
	items map[string][]byte
}

// NewFile opens (or creates) the store at path. An unreadable or corrupt
// file is treated as empty: the cache layer owns failure isolation and a
// broken store must not prevent startup.
func NewFile(path string) (*File, error) {
	f := &File{path: path, items: make(map[string][]byte)}

	data, err := os.ReadFile(path)
	if err != nil {
		// Missing file is the common first-run case; anything else is a
		// corrupt-store case and both start empty.
		return f, nil
	}
	if err := json.Unmarshal(data, &f.items); err != nil {
		f.items = make(map[string][]byte)
	}
	return f, nil
}

func (f *File) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (f *File) Set(key string, value []byte) error {
	return f.SetMany(map[string][]byte{key: value})
}

func (f *File) SetMany(items map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string][]byte, len(f.items)+len(items))
	for k, v := range f.items {
		next[k] = v
	}
	for k, v := range items {
		stored := make([]byte, len(v))
		copy(stored, v)
		next[k] = stored
	}

	if err := f.flush(next); err != nil {
		return err
	}
	f.items = next
	return nil
}

// flush writes the full document to a sibling temp file and renames it over
// the target. On any error the previous file is left untouched.
func (f *File) flush(items map[string][]byte) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".presenca-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
