package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pvcapacity/domain/core"
)

// Store is an on-disk cache keyed by content hash. Entries are JSON files
// named after their key; a changed input produces a new key, so entries are
// never invalidated in place.
type Store struct {
	dir string
}

// New creates a store rooted at dir. An empty dir disables caching.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache directory
func (s *Store) Dir() string {
	return s.dir
}

// Enabled reports whether the store has a directory
func (s *Store) Enabled() bool {
	return s != nil && s.dir != ""
}

// Key hashes every part, length-prefixed so part boundaries matter
func Key(parts ...[]byte) core.Hash {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		h.Write(p)
	}
	return core.Hash(fmt.Sprintf("%x", h.Sum(nil)))
}

// FileKey hashes the contents of path together with extra parts
func FileKey(path string, extra ...string) (core.Hash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	parts := [][]byte{data}
	for _, e := range extra {
		parts = append(parts, []byte(e))
	}
	return Key(parts...), nil
}

func (s *Store) path(key core.Hash) string {
	return filepath.Join(s.dir, string(key)+".json")
}

// Get decodes the entry for key into v. It reports false on a miss.
func (s *Store) Get(key core.Hash, v interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache entry %s: %w", key.Short(), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key.Short(), err)
	}
	return true, nil
}

// Put stores v under key. The entry is written to a temporary file and
// renamed so readers never observe a partial entry.
func (s *Store) Put(key core.Hash, v interface{}) error {
	if !s.Enabled() {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key.Short(), err)
	}
	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s: %w", key.Short(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry %s: %w", key.Short(), err)
	}
	return os.Rename(tmp.Name(), s.path(key))
}
