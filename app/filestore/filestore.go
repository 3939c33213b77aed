// Package filestore persists a keyed JSON document on disk for the "file" storage backend.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/FACorreiaa/go-country-recommender/internal/types"
)

// JSONMap is a single JSON object mapping string keys to V.
// All access goes through one mutex; writes land via temp file + rename.
type JSONMap[V any] struct {
	path string
	mu   sync.Mutex
}

func NewJSONMap[V any](path string) *JSONMap[V] {
	return &JSONMap[V]{path: path}
}

func (m *JSONMap[V]) Path() string {
	return m.path
}

// Load reads the document. A missing file yields an empty map and no error.
// Undecodable content yields an empty map and an error wrapping types.ErrStorageCorrupt.
func (m *JSONMap[V]) Load() (map[string]V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read()
}

// Update runs fn on the current document and writes the result back while holding the lock.
// Missing or corrupt content is handed to fn as an empty map; for corrupt content corrupt
// wraps types.ErrStorageCorrupt and the document is replaced by what fn leaves in data.
func (m *JSONMap[V]) Update(fn func(data map[string]V, corrupt error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.read()
	if err != nil && !errors.Is(err, types.ErrStorageCorrupt) {
		return err
	}
	fn(data, err)
	return m.write(data)
}

func (m *JSONMap[V]) read() (map[string]V, error) {
	data := make(map[string]V)
	raw, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("read %s: %w", m.path, err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return make(map[string]V), fmt.Errorf("%w: %s: %v", types.ErrStorageCorrupt, m.path, err)
	}
	if data == nil {
		data = make(map[string]V)
	}
	return data, nil
}

func (m *JSONMap[V]) write(data map[string]V) error {
	raw, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.path, err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", m.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		return fmt.Errorf("replace %s: %w", m.path, err)
	}
	return nil
}
