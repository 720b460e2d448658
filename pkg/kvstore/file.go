package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store on top of a single JSON file.
// The whole object is rewritten through a temp file and rename on every mutation.
type FileStore struct {
	path     string
	maxBytes int
	mu       sync.RWMutex
	values   map[string]string
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithMaxBytes limits the encoded size of the store. Writes that would exceed
// the limit fail with ErrQuotaExceeded and leave the previous contents intact.
func WithMaxBytes(n int) FileOption {
	return func(f *FileStore) {
		f.maxBytes = n
	}
}

// OpenFileStore loads the store at path, creating parent directories as needed.
// A missing file is an empty store. A corrupt file is also treated as empty and
// replaced on the next write.
func OpenFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUnavailable)
	}
	f := &FileStore{path: path, values: make(map[string]string)}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, errors.Join(ErrUnavailable, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.values); err != nil {
			f.values = make(map[string]string)
		}
	}
	return f, nil
}

// Path returns the backing file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	next := maps.Clone(f.values)
	next[key] = value
	return f.commit(next)
}

func (f *FileStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := maps.Clone(f.values)
	changed := false
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.commit(next)
}

// commit persists next and swaps it in. Must be called with lock held.
func (f *FileStore) commit(next map[string]string) error {
	data, err := json.Marshal(next)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if f.maxBytes > 0 && len(data) > f.maxBytes {
		return ErrQuotaExceeded
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".kvstore-*")
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Join(ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(ErrUnavailable, err)
	}

	f.values = next
	return nil
}
