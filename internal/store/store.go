package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is a persistent key-value store for small documents: the token cache
// and published calendar files. Keys may contain slashes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	GetJSON(ctx context.Context, key string, v any) error
	SetJSON(ctx context.Context, key string, v any) error
	SetWithExtension(ctx context.Context, key string, ext string, value []byte) error
}

// LocalStore is a file-based implementation of Store rooted at a directory.
type LocalStore struct {
	dir string
	mu  sync.RWMutex
}

// NewLocal creates a new LocalStore with the specified directory.
func NewLocal(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Get retrieves the raw value stored under key.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.keyPath(key, ".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Set stores a value with the given key.
func (s *LocalStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeAtomic(s.keyPath(key, ".json"), value)
}

// GetJSON retrieves and unmarshals a JSON value.
func (s *LocalStore) GetJSON(ctx context.Context, key string, v any) error {
	return getJSON(ctx, s, key, v)
}

// SetJSON marshals and stores a value as indented JSON.
func (s *LocalStore) SetJSON(ctx context.Context, key string, v any) error {
	return setJSON(ctx, s, key, v)
}

// SetWithExtension stores raw bytes with a custom file extension.
func (s *LocalStore) SetWithExtension(_ context.Context, key string, ext string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeAtomic(s.keyPath(key, ext), value)
}

func (s *LocalStore) keyPath(key, ext string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key)+ext)
}

// writeAtomic replaces path so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func getJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func setJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
