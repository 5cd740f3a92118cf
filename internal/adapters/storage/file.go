package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File keeps each namespace as a JSON object in <dir>/<namespace>.json. Only
// the caller of Open holds the values in memory; the provider keeps nothing.
type File struct {
	dir string
}

// NewFile returns a provider rooted at dir, creating it when missing.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

// Open loads the namespace file, or starts empty when it does not exist yet.
func (f *File) Open(_ context.Context, namespace string) (Store, error) {
	if err := checkNamespace(namespace); err != nil {
		return nil, err
	}
	s := &fileStore{path: filepath.Join(f.dir, namespace+".json"), values: map[string]string{}}
	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("storage: read %s: %w", s.path, err)
	default:
		if err := json.Unmarshal(b, &s.values); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
		}
	}
	return s, nil
}

// Release is a no-op: the namespace already lives on disk.
func (f *File) Release(string) {}

type fileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

func (s *fileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *fileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return s.flush()
}

// flush writes the whole namespace through a temp file and rename. Callers hold mu.
func (s *fileStore) flush() error {
	b, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", s.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".scout-*")
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", s.path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("storage: write %s: %w", s.path, err)
	}
	return nil
}
