package implementation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ai-pdfchat-client/internal/repository/contract"

	"gopkg.in/yaml.v3"
)

// FileClientStateRepositoryImpl persists client state as a YAML map. Every
// write rewrites the file through a temp file + rename.
type FileClientStateRepositoryImpl struct {
	path   string
	mu     sync.Mutex
	values map[string]string
	loaded bool
}

type clientStateFile struct {
	Version int               `yaml:"version"`
	Values  map[string]string `yaml:"values"`
}

func NewFileClientStateRepository(path string) contract.ClientStateRepository {
	return &FileClientStateRepositoryImpl{path: path}
}

func (r *FileClientStateRepositoryImpl) load() error {
	if r.loaded {
		return nil
	}
	r.values = make(map[string]string)

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.loaded = true
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}

	var f clientStateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse state file %s: %w", r.path, err)
	}
	for k, v := range f.Values {
		r.values[k] = v
	}
	r.loaded = true
	return nil
}

func (r *FileClientStateRepositoryImpl) flush() error {
	data, err := yaml.Marshal(clientStateFile{Version: 1, Values: r.values})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (r *FileClientStateRepositoryImpl) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return "", false, err
	}
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *FileClientStateRepositoryImpl) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	r.values[key] = value
	return r.flush()
}

func (r *FileClientStateRepositoryImpl) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	if _, ok := r.values[key]; !ok {
		return nil
	}
	delete(r.values, key)
	return r.flush()
}

func (r *FileClientStateRepositoryImpl) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = make(map[string]string)
	r.loaded = true
	return r.flush()
}
