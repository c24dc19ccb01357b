package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Persister loads and saves template pools between runs
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// LoadInto restores the store from p; a persister with nothing saved leaves it empty
func LoadInto(ctx context.Context, p Persister, store *TemplateStore) error {
	snap, err := p.Load(ctx)
	if err != nil {
		return err
	}
	store.Restore(snap)
	return nil
}

// YAMLFile persists templates as a single YAML document
type YAMLFile struct {
	path string
}

func NewYAMLFile(path string) *YAMLFile {
	return &YAMLFile{path: path}
}

var _ Persister = (*YAMLFile)(nil)

func (y *YAMLFile) Load(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(y.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No template file yet", "path", y.path)
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read template file: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse template file %s: %w", y.path, err)
	}

	slog.Debug("Loaded templates", "path", y.path, "alt", len(snap.Alt.Templates), "filename", len(snap.Filename.Templates))
	return snap, nil
}

func (y *YAMLFile) Save(ctx context.Context, snap Snapshot) error {
	if dir := filepath.Dir(y.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create template directory: %w", err)
		}
	}

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	// atomic replace
	tmp := y.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}
	if err := os.Rename(tmp, y.path); err != nil {
		return fmt.Errorf("failed to replace template file: %w", err)
	}
	return nil
}
