package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FilePersister stores each key as a file inside a directory.
type FilePersister struct {
	dir string
}

func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

func (p *FilePersister) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(p.dir, key), nil
}

func (p *FilePersister) Load(ctx context.Context, key string) ([]byte, error) {
	path, err := p.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Save replaces the value atomically via a temp file and rename.
func (p *FilePersister) Save(ctx context.Context, key string, value []byte) error {
	path, err := p.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(p.dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (p *FilePersister) Delete(ctx context.Context, key string) error {
	path, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
