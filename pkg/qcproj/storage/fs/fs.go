package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tendant/qgl-content/pkg/qcproj"
)

// Backend is a filesystem implementation of the qcproj.FileStore interface.
// Paths are slash-separated and relative to the base directory.
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

func (b *Backend) wrap(op, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		err = fmt.Errorf("%w: %v", qcproj.ErrFileNotFound, err)
	}
	return &qcproj.StorageError{Backend: "fs", Path: path, Op: op, Err: err}
}

func (b *Backend) resolve(path string) (string, error) {
	local := filepath.FromSlash(path)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("path %q escapes the base directory", path)
	}
	return filepath.Join(b.baseDir, local), nil
}

// Read opens a file for reading
func (b *Backend) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	filePath, err := b.resolve(path)
	if err != nil {
		return nil, b.wrap("read", path, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, b.wrap("read", path, err)
	}
	return file, nil
}

// Write streams r into a temporary file next to the target and renames it into
// place. The target is never seen half written.
func (b *Backend) Write(ctx context.Context, path string, r io.Reader) error {
	filePath, err := b.resolve(path)
	if err != nil {
		return b.wrap("write", path, err)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return b.wrap("write", path, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return b.wrap("write", path, fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return b.wrap("write", path, fmt.Errorf("failed to write file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return b.wrap("write", path, fmt.Errorf("failed to sync file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return b.wrap("write", path, fmt.Errorf("failed to close file: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return b.wrap("write", path, err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return b.wrap("write", path, fmt.Errorf("failed to replace file: %w", err))
	}
	committed = true
	return nil
}

// Delete removes a file
func (b *Backend) Delete(ctx context.Context, path string) error {
	filePath, err := b.resolve(path)
	if err != nil {
		return b.wrap("delete", path, err)
	}
	if err := os.Remove(filePath); err != nil {
		return b.wrap("delete", path, err)
	}
	return nil
}

// Stat returns the size and modification time of a file
func (b *Backend) Stat(ctx context.Context, path string) (*qcproj.FileInfo, error) {
	filePath, err := b.resolve(path)
	if err != nil {
		return nil, b.wrap("stat", path, err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, b.wrap("stat", path, err)
	}
	if info.IsDir() {
		return nil, b.wrap("stat", path, fmt.Errorf("%s is a directory", path))
	}
	return &qcproj.FileInfo{Path: path, Size: info.Size(), UpdatedAt: info.ModTime()}, nil
}
