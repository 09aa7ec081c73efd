package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/tendant/qgl-content/pkg/qcproj"
)

type file struct {
	data      []byte
	updatedAt time.Time
}

// Backend is an in-memory implementation of the qcproj.FileStore interface
type Backend struct {
	mu    sync.RWMutex
	files map[string]file
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		files: make(map[string]file),
	}
}

func notFound(op, path string) error {
	return &qcproj.StorageError{Backend: "memory", Path: path, Op: op, Err: qcproj.ErrFileNotFound}
}

// Read returns a reader over a snapshot of the file
func (b *Backend) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	f, exists := b.files[path]
	if !exists {
		return nil, notFound("read", path)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// Write reads r to the end before swapping the new contents in, so a failed
// read leaves the previous file in place
func (b *Backend) Write(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &qcproj.StorageError{Backend: "memory", Path: path, Op: "write", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.files[path] = file{data: data, updatedAt: time.Now().UTC()}
	return nil
}

// Delete deletes a file
func (b *Backend) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.files[path]; !exists {
		return notFound("delete", path)
	}
	delete(b.files, path)
	return nil
}

// Stat returns the size and modification time of a file
func (b *Backend) Stat(ctx context.Context, path string) (*qcproj.FileInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	f, exists := b.files[path]
	if !exists {
		return nil, notFound("stat", path)
	}
	return &qcproj.FileInfo{Path: path, Size: int64(len(f.data)), UpdatedAt: f.updatedAt}, nil
}
