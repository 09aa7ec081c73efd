package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/qgl-content/pkg/qcproj"
)

type listKey struct {
	list qcproj.AccessListKind
	path string
}

type record struct {
	entry qcproj.AccessEntry
	seq   uint64
}

// Repository implements qcproj.AccessRepository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	entries map[listKey]*record
	seq     uint64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		entries: make(map[listKey]*record),
	}
}

func (r *Repository) Upsert(ctx context.Context, entry *qcproj.AccessEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.entries[listKey{entry.List, entry.Path}] = &record{entry: *entry, seq: r.seq}
	return nil
}

func (r *Repository) Get(ctx context.Context, list qcproj.AccessListKind, path string) (*qcproj.AccessEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.entries[listKey{list, path}]
	if !exists {
		return nil, qcproj.ErrAccessEntryNotFound
	}
	entryCopy := rec.entry
	return &entryCopy, nil
}

// List returns the entries most recently updated first. Entries written in the
// same instant are ordered by write order.
func (r *Repository) List(ctx context.Context, list qcproj.AccessListKind) ([]*qcproj.AccessEntry, error) {
	r.mu.RLock()
	var recs []*record
	for key, rec := range r.entries {
		if key.list == list {
			recs = append(recs, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.entry.UpdatedAt.Equal(b.entry.UpdatedAt) {
			return a.entry.UpdatedAt.After(b.entry.UpdatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]*qcproj.AccessEntry, len(recs))
	for i, rec := range recs {
		entryCopy := rec.entry
		out[i] = &entryCopy
	}
	return out, nil
}

func (r *Repository) Remove(ctx context.Context, list qcproj.AccessListKind, token uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, rec := range r.entries {
		if key.list == list && rec.entry.Token == token {
			delete(r.entries, key)
			return nil
		}
	}
	return qcproj.ErrAccessEntryNotFound
}

func (r *Repository) Clear(ctx context.Context, list qcproj.AccessListKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.entries {
		if key.list == list {
			delete(r.entries, key)
		}
	}
	return nil
}
