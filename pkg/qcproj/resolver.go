package qcproj

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Resolver maps a metadata record's compound key to the one extension that
// can open and save the referenced file.
type Resolver struct {
	mu         sync.RWMutex
	registry   *Registry
	extensions map[CapabilityKey]ContentExtension
}

// NewResolver creates a resolver that keeps registry in step with its own
// registrations. A nil registry gets a fresh one seeded with the Unknown pair.
func NewResolver(registry *Registry) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Resolver{
		registry:   registry,
		extensions: make(map[CapabilityKey]ContentExtension),
	}
}

// Registry returns the catalog backing the resolver.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Register installs ext under its compound key. Registering the same extension
// value again is a no-op; any other extension on a claimed key, including one
// whose type cannot be compared, is rejected with a *DuplicateCapabilityError
// and nothing is changed.
func (r *Resolver) Register(ext ContentExtension) error {
	if ext == nil {
		return fmt.Errorf("register extension: nil extension")
	}
	d := ext.Descriptor()
	key := d.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.extensions[key]; ok {
		if sameExtension(existing, ext) {
			return nil
		}
		return &DuplicateCapabilityError{
			ResourceTypeID: key.ResourceTypeID,
			LoaderID:       key.LoaderID,
			Existing:       existing.Descriptor().LoaderName,
			Rejected:       d.LoaderName,
		}
	}

	r.extensions[key] = ext
	r.registry.RegisterDescriptor(d)
	return nil
}

// Resolve returns the extension for meta's (resource type, loader) pair. The
// Unknown extension is only returned for metadata that actually carries the
// Unknown pair.
func (r *Resolver) Resolve(meta ContentMetadata) (ContentExtension, error) {
	key := KeyOf(meta)

	r.mu.RLock()
	ext, ok := r.extensions[key]
	r.mu.RUnlock()

	if !ok || !r.registry.Contains(key.ResourceTypeID, key.LoaderID) {
		return nil, &UnresolvedExtensionError{ResourceTypeID: key.ResourceTypeID, LoaderID: key.LoaderID}
	}
	return ext, nil
}

// Supports returns true if Resolve would succeed for meta.
func (r *Resolver) Supports(meta ContentMetadata) bool {
	_, err := r.Resolve(meta)
	return err == nil
}

// Contains returns true if an extension is installed for the pair. It lets a
// Resolver act as the Catalog for DecodeProject.
func (r *Resolver) Contains(resourceTypeID, loaderID uint16) bool {
	key := CapabilityKey{ResourceTypeID: resourceTypeID, LoaderID: loaderID}

	r.mu.RLock()
	_, ok := r.extensions[key]
	r.mu.RUnlock()

	return ok && r.registry.Contains(resourceTypeID, loaderID)
}

// Extensions returns the installed extensions keyed by compound key.
func (r *Resolver) Extensions() map[CapabilityKey]ContentExtension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[CapabilityKey]ContentExtension, len(r.extensions))
	for k, v := range r.extensions {
		out[k] = v
	}
	return out
}

// Open resolves entry's extension and opens its file.
func (r *Resolver) Open(ctx context.Context, entry ContentProjectEntry) (*ContentDocument, error) {
	ext, err := r.Resolve(entry.Metadata)
	if err != nil {
		return nil, err
	}
	return ext.Open(ctx, entry.FilePath)
}

// Save resolves entry's extension and writes doc to its file.
func (r *Resolver) Save(ctx context.Context, entry ContentProjectEntry, doc *ContentDocument) error {
	ext, err := r.Resolve(entry.Metadata)
	if err != nil {
		return err
	}
	return ext.Save(ctx, entry.FilePath, doc)
}

// sameExtension reports whether a and b are the same comparable value.
// Extensions that cannot be compared are never the same.
func sameExtension(a, b ContentExtension) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	va := reflect.ValueOf(a)
	if !va.Comparable() {
		return false
	}
	return va.Equal(reflect.ValueOf(b))
}
