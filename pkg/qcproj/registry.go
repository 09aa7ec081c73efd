package qcproj

import "sync"

// Registry is the catalog of resource types and loaders backed by installed
// extensions. It is populated at startup and read-mostly afterwards; there is
// no way to remove a registration.
type Registry struct {
	mu             sync.RWMutex
	resourceTypes  []ResourceType
	typeIndex      map[uint16]int
	loaders        map[uint16]ContentLoader
	fileExtensions map[uint16]string
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithStringContent seeds the basic string pair (1,1).
func WithStringContent() RegistryOption {
	return func(r *Registry) {
		r.add(stringDescriptor)
	}
}

var (
	unknownDescriptor = ExtensionDescriptor{
		ResourceTypeID:   ResourceTypeUnknown,
		ResourceTypeName: "Unknown",
		LoaderID:         LoaderUnknown,
		LoaderName:       "Unknown",
		FileExtension:    UnknownFileExtension,
	}
	stringDescriptor = ExtensionDescriptor{
		ResourceTypeID:   ResourceTypeString,
		ResourceTypeName: "String",
		LoaderID:         LoaderString,
		LoaderName:       "String",
		FileExtension:    StringFileExtension,
	}
)

// NewRegistry creates a registry holding the built-in Unknown pair (0,0).
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		typeIndex:      make(map[uint16]int),
		loaders:        make(map[uint16]ContentLoader),
		fileExtensions: make(map[uint16]string),
	}
	r.add(unknownDescriptor)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records the pair ext claims. Registering a pair that is already
// present does nothing.
func (r *Registry) Register(ext ContentExtension) {
	r.RegisterDescriptor(ext.Descriptor())
}

// RegisterDescriptor is Register for callers that only hold a descriptor.
func (r *Registry) RegisterDescriptor(d ExtensionDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(d)
}

func (r *Registry) add(d ExtensionDescriptor) {
	idx, ok := r.typeIndex[d.ResourceTypeID]
	if !ok {
		r.typeIndex[d.ResourceTypeID] = len(r.resourceTypes)
		r.resourceTypes = append(r.resourceTypes, ResourceType{
			ID:        d.ResourceTypeID,
			Name:      d.ResourceTypeName,
			LoaderIDs: []uint16{d.LoaderID},
		})
	} else if !r.resourceTypes[idx].Supports(d.LoaderID) {
		r.resourceTypes[idx].LoaderIDs = append(r.resourceTypes[idx].LoaderIDs, d.LoaderID)
	}

	// First registration of a loader id names it and owns its suffix.
	if _, ok := r.loaders[d.LoaderID]; !ok {
		r.loaders[d.LoaderID] = ContentLoader{ID: d.LoaderID, Name: d.LoaderName}
		r.fileExtensions[d.LoaderID] = d.FileExtension
	}
}

// ListResourceTypes returns copies of every resource type in first-registration order.
func (r *Registry) ListResourceTypes() []ResourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ResourceType, len(r.resourceTypes))
	for i, rt := range r.resourceTypes {
		out[i] = rt.clone()
	}
	return out
}

// Contains returns true if loaderID is registered under resourceTypeID.
func (r *Registry) Contains(resourceTypeID, loaderID uint16) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.typeIndex[resourceTypeID]
	return ok && r.resourceTypes[idx].Supports(loaderID)
}

// ResourceType looks up a resource type by id.
func (r *Registry) ResourceType(id uint16) (ResourceType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.typeIndex[id]
	if !ok {
		return ResourceType{}, false
	}
	return r.resourceTypes[idx].clone(), true
}

// Loader looks up a content loader by id.
func (r *Registry) Loader(id uint16) (ContentLoader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.loaders[id]
	return l, ok
}

// LoadersFor returns the loaders registered for a resource type, in registration order.
func (r *Registry) LoadersFor(resourceTypeID uint16) []ContentLoader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.typeIndex[resourceTypeID]
	if !ok {
		return nil
	}
	ids := r.resourceTypes[idx].LoaderIDs
	out := make([]ContentLoader, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.loaders[id])
	}
	return out
}

// FileExtensionFor returns the suffix registered for loaderID, or ".unkn" when
// no extension claims it.
func (r *Registry) FileExtensionFor(loaderID uint16) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ext, ok := r.fileExtensions[loaderID]; ok && ext != "" {
		return ext
	}
	return UnknownFileExtension
}
