package qcproj

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ExtensionDescriptor is the capability an extension advertises when it is registered.
type ExtensionDescriptor struct {
	ResourceTypeID   uint16
	ResourceTypeName string
	LoaderID         uint16
	LoaderName       string
	FileExtension    string // suffix including the dot, e.g. ".qstr"
}

// Key returns the compound key the descriptor claims.
func (d ExtensionDescriptor) Key() CapabilityKey {
	return CapabilityKey{ResourceTypeID: d.ResourceTypeID, LoaderID: d.LoaderID}
}

// CapabilityKey is the (resource type, loader) pair used for extension lookup.
// A loader id only has meaning inside its resource type.
type CapabilityKey struct {
	ResourceTypeID uint16
	LoaderID       uint16
}

// KeyOf returns the compound key of a metadata record.
func KeyOf(meta ContentMetadata) CapabilityKey {
	return CapabilityKey{ResourceTypeID: meta.ResourceTypeID, LoaderID: meta.LoaderID}
}

// ContentDocument is content opened by an extension.
type ContentDocument struct {
	Path string
	Data []byte
}

// ContentExtension opens and saves one kind of content. The core only calls
// Open and Save through a Resolver.
type ContentExtension interface {
	// Descriptor returns the capability this extension provides
	Descriptor() ExtensionDescriptor

	// Open reads the content at path
	Open(ctx context.Context, path string) (*ContentDocument, error)

	// Save writes doc to path
	Save(ctx context.Context, path string, doc *ContentDocument) error
}

// Catalog answers whether a resource type/loader pair is known. *Registry implements it.
type Catalog interface {
	Contains(resourceTypeID, loaderID uint16) bool
}

// FileInfo describes a file held by a FileStore
type FileInfo struct {
	Path      string
	Size      int64
	UpdatedAt time.Time
}

// FileStore defines the interface for project and content file backends
type FileStore interface {
	// Read opens the file at path for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write replaces the file at path with everything read from r. A failed
	// write leaves any previous file untouched.
	Write(ctx context.Context, path string, r io.Reader) error

	// Delete removes the file at path
	Delete(ctx context.Context, path string) error

	// Stat returns information about the file at path
	Stat(ctx context.Context, path string) (*FileInfo, error)
}

// AccessListKind selects one of the access lists.
type AccessListKind string

const (
	// AccessRecent is the most-recently-used project list
	AccessRecent AccessListKind = "recent"
	// AccessFuture holds paths the application may reopen without asking again
	AccessFuture AccessListKind = "future"
)

// AccessEntry records one path on an access list
type AccessEntry struct {
	Token     uuid.UUID      `json:"token"`
	List      AccessListKind `json:"list"`
	Path      string         `json:"path"`
	Name      string         `json:"name,omitempty"`
	Checksum  uint64         `json:"checksum,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AccessRepository persists the recent and future access lists
type AccessRepository interface {
	// Upsert adds entry, or replaces the entry already holding the same path on the same list
	Upsert(ctx context.Context, entry *AccessEntry) error

	// Get returns the entry for path on list
	Get(ctx context.Context, list AccessListKind, path string) (*AccessEntry, error)

	// List returns every entry on list, most recently updated first
	List(ctx context.Context, list AccessListKind) ([]*AccessEntry, error)

	// Remove deletes the entry with token from list
	Remove(ctx context.Context, list AccessListKind, token uuid.UUID) error

	// Clear deletes every entry on list
	Clear(ctx context.Context, list AccessListKind) error
}

// EventSink defines the interface for project lifecycle events
type EventSink interface {
	// ProjectSaved is fired after a project file was written
	ProjectSaved(ctx context.Context, result *SaveResult) error

	// ProjectLoaded is fired after a project file was decoded
	ProjectLoaded(ctx context.Context, path string, result *LoadResult) error

	// ExtensionUnresolved is fired for each entry whose extension is not installed
	ExtensionUnresolved(ctx context.Context, path string, issue EntryIssue) error
}
