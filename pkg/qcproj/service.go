package qcproj

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the main interface for the qcproj library
type Service interface {
	// Capability operations
	RegisterExtension(ext ContentExtension) error
	ResourceTypes() []ResourceType
	FileExtensionFor(loaderID uint16) string
	Supports(meta ContentMetadata) bool
	Resolve(meta ContentMetadata) (ContentExtension, error)
	NewEntryPath(dir string, meta ContentMetadata) string

	// Project file operations
	SaveProject(ctx context.Context, path string, project *ContentProject) (*SaveResult, error)
	LoadProject(ctx context.Context, path string) (*LoadResult, error)

	// Content operations
	OpenContent(ctx context.Context, entry ContentProjectEntry) (*ContentDocument, error)
	SaveContent(ctx context.Context, entry ContentProjectEntry, doc *ContentDocument) error

	// Access list operations
	RecentProjects(ctx context.Context) ([]*AccessEntry, error)
	ClearRecentProjects(ctx context.Context) error
	GrantAccess(ctx context.Context, path, name string) (*AccessEntry, error)
	RevokeAccess(ctx context.Context, token uuid.UUID) error
	OpenGranted(ctx context.Context, path string) (io.ReadCloser, error)
}
