package qcproj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxRecentEntries caps the recent project list
	DefaultMaxRecentEntries = 25

	// DefaultMaxFutureAccessEntries caps the future access list. When it is
	// exceeded the list is cut to half, keeping the most recently used paths.
	DefaultMaxFutureAccessEntries = 900
)

// service implements the Service interface
type service struct {
	store      FileStore
	resolver   *Resolver
	access     AccessRepository
	eventSink  EventSink
	logger     *slog.Logger
	extensions []ContentExtension
	maxRecent  int
	maxFuture  int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithFileStore sets the store project files are read from and written to
func WithFileStore(store FileStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithResolver sets the resolver, and with it the registry, used by the service
func WithResolver(resolver *Resolver) Option {
	return func(s *service) {
		s.resolver = resolver
	}
}

// WithRegistry creates the service's resolver over an existing registry
func WithRegistry(registry *Registry) Option {
	return func(s *service) {
		s.resolver = NewResolver(registry)
	}
}

// WithExtension registers ext when the service is created
func WithExtension(ext ContentExtension) Option {
	return func(s *service) {
		s.extensions = append(s.extensions, ext)
	}
}

// WithAccessRepository enables the recent and future access lists
func WithAccessRepository(repo AccessRepository) Option {
	return func(s *service) {
		s.access = repo
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithMaxRecentEntries overrides DefaultMaxRecentEntries
func WithMaxRecentEntries(n int) Option {
	return func(s *service) {
		s.maxRecent = n
	}
}

// WithMaxFutureAccessEntries overrides DefaultMaxFutureAccessEntries
func WithMaxFutureAccessEntries(n int) Option {
	return func(s *service) {
		s.maxFuture = n
	}
}

// New creates a new service instance with the given options. The Unknown
// extension is always installed.
func New(options ...Option) (Service, error) {
	s := &service{
		maxRecent: DefaultMaxRecentEntries,
		maxFuture: DefaultMaxFutureAccessEntries,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("file store is required")
	}
	if s.maxRecent < 1 || s.maxFuture < 2 {
		return nil, fmt.Errorf("invalid access list limits: recent %d, future %d", s.maxRecent, s.maxFuture)
	}
	if s.resolver == nil {
		s.resolver = NewResolver(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if err := s.resolver.Register(NewUnknownExtension()); err != nil {
		return nil, err
	}
	for _, ext := range s.extensions {
		if err := s.resolver.Register(ext); err != nil {
			return nil, err
		}
	}
	s.extensions = nil

	return s, nil
}

// Capability operations

func (s *service) RegisterExtension(ext ContentExtension) error {
	if err := s.resolver.Register(ext); err != nil {
		return err
	}
	d := ext.Descriptor()
	s.logger.Debug("Registered extension",
		"resource_type", d.ResourceTypeID, "loader", d.LoaderID, "file_extension", d.FileExtension)
	return nil
}

func (s *service) ResourceTypes() []ResourceType {
	return s.resolver.Registry().ListResourceTypes()
}

func (s *service) FileExtensionFor(loaderID uint16) string {
	return s.resolver.Registry().FileExtensionFor(loaderID)
}

func (s *service) Supports(meta ContentMetadata) bool {
	return s.resolver.Supports(meta)
}

func (s *service) Resolve(meta ContentMetadata) (ContentExtension, error) {
	return s.resolver.Resolve(meta)
}

// NewEntryPath names a new content file after its metadata. An unnamed record
// uses its identifier.
func (s *service) NewEntryPath(dir string, meta ContentMetadata) string {
	name := meta.Name
	if name == "" {
		name = meta.ID().String()
	}
	return path.Join(dir, name+s.FileExtensionFor(meta.LoaderID))
}

// Project file operations

func (s *service) SaveProject(ctx context.Context, path string, project *ContentProject) (*SaveResult, error) {
	result, err := SaveProjectFile(ctx, s.store, path, project)
	if err != nil {
		return nil, err
	}

	s.recordAccess(ctx, AccessRecent, path, project.Metadata.Name, result.Checksum)

	if s.eventSink != nil {
		if err := s.eventSink.ProjectSaved(ctx, result); err != nil {
			s.logger.Warn("Event sink failed", "event", "project_saved", "path", path, "err", err)
		}
	}

	return result, nil
}

func (s *service) LoadProject(ctx context.Context, path string) (*LoadResult, error) {
	result, err := LoadFromFile(ctx, s.store, path, s.resolver)
	if err != nil {
		return nil, err
	}

	s.recordAccess(ctx, AccessRecent, path, result.Project.Metadata.Name, result.Checksum)
	s.recordAccess(ctx, AccessFuture, path, result.Project.Metadata.Name, result.Checksum)

	if s.eventSink != nil {
		for _, issue := range result.Issues {
			if err := s.eventSink.ExtensionUnresolved(ctx, path, issue); err != nil {
				s.logger.Warn("Event sink failed", "event", "extension_unresolved", "path", path, "err", err)
			}
		}
		if err := s.eventSink.ProjectLoaded(ctx, path, result); err != nil {
			s.logger.Warn("Event sink failed", "event", "project_loaded", "path", path, "err", err)
		}
	}

	return result, nil
}

// Content operations

func (s *service) OpenContent(ctx context.Context, entry ContentProjectEntry) (*ContentDocument, error) {
	doc, err := s.resolver.Open(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("open content %s: %w", entry.FilePath, err)
	}
	return doc, nil
}

func (s *service) SaveContent(ctx context.Context, entry ContentProjectEntry, doc *ContentDocument) error {
	if err := s.resolver.Save(ctx, entry, doc); err != nil {
		return fmt.Errorf("save content %s: %w", entry.FilePath, err)
	}
	return nil
}

// Access list operations

func (s *service) RecentProjects(ctx context.Context) ([]*AccessEntry, error) {
	if s.access == nil {
		return nil, nil
	}
	return s.access.List(ctx, AccessRecent)
}

func (s *service) ClearRecentProjects(ctx context.Context) error {
	if s.access == nil {
		return nil
	}
	return s.access.Clear(ctx, AccessRecent)
}

// GrantAccess adds an existing file to the future access list.
func (s *service) GrantAccess(ctx context.Context, path, name string) (*AccessEntry, error) {
	if s.access == nil {
		return nil, fmt.Errorf("grant access to %s: no access repository configured", path)
	}
	if _, err := s.store.Stat(ctx, path); err != nil {
		return nil, fmt.Errorf("grant access to %s: %w", path, err)
	}
	entry, err := s.upsertAccess(ctx, AccessFuture, path, name, 0)
	if err != nil {
		return nil, fmt.Errorf("grant access to %s: %w", path, err)
	}
	if err := s.trim(ctx, AccessFuture); err != nil {
		s.logger.Warn("Failed to trim access list", "list", AccessFuture, "err", err)
	}
	return entry, nil
}

func (s *service) RevokeAccess(ctx context.Context, token uuid.UUID) error {
	if s.access == nil {
		return ErrAccessEntryNotFound
	}
	return s.access.Remove(ctx, AccessFuture, token)
}

// OpenGranted opens path only if it is on the future access list.
func (s *service) OpenGranted(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.access == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccessNotGranted, path)
	}
	if _, err := s.access.Get(ctx, AccessFuture, path); err != nil {
		if errors.Is(err, ErrAccessEntryNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccessNotGranted, path)
		}
		return nil, err
	}
	return s.store.Read(ctx, path)
}

// recordAccess updates an access list as a side effect of a save or load.
// Failures are logged; the project operation already succeeded.
func (s *service) recordAccess(ctx context.Context, list AccessListKind, path, name string, checksum uint64) {
	if s.access == nil {
		return
	}
	if _, err := s.upsertAccess(ctx, list, path, name, checksum); err != nil {
		s.logger.Warn("Failed to record access", "list", list, "path", path, "err", err)
		return
	}
	if err := s.trim(ctx, list); err != nil {
		s.logger.Warn("Failed to trim access list", "list", list, "err", err)
	}
}

func (s *service) upsertAccess(ctx context.Context, list AccessListKind, path, name string, checksum uint64) (*AccessEntry, error) {
	now := time.Now().UTC()

	entry, err := s.access.Get(ctx, list, path)
	switch {
	case errors.Is(err, ErrAccessEntryNotFound):
		token, err := NewContentID()
		if err != nil {
			return nil, err
		}
		entry = &AccessEntry{Token: token, List: list, Path: path, CreatedAt: now}
	case err != nil:
		return nil, err
	}

	if name != "" {
		entry.Name = name
	}
	if checksum != 0 {
		entry.Checksum = checksum
	}
	entry.UpdatedAt = now

	if err := s.access.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) trim(ctx context.Context, list AccessListKind) error {
	entries, err := s.access.List(ctx, list)
	if err != nil {
		return err
	}

	keep := len(entries)
	switch list {
	case AccessRecent:
		keep = min(keep, s.maxRecent)
	case AccessFuture:
		if keep > s.maxFuture {
			keep = s.maxFuture / 2
		}
	}

	for _, e := range entries[keep:] {
		if err := s.access.Remove(ctx, list, e.Token); err != nil {
			return err
		}
	}
	return nil
}
