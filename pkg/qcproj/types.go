package qcproj

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// Built-in resource type and loader ids.
const (
	ResourceTypeUnknown uint16 = 0
	ResourceTypeString  uint16 = 1

	LoaderUnknown uint16 = 0
	LoaderString  uint16 = 1
)

// File name suffixes.
const (
	ProjectFileExtension = ".qcproj"
	UnknownFileExtension = ".unkn"
	StringFileExtension  = ".qstr"
)

// ContentLoader identifies one content-handling implementation.
// Name is descriptive only.
type ContentLoader struct {
	ID   uint16 `json:"id"`
	Name string `json:"name"`
}

// Equal reports whether l and o refer to the same loader.
func (l ContentLoader) Equal(o ContentLoader) bool {
	return l.ID == o.ID
}

// ResourceType is a category of content and the loaders legal for it.
type ResourceType struct {
	ID        uint16   `json:"id"`
	Name      string   `json:"name"`
	LoaderIDs []uint16 `json:"loader_ids"`
}

// Supports returns true if loaderID is registered for this resource type.
func (r ResourceType) Supports(loaderID uint16) bool {
	return slices.Contains(r.LoaderIDs, loaderID)
}

func (r ResourceType) clone() ResourceType {
	r.LoaderIDs = slices.Clone(r.LoaderIDs)
	return r
}

// ContentMetadata describes one content item or a whole project.
//
// The identifier is assigned by NewContentMetadata and never changes. It exists
// for external references such as recent-file lists; Equal ignores it.
// ResourceTypeID and LoaderID may name a pair no registry knows about; the
// Registry and Resolver validate the pair before acting on it.
type ContentMetadata struct {
	id uuid.UUID

	Name           string
	ObeyPhysics    bool
	Visible        bool
	LoaderID       uint16
	ResourceTypeID uint16
	Version        CompilerVersion
}

// NewContentMetadata creates a metadata record with a fresh identifier and
// default field values. It panics if no identifier can be generated.
func NewContentMetadata() ContentMetadata {
	return ContentMetadata{
		id:             mustNewContentID(),
		Visible:        true,
		LoaderID:       LoaderUnknown,
		ResourceTypeID: ResourceTypeUnknown,
		Version:        CompilerVersionLatest,
	}
}

// ID returns the record's identifier.
func (m ContentMetadata) ID() uuid.UUID {
	return m.id
}

type metadataJSON struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	ObeyPhysics    bool             `json:"obey_physics"`
	Visible        *bool            `json:"visible,omitempty"`
	LoaderID       uint16           `json:"loader_id"`
	ResourceTypeID uint16           `json:"resource_type_id"`
	Version        *CompilerVersion `json:"version,omitempty"`
}

func (m ContentMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(metadataJSON{
		ID:             m.id,
		Name:           m.Name,
		ObeyPhysics:    m.ObeyPhysics,
		Visible:        &m.Visible,
		LoaderID:       m.LoaderID,
		ResourceTypeID: m.ResourceTypeID,
		Version:        &m.Version,
	})
}

// UnmarshalJSON keeps a supplied id and version, including version 0. Missing
// fields take the same defaults as NewContentMetadata, including a fresh id.
func (m *ContentMetadata) UnmarshalJSON(data []byte) error {
	var aux metadataJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ID == uuid.Nil {
		id, err := NewContentID()
		if err != nil {
			return err
		}
		aux.ID = id
	}
	*m = ContentMetadata{
		id:             aux.ID,
		Name:           aux.Name,
		ObeyPhysics:    aux.ObeyPhysics,
		Visible:        aux.Visible == nil || *aux.Visible,
		LoaderID:       aux.LoaderID,
		ResourceTypeID: aux.ResourceTypeID,
		Version:        CompilerVersionLatest,
	}
	if aux.Version != nil {
		m.Version = *aux.Version
	}
	return nil
}

// Equal compares every field except the identifier.
func (m ContentMetadata) Equal(o ContentMetadata) bool {
	return m.Name == o.Name &&
		m.ObeyPhysics == o.ObeyPhysics &&
		m.Visible == o.Visible &&
		m.LoaderID == o.LoaderID &&
		m.ResourceTypeID == o.ResourceTypeID &&
		m.Version == o.Version
}

// ContentProjectEntry binds a file path to the metadata describing it.
type ContentProjectEntry struct {
	FilePath string          `json:"file_path"`
	Metadata ContentMetadata `json:"metadata"`
}

// NewContentProjectEntry creates an entry that owns meta.
func NewContentProjectEntry(filePath string, meta ContentMetadata) ContentProjectEntry {
	return ContentProjectEntry{FilePath: filePath, Metadata: meta}
}

func (e ContentProjectEntry) String() string {
	return e.Metadata.Name
}

// Equal compares file paths and metadata, ignoring identifiers.
func (e ContentProjectEntry) Equal(o ContentProjectEntry) bool {
	return e.FilePath == o.FilePath && e.Metadata.Equal(o.Metadata)
}

// ContentProject is one project-level metadata record plus an ordered list of
// entries. Entry order is the on-disk order.
//
// A ContentProject is not safe for concurrent use. Callers must not mutate
// Entries while a save of the same project is in flight.
type ContentProject struct {
	Metadata ContentMetadata       `json:"metadata"`
	Entries  []ContentProjectEntry `json:"entries"`
}

// NewContentProject creates an empty project with default metadata.
func NewContentProject() *ContentProject {
	return &ContentProject{Metadata: NewContentMetadata()}
}

// Len returns the number of entries.
func (p *ContentProject) Len() int {
	return len(p.Entries)
}

// Add appends entries to the end of the project.
func (p *ContentProject) Add(entries ...ContentProjectEntry) {
	p.Entries = append(p.Entries, entries...)
}

// Insert places entry at index i, shifting later entries back.
func (p *ContentProject) Insert(i int, entry ContentProjectEntry) {
	p.Entries = slices.Insert(p.Entries, i, entry)
}

// Remove deletes the entry at index i.
func (p *ContentProject) Remove(i int) {
	p.Entries = slices.Delete(p.Entries, i, i+1)
}

// Clear removes every entry.
func (p *ContentProject) Clear() {
	p.Entries = nil
}

// Equal compares metadata and entries in order, ignoring identifiers.
func (p *ContentProject) Equal(o *ContentProject) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Metadata.Equal(o.Metadata) &&
		slices.EqualFunc(p.Entries, o.Entries, ContentProjectEntry.Equal)
}
