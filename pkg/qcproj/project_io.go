package qcproj

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
)

// ProjectMagic opens every project file.
const ProjectMagic uint64 = 0x8A473F4DB11D8CE7

// ProjectIssueIndex is the EntryIssue index used for the project-level metadata record.
const ProjectIssueIndex = -1

// maxEntryPrealloc bounds the slice capacity reserved from an untrusted entry count.
const maxEntryPrealloc = 1024

// EntryIssue reports a decoded record whose extension is not installed. The
// record is still loaded; only operations needing the extension fail.
type EntryIssue struct {
	Index    int
	FilePath string
	Name     string
	Err      error
}

// LoadResult is a decoded project plus the per-entry issues found while
// resolving it against the caller's catalog.
type LoadResult struct {
	Project  *ContentProject
	Version  CompilerVersion
	Issues   []EntryIssue
	Size     int64
	Checksum uint64
}

// Resolved returns true if every record resolved against the catalog.
func (r *LoadResult) Resolved() bool {
	return len(r.Issues) == 0
}

// SaveResult describes a project file that was written.
type SaveResult struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Entries  int    `json:"entries"`
	Checksum uint64 `json:"checksum"`
}

// WriteTo encodes p to w. It does not modify p. A failing w may be left with
// a partial file; use SaveProjectFile for all-or-nothing writes.
func (p *ContentProject) WriteTo(w io.Writer) (int64, error) {
	if p == nil {
		return 0, errors.New("write project: nil project")
	}
	if uint64(len(p.Entries)) > math.MaxUint32 {
		return 0, &FormatError{Op: "encode entry count", Err: fmt.Errorf("too many entries: %d", len(p.Entries))}
	}

	e := &encoder{w: w}
	e.u64(ProjectMagic)
	e.u16(uint16(CompilerVersionLatest))
	e.id(p.Metadata.id)
	e.metadata(p.Metadata)
	e.u32(uint32(len(p.Entries)))
	for _, entry := range p.Entries {
		e.str("encode entry path", entry.FilePath)
		e.metadata(entry.Metadata)
	}
	return e.n, e.err
}

// EncodeProject returns the complete file image of p.
func EncodeProject(p *ContentProject) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeProject reads one project file from r. Format and version errors
// abort the decode and no project is returned. Records whose pair is unknown
// to known are kept and reported in LoadResult.Issues; a nil known skips
// that check. Identifiers are preserved exactly as stored.
func DecodeProject(r io.Reader, known Catalog) (*LoadResult, error) {
	digest := xxhash.New()
	r = io.TeeReader(r, digest)
	d := &decoder{r: r}

	magic, err := d.u64("decode magic")
	if err != nil {
		return nil, err
	}
	if magic != ProjectMagic {
		return nil, d.malformed("decode magic", 0, "bad magic number %#x", magic)
	}

	version, err := d.version("decode header version")
	if err != nil {
		return nil, err
	}

	projectID, err := d.id("decode header id")
	if err != nil {
		return nil, err
	}

	metaAt := d.off
	meta, err := d.metadata("decode project metadata")
	if err != nil {
		return nil, err
	}
	if meta.id != projectID {
		return nil, d.malformed("decode project metadata", metaAt,
			"project id %s does not match metadata id %s", projectID, meta.id)
	}

	count, err := d.u32("decode entry count")
	if err != nil {
		return nil, err
	}

	project := &ContentProject{
		Metadata: meta,
		Entries:  make([]ContentProjectEntry, 0, min(int(count), maxEntryPrealloc)),
	}
	for i := uint32(0); i < count; i++ {
		path, err := d.str(fmt.Sprintf("decode entry %d path", i))
		if err != nil {
			return nil, err
		}
		entryMeta, err := d.metadata(fmt.Sprintf("decode entry %d metadata", i))
		if err != nil {
			return nil, err
		}
		project.Entries = append(project.Entries, ContentProjectEntry{FilePath: path, Metadata: entryMeta})
	}

	var extra [1]byte
	n, err := io.ReadFull(r, extra[:])
	if n > 0 {
		return nil, d.malformed("decode trailer", d.off, "unexpected data after last entry")
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &FormatError{Op: "decode trailer", Offset: d.off, Err: err}
	}

	return &LoadResult{
		Project:  project,
		Version:  version,
		Issues:   resolveIssues(project, known),
		Size:     d.off,
		Checksum: digest.Sum64(),
	}, nil
}

func resolveIssues(p *ContentProject, known Catalog) []EntryIssue {
	if known == nil {
		return nil
	}
	var issues []EntryIssue
	check := func(index int, path string, m ContentMetadata) {
		if known.Contains(m.ResourceTypeID, m.LoaderID) {
			return
		}
		issues = append(issues, EntryIssue{
			Index:    index,
			FilePath: path,
			Name:     m.Name,
			Err:      &UnresolvedExtensionError{ResourceTypeID: m.ResourceTypeID, LoaderID: m.LoaderID},
		})
	}
	check(ProjectIssueIndex, "", p.Metadata)
	for i, entry := range p.Entries {
		check(i, entry.FilePath, entry.Metadata)
	}
	return issues
}

// SaveProjectFile encodes p in full and only then hands the image to store,
// so an encoding error never reaches the target path.
func SaveProjectFile(ctx context.Context, store FileStore, path string, p *ContentProject) (*SaveResult, error) {
	data, err := EncodeProject(p)
	if err != nil {
		return nil, &ProjectError{Path: path, Op: "save", Err: err}
	}
	if err := store.Write(ctx, path, bytes.NewReader(data)); err != nil {
		return nil, &ProjectError{Path: path, Op: "save", Err: err}
	}
	return &SaveResult{
		Path:     path,
		Size:     int64(len(data)),
		Entries:  len(p.Entries),
		Checksum: xxhash.Sum64(data),
	}, nil
}

// LoadFromFile reads and decodes the project file at path.
func LoadFromFile(ctx context.Context, store FileStore, path string, known Catalog) (*LoadResult, error) {
	rc, err := store.Read(ctx, path)
	if err != nil {
		return nil, &ProjectError{Path: path, Op: "load", Err: err}
	}
	defer rc.Close()

	result, err := DecodeProject(rc, known)
	if err != nil {
		return nil, &ProjectError{Path: path, Op: "load", Err: err}
	}
	return result, nil
}
