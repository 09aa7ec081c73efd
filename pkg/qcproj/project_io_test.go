package qcproj_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/qgl-content/pkg/qcproj"
	memorystorage "github.com/tendant/qgl-content/pkg/qcproj/storage/memory"
)

// Offsets into a file whose project metadata has an empty name.
const (
	offVersion       = 8
	offHeaderID      = 10
	offMetaObey      = 44
	offMetaVersion   = 50
	offEntryCount    = 52
	emptyProjectSize = 56
)

func floatProject() *qcproj.ContentProject {
	p := qcproj.NewContentProject()
	p.Metadata.Name = "New Project"
	p.Metadata.LoaderID = 1
	p.Metadata.ResourceTypeID = 2
	p.Metadata.Version = qcproj.CompilerVersionLatest

	for i, name := range []string{"Red Float", "Green Float", "Blue Float"} {
		m := qcproj.NewContentMetadata()
		m.Name = name
		m.LoaderID = 5
		m.ResourceTypeID = 2
		m.ObeyPhysics = i%2 == 0
		m.Visible = i != 1
		p.Add(qcproj.NewContentProjectEntry("floats/"+strings.ToLower(strings.Fields(name)[0])+".qflt", m))
	}
	return p
}

func encode(t *testing.T, p *qcproj.ContentProject) []byte {
	t.Helper()
	data, err := qcproj.EncodeProject(p)
	require.NoError(t, err)
	return data
}

func TestProjectRoundTrip(t *testing.T) {
	p := floatProject()
	data := encode(t, p)

	result, err := qcproj.DecodeProject(bytes.NewReader(data), nil)
	require.NoError(t, err)

	got := result.Project
	assert.True(t, p.Metadata.Equal(got.Metadata))
	assert.Equal(t, p.Metadata.ID(), got.Metadata.ID())
	require.Equal(t, p.Len(), got.Len())
	for i := range p.Entries {
		assert.Equal(t, p.Entries[i].FilePath, got.Entries[i].FilePath, "entry %d", i)
		assert.True(t, p.Entries[i].Metadata.Equal(got.Entries[i].Metadata), "entry %d", i)
		assert.Equal(t, p.Entries[i].Metadata.ID(), got.Entries[i].Metadata.ID(), "entry %d", i)
	}
	assert.True(t, p.Equal(got))
	assert.Equal(t, []string{"Red Float", "Green Float", "Blue Float"}, names(got))

	assert.Equal(t, qcproj.CompilerVersionLatest, result.Version)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.Equal(t, xxhash.Sum64(data), result.Checksum)
	assert.True(t, result.Resolved())

	// Re-encoding the decoded project reproduces the same bytes.
	assert.Equal(t, data, encode(t, got))
}

func TestProjectRoundTripEdgeValues(t *testing.T) {
	p := qcproj.NewContentProject()
	p.Metadata.Version = qcproj.CompilerVersion0_1

	m := qcproj.NewContentMetadata()
	m.Name = "Ünïcødé 名前 🎈"
	m.LoaderID = 0xFFFF
	m.ResourceTypeID = 0xFFFF
	p.Add(qcproj.NewContentProjectEntry("", m))
	p.Add(qcproj.NewContentProjectEntry(strings.Repeat("x", 0xFFFF), qcproj.NewContentMetadata()))

	result, err := qcproj.DecodeProject(bytes.NewReader(encode(t, p)), nil)
	require.NoError(t, err)
	assert.True(t, p.Equal(result.Project))
	assert.Equal(t, qcproj.CompilerVersion0_1, result.Project.Metadata.Version)
}

func TestProjectGoldenBytes(t *testing.T) {
	p := qcproj.NewContentProject()
	p.Metadata.Name = "Hi"
	p.Metadata.ObeyPhysics = true
	p.Metadata.LoaderID = 1
	p.Metadata.ResourceTypeID = 1
	id := p.Metadata.ID()

	var want bytes.Buffer
	le := binary.LittleEndian
	want.Write(le.AppendUint64(nil, qcproj.ProjectMagic))
	want.Write(le.AppendUint16(nil, uint16(qcproj.CompilerVersionLatest)))
	want.Write(id[:])
	want.Write(id[:])
	want.Write([]byte{2, 0, 'H', 0, 'i', 0})
	want.Write([]byte{1, 1})
	want.Write([]byte{1, 0, 1, 0})
	want.Write(le.AppendUint16(nil, uint16(qcproj.CompilerVersionLatest)))
	want.Write([]byte{0, 0, 0, 0})

	got := encode(t, p)
	assert.Equal(t, want.Bytes(), got)
	assert.Equal(t, []byte{0xE7, 0x8C, 0x1D, 0xB1, 0x4D, 0x3F, 0x47, 0x8A}, got[:8])
}

func TestDecodeProjectRejects(t *testing.T) {
	empty := encode(t, qcproj.NewContentProject())
	require.Len(t, empty, emptyProjectSize)

	mutate := func(f func(b []byte) []byte) []byte {
		return f(bytes.Clone(empty))
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "bad magic",
			data: mutate(func(b []byte) []byte { b[0] ^= 0xFF; return b }),
			want: qcproj.ErrMalformedFile,
		},
		{
			name: "garbage",
			data: []byte(strings.Repeat("not a project file", 8)),
			want: qcproj.ErrMalformedFile,
		},
		{
			name: "empty input",
			data: nil,
			want: qcproj.ErrMalformedFile,
		},
		{
			name: "newer header version",
			data: mutate(func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b[offVersion:], uint16(qcproj.CompilerVersionLatest)+1)
				return b
			}),
			want: qcproj.ErrUnsupportedVersion,
		},
		{
			name: "newer record version",
			data: mutate(func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b[offMetaVersion:], 0xFFFF)
				return b
			}),
			want: qcproj.ErrUnsupportedVersion,
		},
		{
			name: "header id does not match metadata",
			data: mutate(func(b []byte) []byte { b[offHeaderID] ^= 0xFF; return b }),
			want: qcproj.ErrMalformedFile,
		},
		{
			name: "invalid boolean",
			data: mutate(func(b []byte) []byte { b[offMetaObey] = 2; return b }),
			want: qcproj.ErrMalformedFile,
		},
		{
			name: "entry count larger than data",
			data: mutate(func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[offEntryCount:], 0xFFFFFFFF)
				return b
			}),
			want: qcproj.ErrMalformedFile,
		},
		{
			name: "trailing data",
			data: mutate(func(b []byte) []byte { return append(b, 0) }),
			want: qcproj.ErrMalformedFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := qcproj.DecodeProject(bytes.NewReader(tt.data), nil)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var formatErr *qcproj.FormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestDecodeProjectMagicCheckedFirst(t *testing.T) {
	data := encode(t, floatProject())
	data[7] = 0
	binary.LittleEndian.PutUint16(data[offVersion:], 0xFFFF)

	_, err := qcproj.DecodeProject(bytes.NewReader(data), nil)
	assert.ErrorIs(t, err, qcproj.ErrMalformedFile)
	assert.NotErrorIs(t, err, qcproj.ErrUnsupportedVersion)
}

func TestDecodeProjectTruncated(t *testing.T) {
	data := encode(t, floatProject())

	for n := 0; n < len(data); n++ {
		_, err := qcproj.DecodeProject(bytes.NewReader(data[:n]), nil)
		require.ErrorIs(t, err, qcproj.ErrMalformedFile, "truncated at %d of %d", n, len(data))
	}
}

func TestEncodeProjectErrors(t *testing.T) {
	t.Run("nil project", func(t *testing.T) {
		_, err := qcproj.EncodeProject(nil)
		assert.Error(t, err)
	})

	t.Run("string too long", func(t *testing.T) {
		p := qcproj.NewContentProject()
		p.Metadata.Name = strings.Repeat("a", 0x10000)
		_, err := qcproj.EncodeProject(p)
		assert.ErrorIs(t, err, qcproj.ErrStringTooLong)
	})

	t.Run("surrogate pairs count as two units", func(t *testing.T) {
		p := qcproj.NewContentProject()
		p.Add(qcproj.NewContentProjectEntry(strings.Repeat("🎈", 0x8000), qcproj.NewContentMetadata()))
		_, err := qcproj.EncodeProject(p)
		assert.ErrorIs(t, err, qcproj.ErrStringTooLong)
	})

	t.Run("invalid UTF-8 name", func(t *testing.T) {
		p := qcproj.NewContentProject()
		p.Metadata.Name = "bad\xffutf8"
		_, err := qcproj.EncodeProject(p)
		assert.ErrorIs(t, err, qcproj.ErrInvalidString)
		var formatErr *qcproj.FormatError
		assert.ErrorAs(t, err, &formatErr)
	})

	t.Run("invalid UTF-8 entry path", func(t *testing.T) {
		p := floatProject()
		p.Entries[1].FilePath = "floats/\xc3(.qflt"
		_, err := qcproj.EncodeProject(p)
		assert.ErrorIs(t, err, qcproj.ErrInvalidString)
	})

	t.Run("unsupported record version", func(t *testing.T) {
		p := floatProject()
		p.Entries[2].Metadata.Version = qcproj.CompilerVersionLatest + 1
		_, err := qcproj.EncodeProject(p)
		assert.ErrorIs(t, err, qcproj.ErrUnsupportedVersion)
	})
}

func TestDecodeProjectSurrogates(t *testing.T) {
	p := qcproj.NewContentProject()
	p.Metadata.Name = "ab"
	data := encode(t, p)
	const offNameUnits = 44

	tests := []struct {
		name  string
		units [2]uint16
		want  string
		err   error
	}{
		{name: "pair", units: [2]uint16{0xD83C, 0xDF88}, want: "🎈"},
		{name: "lone high surrogate", units: [2]uint16{0xD800, 'b'}, err: qcproj.ErrMalformedFile},
		{name: "lone low surrogate", units: [2]uint16{'a', 0xDC00}, err: qcproj.ErrMalformedFile},
		{name: "high surrogate at end", units: [2]uint16{'a', 0xD800}, err: qcproj.ErrMalformedFile},
		{name: "reversed pair", units: [2]uint16{0xDF88, 0xD83C}, err: qcproj.ErrMalformedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytes.Clone(data)
			binary.LittleEndian.PutUint16(b[offNameUnits:], tt.units[0])
			binary.LittleEndian.PutUint16(b[offNameUnits+2:], tt.units[1])

			result, err := qcproj.DecodeProject(bytes.NewReader(b), nil)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				var formatErr *qcproj.FormatError
				assert.ErrorAs(t, err, &formatErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Project.Metadata.Name)
		})
	}
}

func TestProjectRecordVersionZero(t *testing.T) {
	data := encode(t, qcproj.NewContentProject())
	binary.LittleEndian.PutUint16(data[offMetaVersion:], 0)

	result, err := qcproj.DecodeProject(bytes.NewReader(data), nil)
	require.NoError(t, err)
	meta := result.Project.Metadata
	assert.Equal(t, qcproj.CompilerVersion(0), meta.Version)

	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	var back qcproj.ContentMetadata
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, qcproj.CompilerVersion(0), back.Version)
	assert.True(t, meta.Equal(back))

	assert.Equal(t, data, encode(t, result.Project))
}

func TestEncodeProjectDoesNotMutate(t *testing.T) {
	p := floatProject()
	before := *p
	before.Entries = append([]qcproj.ContentProjectEntry(nil), p.Entries...)

	encode(t, p)
	assert.Equal(t, before.Metadata, p.Metadata)
	assert.Equal(t, before.Entries, p.Entries)
}

func TestDecodeProjectUnknownPair(t *testing.T) {
	ctx := context.Background()
	store := memorystorage.New()

	p := floatProject()
	odd := qcproj.NewContentMetadata()
	odd.Name = "Mystery"
	odd.ResourceTypeID = 99
	odd.LoaderID = 99
	p.Insert(1, qcproj.NewContentProjectEntry("mystery.q99", odd))

	_, err := qcproj.SaveProjectFile(ctx, store, "mystery.qcproj", p)
	require.NoError(t, err)

	resolver := qcproj.NewResolver(nil)
	require.NoError(t, resolver.Register(qcproj.NewUnknownExtension()))
	require.NoError(t, resolver.Register(qcproj.NewStoreExtension(floatDescriptor(5), store)))
	require.NoError(t, resolver.Register(qcproj.NewStoreExtension(qcproj.ExtensionDescriptor{
		ResourceTypeID: 2, ResourceTypeName: "Float", LoaderID: 1, LoaderName: "Float Project", FileExtension: ".qfp",
	}, store)))

	result, err := qcproj.LoadFromFile(ctx, store, "mystery.qcproj", resolver)
	require.NoError(t, err)
	require.Equal(t, 4, result.Project.Len())
	assert.True(t, p.Equal(result.Project))
	assert.False(t, result.Resolved())

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, 1, issue.Index)
	assert.Equal(t, "mystery.q99", issue.FilePath)
	assert.Equal(t, "Mystery", issue.Name)
	assert.ErrorIs(t, issue.Err, qcproj.ErrUnresolvedExtension)

	loaded := result.Project.Entries[1].Metadata
	assert.Equal(t, uint16(99), loaded.ResourceTypeID)
	assert.Equal(t, uint16(99), loaded.LoaderID)

	ext, err := resolver.Resolve(loaded)
	assert.Nil(t, ext)
	assert.ErrorIs(t, err, qcproj.ErrUnresolvedExtension)
	assert.True(t, resolver.Supports(result.Project.Entries[0].Metadata))
}

func TestDecodeProjectIssues(t *testing.T) {
	data := encode(t, floatProject())

	result, err := qcproj.DecodeProject(bytes.NewReader(data), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Issues, "nil catalog skips resolution")

	result, err = qcproj.DecodeProject(bytes.NewReader(data), qcproj.NewRegistry())
	require.NoError(t, err)
	require.Len(t, result.Issues, 4)
	assert.Equal(t, qcproj.ProjectIssueIndex, result.Issues[0].Index)
	assert.Equal(t, "New Project", result.Issues[0].Name)
	for i, issue := range result.Issues[1:] {
		assert.Equal(t, i, issue.Index)
	}

	registry := qcproj.NewRegistry()
	registry.RegisterDescriptor(floatDescriptor(1))
	registry.RegisterDescriptor(floatDescriptor(5))
	result, err = qcproj.DecodeProject(bytes.NewReader(data), registry)
	require.NoError(t, err)
	assert.True(t, result.Resolved())
}

func TestSaveProjectFile(t *testing.T) {
	ctx := context.Background()
	store := memorystorage.New()
	p := floatProject()

	saved, err := qcproj.SaveProjectFile(ctx, store, "floats.qcproj", p)
	require.NoError(t, err)
	assert.Equal(t, "floats.qcproj", saved.Path)
	assert.Equal(t, 3, saved.Entries)

	data := encode(t, p)
	assert.Equal(t, int64(len(data)), saved.Size)
	assert.Equal(t, xxhash.Sum64(data), saved.Checksum)

	info, err := store.Stat(ctx, "floats.qcproj")
	require.NoError(t, err)
	assert.Equal(t, saved.Size, info.Size)

	t.Run("encode failure leaves previous file", func(t *testing.T) {
		broken := floatProject()
		broken.Metadata.Version = qcproj.CompilerVersionLatest + 1

		_, err := qcproj.SaveProjectFile(ctx, store, "floats.qcproj", broken)
		require.Error(t, err)
		var projectErr *qcproj.ProjectError
		require.ErrorAs(t, err, &projectErr)
		assert.Equal(t, "save", projectErr.Op)

		loaded, err := qcproj.LoadFromFile(ctx, store, "floats.qcproj", nil)
		require.NoError(t, err)
		assert.True(t, p.Equal(loaded.Project))
		assert.Equal(t, saved.Checksum, loaded.Checksum)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := qcproj.LoadFromFile(ctx, store, "missing.qcproj", nil)
		assert.ErrorIs(t, err, qcproj.ErrFileNotFound)
		var projectErr *qcproj.ProjectError
		require.ErrorAs(t, err, &projectErr)
		assert.Equal(t, "load", projectErr.Op)
	})

	t.Run("malformed file", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "bad.qcproj", bytes.NewReader([]byte("nope"))))
		_, err := qcproj.LoadFromFile(ctx, store, "bad.qcproj", nil)
		assert.ErrorIs(t, err, qcproj.ErrMalformedFile)
	})
}
