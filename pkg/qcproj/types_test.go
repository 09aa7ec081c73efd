package qcproj_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/qgl-content/pkg/qcproj"
)

func TestNewContentMetadataDefaults(t *testing.T) {
	m := qcproj.NewContentMetadata()

	assert.NotEqual(t, uuid.Nil, m.ID())
	assert.Equal(t, "", m.Name)
	assert.False(t, m.ObeyPhysics)
	assert.True(t, m.Visible)
	assert.Equal(t, qcproj.LoaderUnknown, m.LoaderID)
	assert.Equal(t, qcproj.ResourceTypeUnknown, m.ResourceTypeID)
	assert.Equal(t, qcproj.CompilerVersionLatest, m.Version)
}

func TestNewContentIDUnique(t *testing.T) {
	seen := make(map[uuid.UUID]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := qcproj.NewContentID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id after %d calls", i)
		seen[id] = struct{}{}
	}

	a, b := qcproj.NewContentMetadata(), qcproj.NewContentMetadata()
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestContentMetadataEqual(t *testing.T) {
	base := qcproj.NewContentMetadata()
	base.Name = "Red Float"
	base.LoaderID = 1
	base.ResourceTypeID = 2

	other := qcproj.NewContentMetadata()
	other.Name = "Red Float"
	other.LoaderID = 1
	other.ResourceTypeID = 2

	require.NotEqual(t, base.ID(), other.ID())
	assert.True(t, base.Equal(other), "identifiers must not affect equality")

	tests := []struct {
		name   string
		mutate func(m *qcproj.ContentMetadata)
	}{
		{"name", func(m *qcproj.ContentMetadata) { m.Name = "Blue Float" }},
		{"obey physics", func(m *qcproj.ContentMetadata) { m.ObeyPhysics = true }},
		{"visible", func(m *qcproj.ContentMetadata) { m.Visible = false }},
		{"loader", func(m *qcproj.ContentMetadata) { m.LoaderID = 7 }},
		{"resource type", func(m *qcproj.ContentMetadata) { m.ResourceTypeID = 7 }},
		{"version", func(m *qcproj.ContentMetadata) { m.Version = qcproj.CompilerVersion0_1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := other
			tt.mutate(&changed)
			assert.False(t, base.Equal(changed))
			assert.Equal(t, other.ID(), changed.ID())
		})
	}
}

func TestContentProjectEntry(t *testing.T) {
	meta := qcproj.NewContentMetadata()
	meta.Name = "Green Float"
	entry := qcproj.NewContentProjectEntry("floats/green.qstr", meta)

	assert.Equal(t, "Green Float", entry.String())

	entry.FilePath = "floats/green-2.qstr"
	assert.Equal(t, meta.ID(), entry.Metadata.ID())
	assert.False(t, entry.Equal(qcproj.NewContentProjectEntry("floats/green.qstr", meta)))
}

func TestContentProjectMutation(t *testing.T) {
	p := qcproj.NewContentProject()
	assert.Equal(t, 0, p.Len())

	entry := func(name string) qcproj.ContentProjectEntry {
		m := qcproj.NewContentMetadata()
		m.Name = name
		return qcproj.NewContentProjectEntry(name+".qstr", m)
	}

	p.Add(entry("a"), entry("c"))
	p.Insert(1, entry("b"))
	require.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"a", "b", "c"}, names(p))

	p.Remove(0)
	assert.Equal(t, []string{"b", "c"}, names(p))

	p.Clear()
	assert.Equal(t, 0, p.Len())
}

func TestContentProjectEqual(t *testing.T) {
	var nilProject *qcproj.ContentProject
	assert.True(t, nilProject.Equal(nil))
	assert.False(t, nilProject.Equal(qcproj.NewContentProject()))

	a := qcproj.NewContentProject()
	b := qcproj.NewContentProject()
	assert.True(t, a.Equal(b))

	a.Add(qcproj.NewContentProjectEntry("x.qstr", qcproj.NewContentMetadata()))
	assert.False(t, a.Equal(b))

	b.Add(qcproj.NewContentProjectEntry("x.qstr", qcproj.NewContentMetadata()))
	assert.True(t, a.Equal(b))
}

func TestContentMetadataJSON(t *testing.T) {
	t.Run("keeps identifier", func(t *testing.T) {
		m := qcproj.NewContentMetadata()
		m.Name = "Blue Float"
		m.Visible = false
		m.LoaderID = 1
		m.ResourceTypeID = 1

		data, err := json.Marshal(m)
		require.NoError(t, err)

		var got qcproj.ContentMetadata
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, m.ID(), got.ID())
		assert.True(t, m.Equal(got))
	})

	t.Run("missing fields take defaults", func(t *testing.T) {
		var got qcproj.ContentMetadata
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Scratch"}`), &got))

		assert.NotEqual(t, uuid.Nil, got.ID())
		assert.Equal(t, "Scratch", got.Name)
		assert.True(t, got.Visible)
		assert.Equal(t, qcproj.CompilerVersionLatest, got.Version)
	})

	t.Run("version zero is kept", func(t *testing.T) {
		m := qcproj.NewContentMetadata()
		m.Version = 0

		data, err := json.Marshal(m)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"version":0`)

		var got qcproj.ContentMetadata
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, qcproj.CompilerVersion(0), got.Version)
		assert.True(t, m.Equal(got))
	})

	t.Run("project", func(t *testing.T) {
		p := qcproj.NewContentProject()
		p.Metadata.Name = "New Project"
		p.Add(qcproj.NewContentProjectEntry("a.qstr", qcproj.NewContentMetadata()))

		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"file_path":"a.qstr"`)

		var got qcproj.ContentProject
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, p.Equal(&got))
		assert.Equal(t, p.Entries[0].Metadata.ID(), got.Entries[0].Metadata.ID())
	})
}

func TestCompilerVersion(t *testing.T) {
	assert.Equal(t, qcproj.CompilerVersion0_2, qcproj.CompilerVersionLatest)
	assert.True(t, qcproj.CompilerVersion0_1.Supported())
	assert.True(t, qcproj.CompilerVersionLatest.Supported())
	assert.False(t, (qcproj.CompilerVersionLatest + 1).Supported())

	assert.Equal(t, "0.1", qcproj.CompilerVersion0_1.String())
	assert.Equal(t, "0.2", qcproj.CompilerVersion0_2.String())
	assert.Equal(t, "unknown(9)", qcproj.CompilerVersion(9).String())
}

func names(p *qcproj.ContentProject) []string {
	out := make([]string, 0, p.Len())
	for _, e := range p.Entries {
		out = append(out, e.String())
	}
	return out
}
