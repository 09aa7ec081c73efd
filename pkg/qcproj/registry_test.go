package qcproj_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/qgl-content/pkg/qcproj"
)

func floatDescriptor(loaderID uint16) qcproj.ExtensionDescriptor {
	return qcproj.ExtensionDescriptor{
		ResourceTypeID:   2,
		ResourceTypeName: "Float",
		LoaderID:         loaderID,
		LoaderName:       "Float Loader",
		FileExtension:    ".qflt",
	}
}

func TestRegistrySeeded(t *testing.T) {
	r := qcproj.NewRegistry()

	types := r.ListResourceTypes()
	require.Len(t, types, 1)
	assert.Equal(t, "Unknown", types[0].Name)
	assert.Equal(t, []uint16{qcproj.LoaderUnknown}, types[0].LoaderIDs)
	assert.True(t, r.Contains(qcproj.ResourceTypeUnknown, qcproj.LoaderUnknown))
	assert.False(t, r.Contains(qcproj.ResourceTypeString, qcproj.LoaderString))

	r = qcproj.NewRegistry(qcproj.WithStringContent())
	assert.True(t, r.Contains(qcproj.ResourceTypeString, qcproj.LoaderString))
	assert.Equal(t, ".qstr", r.FileExtensionFor(qcproj.LoaderString))

	loader, ok := r.Loader(qcproj.LoaderString)
	require.True(t, ok)
	assert.Equal(t, "String", loader.Name)
}

func TestRegistryRegister(t *testing.T) {
	r := qcproj.NewRegistry()

	r.RegisterDescriptor(floatDescriptor(5))
	r.RegisterDescriptor(floatDescriptor(5))
	r.RegisterDescriptor(floatDescriptor(6))

	rt, ok := r.ResourceType(2)
	require.True(t, ok)
	assert.Equal(t, "Float", rt.Name)
	assert.Equal(t, []uint16{5, 6}, rt.LoaderIDs)

	assert.True(t, r.Contains(2, 5))
	assert.True(t, r.Contains(2, 6))
	assert.False(t, r.Contains(2, 7))
	assert.False(t, r.Contains(3, 5))

	loaders := r.LoadersFor(2)
	require.Len(t, loaders, 2)
	assert.Equal(t, uint16(5), loaders[0].ID)
	assert.Nil(t, r.LoadersFor(42))

	_, ok = r.ResourceType(42)
	assert.False(t, ok)
}

func TestRegistryListOrder(t *testing.T) {
	r := qcproj.NewRegistry()
	r.RegisterDescriptor(qcproj.ExtensionDescriptor{ResourceTypeID: 9, ResourceTypeName: "Nine", LoaderID: 1})
	r.RegisterDescriptor(qcproj.ExtensionDescriptor{ResourceTypeID: 3, ResourceTypeName: "Three", LoaderID: 1})
	r.RegisterDescriptor(qcproj.ExtensionDescriptor{ResourceTypeID: 9, ResourceTypeName: "Nine", LoaderID: 2})

	types := r.ListResourceTypes()
	require.Len(t, types, 3)
	assert.Equal(t, uint16(0), types[0].ID)
	assert.Equal(t, uint16(9), types[1].ID)
	assert.Equal(t, uint16(3), types[2].ID)
	assert.Equal(t, []uint16{1, 2}, types[1].LoaderIDs)

	// Callers get copies.
	types[1].LoaderIDs[0] = 99
	assert.True(t, r.Contains(9, 1))
	assert.False(t, r.Contains(9, 99))
}

func TestRegistryFileExtensionFor(t *testing.T) {
	r := qcproj.NewRegistry()
	assert.Equal(t, ".unkn", r.FileExtensionFor(qcproj.LoaderUnknown))
	assert.Equal(t, ".unkn", r.FileExtensionFor(1234))

	r.RegisterDescriptor(floatDescriptor(5))
	assert.Equal(t, ".qflt", r.FileExtensionFor(5))

	// A loader shared by two resource types keeps its first suffix.
	r.RegisterDescriptor(qcproj.ExtensionDescriptor{
		ResourceTypeID: 3, ResourceTypeName: "Vector", LoaderID: 5, LoaderName: "Vector Loader", FileExtension: ".qvec",
	})
	assert.Equal(t, ".qflt", r.FileExtensionFor(5))
	assert.True(t, r.Contains(3, 5))

	// An empty suffix still falls back.
	r.RegisterDescriptor(qcproj.ExtensionDescriptor{ResourceTypeID: 4, LoaderID: 8})
	assert.Equal(t, ".unkn", r.FileExtensionFor(8))
}
