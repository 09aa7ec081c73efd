package memory_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/qgl-content/pkg/qcproj"
	memorystorage "github.com/tendant/qgl-content/pkg/qcproj/storage/memory"
)

var _ qcproj.FileStore = (*memorystorage.Backend)(nil)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()
	testPath := "projects/demo.qcproj"
	testData := "project bytes"

	t.Run("Write", func(t *testing.T) {
		err := backend.Write(ctx, testPath, strings.NewReader(testData))
		assert.NoError(t, err)
	})

	t.Run("Stat", func(t *testing.T) {
		info, err := backend.Stat(ctx, testPath)
		require.NoError(t, err)
		assert.Equal(t, testPath, info.Path)
		assert.Equal(t, int64(len(testData)), info.Size)
		assert.False(t, info.UpdatedAt.IsZero())
	})

	t.Run("Read", func(t *testing.T) {
		rc, err := backend.Read(ctx, testPath)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		assert.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("FailedWriteKeepsPreviousFile", func(t *testing.T) {
		err := backend.Write(ctx, testPath, failingReader{})
		require.Error(t, err)

		rc, err := backend.Read(ctx, testPath)
		require.NoError(t, err)
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		assert.Equal(t, testData, string(data))
	})

	t.Run("Delete", func(t *testing.T) {
		err := backend.Delete(ctx, testPath)
		assert.NoError(t, err)

		_, err = backend.Stat(ctx, testPath)
		assert.ErrorIs(t, err, qcproj.ErrFileNotFound)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := backend.Read(ctx, "nope")
		assert.ErrorIs(t, err, qcproj.ErrFileNotFound)

		err = backend.Delete(ctx, "nope")
		assert.ErrorIs(t, err, qcproj.ErrFileNotFound)
	})
}
