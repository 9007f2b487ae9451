package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewLocalStorage(tmpDir)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("SaveFile", func(t *testing.T) {
		content := []byte("annotated frame")
		key, err := storage.SaveFile(ctx, bytes.NewReader(content), FileInfo{
			Filename:    "result.jpg",
			ContentType: "image/jpeg",
			Size:        int64(len(content)),
		})
		require.NoError(t, err)
		assert.Equal(t, ".jpg", filepath.Ext(key))

		saved, err := os.ReadFile(filepath.Join(tmpDir, key))
		require.NoError(t, err)
		assert.Equal(t, content, saved)
	})

	t.Run("SaveFileKeysAreUnique", func(t *testing.T) {
		a, err := storage.SaveFile(ctx, bytes.NewReader([]byte("a")), FileInfo{Filename: "x.jpg"})
		require.NoError(t, err)
		b, err := storage.SaveFile(ctx, bytes.NewReader([]byte("b")), FileInfo{Filename: "x.jpg"})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("OpenFile", func(t *testing.T) {
		content := []byte("annotated frame")
		key, err := storage.SaveFile(ctx, bytes.NewReader(content), FileInfo{Filename: "result.jpg"})
		require.NoError(t, err)

		file, err := storage.OpenFile(ctx, key)
		require.NoError(t, err)
		defer file.Close()

		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("OpenMissingFile", func(t *testing.T) {
		_, err := storage.OpenFile(ctx, "missing.jpg")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteFile", func(t *testing.T) {
		key, err := storage.SaveFile(ctx, bytes.NewReader([]byte("x")), FileInfo{Filename: "d.jpg"})
		require.NoError(t, err)

		require.NoError(t, storage.DeleteFile(ctx, key))
		_, err = os.Stat(filepath.Join(tmpDir, key))
		assert.True(t, os.IsNotExist(err))

		assert.ErrorIs(t, storage.DeleteFile(ctx, key), ErrNotFound)
	})

	t.Run("PathTraversalPrevention", func(t *testing.T) {
		_, err := storage.OpenFile(ctx, "../../../etc/passwd")
		assert.Error(t, err)
		assert.Error(t, storage.DeleteFile(ctx, "../../../etc/passwd"))
	})
}
