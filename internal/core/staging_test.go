package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadStager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	stager, err := NewUploadStager(dir)
	require.NoError(t, err)

	path, err := stager.Stage("leaf.jpg", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "leaf.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	require.NoError(t, stager.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is not an error.
	assert.NoError(t, stager.Remove(path))
}

func TestUploadStagerKeepsFilesInsideDir(t *testing.T) {
	dir := t.TempDir()
	stager, err := NewUploadStager(dir)
	require.NoError(t, err)

	path, err := stager.Stage("../../etc/leaf.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "leaf.png"), path)

	_, err = stager.Stage("", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestUploadStagerSameNameOverwrites(t *testing.T) {
	stager, err := NewUploadStager(t.TempDir())
	require.NoError(t, err)

	first, err := stager.Stage("leaf.png", []byte("first"))
	require.NoError(t, err)
	second, err := stager.Stage("leaf.png", []byte("second"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
