package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	storage := NewFileStorage(path)

	require.NoError(t, storage.Set("k", "v"))
	value, err := storage.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	require.NoError(t, storage.Delete("k"))
	_, err = storage.Get("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestFileStorageMissingKey(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))

	_, err := storage.Get("absent")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NoError(t, storage.Delete("absent"))
}

func TestFileStoragePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, NewFileStorage(path).Set("k", "v"))

	value, err := NewFileStorage(path).Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestFileStorageCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	storage := NewFileStorage(path)
	_, err := storage.Get("k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, storage.Set("k", "v"))
	value, err := storage.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}
