package filestorages

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) FileStorage {
	t.Helper()
	storage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}

func readStored(t *testing.T, storage FileStorage, key string) string {
	t.Helper()
	rc, err := storage.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(content)
}

func TestNewFileStorage_EmptyRootRejected(t *testing.T) {
	t.Parallel()

	_, err := NewFileStorage("")
	assert.ErrorIs(t, err, ErrInvalidRootDir)
}

func TestPut_AcceptsRelativeKeys(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)

	keys := []string{
		"doc.json",
		"dead-letters/01JABCDEF.json",
		"nested/deep/path/doc.json",
		"with-dashes_and_underscores.v2.json",
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			result, err := storage.Put(context.Background(), key, strings.NewReader("payload"), PutOptions{})
			require.NoError(t, err, "key %q should be valid", key)
			assert.Equal(t, key, result.FileKey)
			assert.Equal(t, "payload", readStored(t, storage, key))
		})
	}
}

func TestPut_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)

	keys := []string{
		"",
		".",
		"..",
		"../",
		"/absolute/path",
		"../doc.json",
		"../../etc/passwd",
		"dead-letters/../../etc/passwd",
		"a/../..",
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			_, err := storage.Put(context.Background(), key, strings.NewReader("x"), PutOptions{})
			assert.ErrorIs(t, err, ErrInvalidKey, "key %q must be rejected", key)
		})
	}
}

func TestPut_NoOverwriteProtectsExistingDocument(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	key := "dead-letters/first.json"

	_, err := storage.Put(context.Background(), key, strings.NewReader("original"), PutOptions{})
	require.NoError(t, err)

	_, err = storage.Put(context.Background(), key, strings.NewReader("replacement"), PutOptions{})
	assert.ErrorIs(t, err, ErrFileAlreadyExists)
	assert.Equal(t, "original", readStored(t, storage, key), "existing document must be untouched")
}

func TestPut_OverwriteReplacesDocument(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	key := "doc.json"

	_, err := storage.Put(context.Background(), key, strings.NewReader("v1"), PutOptions{})
	require.NoError(t, err)

	result, err := storage.Put(context.Background(), key, strings.NewReader("v2"), PutOptions{AllowOverwrite: true})
	require.NoError(t, err)
	assert.Equal(t, key, result.FileKey)
	assert.Equal(t, "v2", readStored(t, storage, key))
}

func TestPut_LeavesNoTempFilesBehind(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	storage, err := NewFileStorage(root)
	require.NoError(t, err)

	_, err = storage.Put(context.Background(), "doc.json", strings.NewReader("payload"), PutOptions{})
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), "unexpected temp file %q", entry.Name())
	}
	assert.FileExists(t, filepath.Join(root, "doc.json"))
}

func TestGet_MissingKey(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	_, err := storage.Get(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestPut_LargeDocument(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)
	data := strings.Repeat("A", 5*1024*1024)

	_, err := storage.Put(context.Background(), "large.json", strings.NewReader(data), PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, data, readStored(t, storage, "large.json"))
}
