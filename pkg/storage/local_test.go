package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost/media/"})
	require.NoError(t, err)
	return s
}

func TestLocalStorage_WriteDelete(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	key := "posts/u1/a.jpg"

	require.NoError(t, s.Write(ctx, key, strings.NewReader("hello"), 5, "image/jpeg"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	data, err := os.ReadFile(filepath.Join(s.Root(), key))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_NoTempFilesLeft(t *testing.T) {
	s := newLocal(t)
	require.NoError(t, s.Write(context.Background(), "pfp/u1.jpg", strings.NewReader("x"), 1, ""))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "pfp"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1.jpg", entries[0].Name())
}

func TestLocalStorage_KeysCannotEscapeRoot(t *testing.T) {
	s := newLocal(t)
	assert.True(t, strings.HasPrefix(s.path("../../etc/passwd"), s.Root()))
}

func TestLocalStorage_URL(t *testing.T) {
	s := newLocal(t)
	assert.Equal(t, "http://localhost/media/pfp/u1.jpg", s.URL("pfp/u1.jpg"))
}
