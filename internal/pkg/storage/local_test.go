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

func TestLocalStorage_PutURLRemove(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	key, err := s.Put(ctx, "disputes/co/emp/a.pdf", strings.NewReader("proof"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "disputes/co/emp/a.pdf", key)

	data, err := os.ReadFile(filepath.Join(dir, "disputes", "co", "emp", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "proof", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "disputes", "co", "emp"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	url, err := s.URL(key)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/disputes/co/emp/a.pdf", url)

	require.NoError(t, s.Remove(ctx, key))
	require.NoError(t, s.Remove(ctx, key))
	_, err = os.Stat(filepath.Join(dir, "disputes", "co", "emp", "a.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_TraversalStaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "http://x")
	require.NoError(t, err)

	key, err := s.Put(ctx, "../../etc/passwd", strings.NewReader("x"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key)

	_, err = s.Put(ctx, "..", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = s.URL("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
