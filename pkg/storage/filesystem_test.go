package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.SaveStream("denuncias/1/nota.txt", strings.NewReader("hola"), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	f, err := store.Open("denuncias/1/nota.txt")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(body))
}

func TestLocalStorageRejectsOversizedStream(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.SaveStream("big.bin", strings.NewReader(strings.Repeat("x", 11)), 10)
	require.ErrorIs(t, err, ErrTooLarge)

	_, statErr := os.Stat(filepath.Join(dir, "big.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("../escape.txt", strings.NewReader("x"), 10)
	require.ErrorIs(t, err, ErrInvalidPath)
	_, err = store.Open("/etc/passwd")
	require.ErrorIs(t, err, ErrInvalidPath)
	require.NoError(t, store.Delete("missing.txt"))
}
