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

func exercise(t *testing.T, target Target) {
	t.Helper()

	sink, err := target.Create()
	require.NoError(t, err)
	_, err = sink.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	f, err := target.Open()
	require.NoError(t, err)
	size, err := f.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = f.Write([]byte("HELLO"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(target.Name())
	require.NoError(t, err)
	assert.Equal(t, "HELLO world", string(data))

	// a second Create truncates
	sink, err = target.Create()
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	data, err = os.ReadFile(target.Name())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSandboxTarget(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	target := NewSandbox(dir)

	assert.Equal(t, dir, filepath.Dir(target.Name()))
	base := filepath.Base(target.Name())
	assert.True(t, strings.HasPrefix(base, "rec-"))
	assert.True(t, strings.HasSuffix(base, ".wav"))
	assert.NotEqual(t, target.Name(), NewSandbox(dir).Name())

	exercise(t, target)

	info, err := os.Stat(target.Name())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(sandboxFilePerm), info.Mode().Perm())
}

func TestUserPathTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take1.wav")
	target := NewUserPath(path)
	assert.Equal(t, path, target.Name())
	exercise(t, target)
}

func TestUserPathMissingDirectory(t *testing.T) {
	target := NewUserPath(filepath.Join(t.TempDir(), "missing", "take.wav"))
	_, err := target.Create()
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	assert.IsType(t, &UserPath{}, Resolve("/tmp/x.wav", dir))
	assert.IsType(t, &Sandbox{}, Resolve("", dir))
}
