package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryDB(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	path, err := HistoryDB()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.shell-server.db", path)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		in   string
		want string
	}{
		{"~", "/home/tester"},
		{"~/projects", "/home/tester/projects"},
		{"/abs/path", "/abs/path"},
		{"rel/~", "rel/~"},
	}
	for _, tt := range tests {
		got, err := ExpandHome(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResolveWorkDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	got, err := ResolveWorkDir("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)

	got, err = ResolveWorkDir(dir, "/fallback")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = ResolveWorkDir(filepath.Join(dir, "missing"), "/fallback")
	assert.Error(t, err)

	_, err = ResolveWorkDir(file, "/fallback")
	assert.Error(t, err)
}
