package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HistoryFile is the history database file name under the user's home
const HistoryFile = ".shell-server.db"

// Home returns the current user's home directory
func Home() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return home, nil
}

// HistoryDB returns the default history database path
func HistoryDB() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, HistoryFile), nil
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ResolveWorkDir picks the directory a shell should start in. An empty
// request falls back to fallback; a non-empty one must be an existing
// directory.
func ResolveWorkDir(requested, fallback string) (string, error) {
	if requested == "" {
		return fallback, nil
	}
	dir, err := ExpandHome(requested)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("working directory %q: %w", requested, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %q is not a directory", requested)
	}
	return dir, nil
}
