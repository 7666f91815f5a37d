package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/providers/history"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("SHELL_PATH", "/bin/bash")
	t.Setenv("SESSION_COMPLETION", "marker")
	t.Setenv("METRICS_ADDR", "127.0.0.1:1")

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--shell", "/bin/sh", "--completion", "grace", "--dev"}))

	flags := &flagValues{}
	// the values newRootCmd bound are private to it
	for _, name := range []string{"shell", "completion", "dev"} {
		require.True(t, root.Flags().Changed(name), name)
	}
	flags.shell, _ = root.Flags().GetString("shell")
	flags.completion, _ = root.Flags().GetString("completion")
	flags.dev, _ = root.Flags().GetBool("dev")

	cfg, err := loadConfig(root, flags)
	require.NoError(t, err)

	assert.Equal(t, "/bin/sh", cfg.Shell.Path)
	assert.Equal(t, config.CompletionGrace, cfg.Session.Completion)
	assert.True(t, cfg.Logging.Development)
	// untouched flags leave env values alone
	assert.Equal(t, "127.0.0.1:1", cfg.Metrics.Address)
}

func TestInvalidCompletionFlag(t *testing.T) {
	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--completion", "psychic"}))

	_, err := loadConfig(root, &flagValues{completion: "psychic"})
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(path, history.Options{})
	require.NoError(t, err)
	ctx := context.Background()
	for _, cmd := range []string{"ls", "git status", "git log"} {
		_, err := store.Append(ctx, history.Entry{Command: cmd, Timestamp: time.Now()})
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--history", path, "--filter", "git", "--limit", "1"})
	require.NoError(t, root.Execute())

	var entries []history.Entry
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "git log", entries[0].Command)
}

func TestHistoryCommandEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--history", path})
	require.NoError(t, root.Execute())

	assert.Equal(t, "[]\n", out.String())
}

func TestHistoryCommandLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(path, history.Options{})
	require.NoError(t, err)
	_, err = store.Append(context.Background(), history.Entry{Command: "ls", Timestamp: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--history", path, "--limit", "0"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "[]\n", out.String())

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"history", "--history", path, "--limit", "-1"})
	assert.ErrorContains(t, root.Execute(), "--limit must not be negative")
}
