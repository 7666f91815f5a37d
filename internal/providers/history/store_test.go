package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	saved, err := store.Append(ctx, Entry{Command: "echo hello", Output: "hello", Duration: 12})
	require.NoError(t, err)

	assert.True(t, id.IsUUID(saved.ID))
	assert.True(t, saved.Timestamp.After(before))

	rows, err := store.Query(ctx, Query{Limit: DefaultLimit})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, saved.ID, rows[0].ID)
	assert.Equal(t, "echo hello", rows[0].Command)
	assert.Equal(t, "hello", rows[0].Output)
	assert.Equal(t, 0, rows[0].ExitCode)
	assert.Equal(t, int64(12), rows[0].Duration)
	assert.True(t, saved.Timestamp.Equal(rows[0].Timestamp))
}

func TestQueryOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, cmd := range []string{"first", "second", "third"} {
		_, err := store.Append(ctx, Entry{Command: cmd, Timestamp: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	rows, err := store.Query(ctx, Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "third", rows[0].Command)
	assert.Equal(t, "second", rows[1].Command)
	assert.True(t, rows[0].Timestamp.After(rows[1].Timestamp))
}

func TestQuerySameTimestampUsesInsertOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, cmd := range []string{"a", "b"} {
		_, err := store.Append(ctx, Entry{Command: cmd, Timestamp: ts})
		require.NoError(t, err)
	}

	rows, err := store.Query(ctx, Query{Limit: DefaultLimit})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].Command)
}

func TestQueryFilterIsCaseSensitiveSubstring(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, cmd := range []string{"git status", "GIT log", "ls -la", "echo 100%_done"} {
		_, err := store.Append(ctx, Entry{Command: cmd})
		require.NoError(t, err)
	}

	rows, err := store.Query(ctx, Query{Limit: DefaultLimit, Filter: "git"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "git status", rows[0].Command)

	// LIKE wildcards are plain characters
	rows, err = store.Query(ctx, Query{Limit: DefaultLimit, Filter: "%_"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, strings.Contains(rows[0].Command, "%_"))
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{-5, 0},
		{3, 3},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLimit(tt.in))
	}
}

func TestQueryNeverExceedsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, Entry{Command: "true"})
		require.NoError(t, err)
	}

	for _, limit := range []int{0, 1, 3, 5, 50} {
		rows, err := store.Query(ctx, Query{Limit: limit})
		require.NoError(t, err)
		assert.Len(t, rows, min(limit, 5), "limit %d", limit)
		assert.NotNil(t, rows)
	}
}

func TestBreakerOpensOnStorageFailure(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), Options{
		Breaker: resilience.Settings{
			Timeout:     time.Minute,
			ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
		},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := store.Append(ctx, Entry{Command: "echo"})
		require.Error(t, err)
	}

	_, err = store.Append(ctx, Entry{Command: "echo"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	_, err = store.Query(ctx, Query{Limit: DefaultLimit})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path, Options{})
	require.NoError(t, err)
	_, err = store.Append(ctx, Entry{Command: "persisted", ExitCode: 1})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path, Options{})
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.Query(ctx, Query{Limit: DefaultLimit})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].ExitCode)
}
