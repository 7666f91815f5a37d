package terminal

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

const testShell = "/bin/sh"

func testLauncher(t *testing.T) *Launcher {
	t.Helper()
	if _, err := os.Stat(testShell); err != nil {
		t.Skipf("%s not available: %v", testShell, err)
	}
	return &Launcher{
		Shell:   testShell,
		WorkDir: t.TempDir(),
		BaseEnv: SnapshotEnv(os.Environ()),
	}
}

type harness struct {
	launcher *Launcher
	sessions *Registry
	jobs     *Tracker
	executor *Executor
}

type harnessOptions struct {
	completion string
	grace      time.Duration
	capture    time.Duration
	jobs       TrackerConfig
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	launcher := testLauncher(t)
	if opts.completion == "" {
		opts.completion = config.CompletionMarker
	}
	if opts.capture == 0 {
		opts.capture = 500 * time.Millisecond
	}
	if opts.jobs.MaxJobs == 0 {
		opts.jobs = TrackerConfig{MaxJobs: 10, TTL: time.Hour}
	}

	sessions := NewRegistry(launcher, RegistryConfig{
		Completion:     opts.completion,
		Grace:          opts.grace,
		DefaultTimeout: 10 * time.Second,
	}, nil, nil)
	jobs := NewTracker(opts.jobs, nil, nil)
	executor := NewExecutor(launcher, sessions, jobs, ExecutorConfig{
		DefaultTimeout:     10 * time.Second,
		InteractiveCapture: opts.capture,
	}, nil, nil)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = sessions.Shutdown(ctx)
		_ = jobs.Shutdown(ctx)
	})

	return &harness{launcher: launcher, sessions: sessions, jobs: jobs, executor: executor}
}

// collector gathers subscribed output for assertions
type collector struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (c *collector) write(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Write(p)
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func waitExit(t *testing.T, proc *Process) ExitEvent {
	t.Helper()
	select {
	case ev := <-proc.Exited():
		return ev
	case <-time.After(10 * time.Second):
		require.FailNow(t, "process did not exit")
		return ExitEvent{}
	}
}
