package terminal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a background job
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// isoMillis matches JavaScript's Date.toISOString output
const isoMillis = "2006-01-02T15:04:05.000Z"

// ProcessInfo is the caller-visible view of a background job
type ProcessInfo struct {
	Pid       int    `json:"pid"`
	Command   string `json:"command"`
	StartTime string `json:"startTime"`
	Status    Status `json:"status"`
	ExitCode  *int   `json:"exitCode,omitempty"`
}

// TrackerConfig bounds job retention
type TrackerConfig struct {
	MaxJobs         int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// DefaultTrackerConfig returns the default retention policy
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxJobs:         100,
		TTL:             time.Hour,
		CleanupInterval: time.Minute,
	}
}

type job struct {
	proc      *Process
	command   string
	startedAt time.Time
	endedAt   time.Time
	status    Status
	exitCode  int
}

func (j *job) info() ProcessInfo {
	info := ProcessInfo{
		Pid:       j.proc.Pid(),
		Command:   j.command,
		StartTime: j.startedAt.UTC().Format(isoMillis),
		Status:    j.status,
	}
	if j.status != StatusRunning {
		code := j.exitCode
		info.ExitCode = &code
	}
	return info
}

// Tracker owns background jobs keyed by OS pid. Each job's exit event is
// consumed by a tracker goroutine, which records the final status.
type Tracker struct {
	config  TrackerConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu   sync.Mutex
	jobs map[int]*job

	now      func() time.Time
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTracker creates a tracker and starts its cleanup loop
func NewTracker(config TrackerConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Tracker {
	defaults := DefaultTrackerConfig()
	if config.MaxJobs <= 0 {
		config.MaxJobs = defaults.MaxJobs
	}
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	t := &Tracker{
		config:  config,
		logger:  logger.Named("jobs"),
		metrics: metrics,
		jobs:    make(map[int]*job),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		t.wg.Add(1)
		go t.cleanupLoop()
	}
	return t
}

// Admit reports whether another job can be tracked, evicting the oldest
// finished jobs if the tracker is full.
func (t *Tracker) Admit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.makeRoomLocked()
}

// Track takes ownership of proc as a background job.
func (t *Tracker) Track(proc *Process, command string) error {
	t.mu.Lock()
	if err := t.makeRoomLocked(); err != nil {
		t.mu.Unlock()
		return err
	}
	t.jobs[proc.Pid()] = &job{
		proc:      proc,
		command:   command,
		startedAt: proc.StartedAt(),
		status:    StatusRunning,
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go t.watch(proc)
	t.publish()
	return nil
}

// List returns a snapshot of all tracked jobs ordered by pid
func (t *Tracker) List() []ProcessInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ProcessInfo, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j.info())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Pid < out[k].Pid })
	return out
}

// Kill hangs up a tracked job and forgets it immediately, without waiting
// for the OS process to die.
func (t *Tracker) Kill(pid int) error {
	t.mu.Lock()
	j, ok := t.jobs[pid]
	if ok {
		delete(t.jobs, pid)
	}
	t.mu.Unlock()

	if !ok {
		return notFound("kill", "No process found with PID %d", pid)
	}

	j.proc.Kill()
	t.metrics.IncKilled()
	t.logger.Info("background job killed", zap.Int("pid", pid), zap.String("command", j.command))
	t.publish()
	return nil
}

// Sweep evicts finished jobs older than the TTL and returns how many were
// removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	cutoff := t.now().Add(-t.config.TTL)
	evicted := 0
	for pid, j := range t.jobs {
		if j.status != StatusRunning && j.endedAt.Before(cutoff) {
			delete(t.jobs, pid)
			evicted++
		}
	}
	t.mu.Unlock()

	if evicted > 0 {
		t.metrics.AddJobsEvicted(evicted)
		t.logger.Debug("expired background jobs evicted", zap.Int("count", evicted))
		t.publish()
	}
	return evicted
}

// Shutdown stops the cleanup loop, hangs up every running job and waits
// for their exit events until ctx is done.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.stopOnce.Do(func() { close(t.stopCh) })

	t.mu.Lock()
	var running []*job
	for _, j := range t.jobs {
		if j.status == StatusRunning {
			running = append(running, j)
		}
	}
	t.mu.Unlock()

	for _, j := range running {
		j.proc.Kill()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// makeRoomLocked evicts finished jobs, oldest first, until there is room
// for one more. Caller holds mu.
func (t *Tracker) makeRoomLocked() error {
	if len(t.jobs) < t.config.MaxJobs {
		return nil
	}

	var finished []*job
	for _, j := range t.jobs {
		if j.status != StatusRunning {
			finished = append(finished, j)
		}
	}
	sort.Slice(finished, func(i, k int) bool { return finished[i].endedAt.Before(finished[k].endedAt) })

	evicted := 0
	for _, j := range finished {
		if len(t.jobs) < t.config.MaxJobs {
			break
		}
		delete(t.jobs, j.proc.Pid())
		evicted++
	}
	t.metrics.AddJobsEvicted(evicted)

	if len(t.jobs) >= t.config.MaxJobs {
		return &ToolError{
			Op:     "background",
			Kind:   ErrLimitReached,
			Detail: "Too many background processes are still running",
		}
	}
	return nil
}

func (t *Tracker) watch(proc *Process) {
	defer t.wg.Done()

	ev := <-proc.Exited()

	t.mu.Lock()
	j, ok := t.jobs[ev.Pid]
	tracked := ok && j.proc == proc
	if tracked {
		j.endedAt = t.now()
		j.exitCode = ev.Code
		j.status = StatusCompleted
		if ev.Code != 0 {
			j.status = StatusError
		}
	}
	t.mu.Unlock()

	if tracked {
		t.logger.Debug("background job exited", zap.Int("pid", ev.Pid), zap.Int("exit_code", ev.Code))
		t.publish()
	}
}

func (t *Tracker) cleanupLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Sweep()
		case <-t.stopCh:
			return
		}
	}
}

func (t *Tracker) publish() {
	if t.metrics == nil {
		return
	}

	counts := map[Status]int{StatusRunning: 0, StatusCompleted: 0, StatusError: 0}
	t.mu.Lock()
	for _, j := range t.jobs {
		counts[j.status]++
	}
	t.mu.Unlock()

	for status, n := range counts {
		t.metrics.SetJobs(string(status), n)
	}
}
