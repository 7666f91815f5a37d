package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const (
	DefaultCols = 80
	DefaultRows = 30

	// KillGrace is how long a hung-up shell gets before SIGKILL.
	KillGrace = 2 * time.Second

	// drainGrace bounds how long the waiter waits for the reader after the
	// shell exited. A background child holding the tty open would otherwise
	// delay the exit event forever.
	drainGrace = 250 * time.Millisecond

	readChunk = 4096
)

// SpawnOptions describes the shell a Process runs.
type SpawnOptions struct {
	Shell string
	Args  []string
	Dir   string
	// Env is the complete environment in KEY=VALUE form.
	Env  []string
	Cols uint16
	Rows uint16
	// BacklogSize bounds unconsumed output. Zero means DefaultBacklogSize.
	BacklogSize int
}

// ExitEvent is sent exactly once when the shell has exited and its output
// has been delivered.
type ExitEvent struct {
	Pid  int
	Code int
	Err  error
}

// Process is a shell running on a pseudo-terminal.
type Process struct {
	pid       int
	shell     string
	dir       string
	startedAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	mu         sync.Mutex
	subscriber func([]byte)
	subGen     uint64
	backlog    *Backlog
	exited     bool
	killed     bool
	killTimer  *time.Timer

	writeMu    sync.Mutex
	killOnce   sync.Once
	readerDone chan struct{}
	exitCh     chan ExitEvent
	done       chan struct{}
}

// Spawn starts opts.Shell on a new pty. It is the only place the server
// creates OS processes.
func Spawn(ctx context.Context, opts SpawnOptions) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Shell == "" {
		return nil, errors.New("no shell configured")
	}
	if opts.Cols == 0 {
		opts.Cols = DefaultCols
	}
	if opts.Rows == 0 {
		opts.Rows = DefaultRows
	}

	cmd := exec.Command(opts.Shell, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: opts.Rows,
		Cols: opts.Cols,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	p := &Process{
		pid:        cmd.Process.Pid,
		shell:      opts.Shell,
		dir:        opts.Dir,
		startedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		backlog:    NewBacklog(opts.BacklogSize),
		readerDone: make(chan struct{}),
		exitCh:     make(chan ExitEvent, 1),
		done:       make(chan struct{}),
	}

	go p.readOutput()
	go p.wait()

	return p, nil
}

// Pid returns the OS process id of the shell
func (p *Process) Pid() int { return p.pid }

// StartedAt returns when the shell was spawned
func (p *Process) StartedAt() time.Time { return p.startedAt }

// Exited delivers exactly one ExitEvent. Only the owner of the process may
// receive from it.
func (p *Process) Exited() <-chan ExitEvent { return p.exitCh }

// Done is closed once the exit event has been sent.
func (p *Process) Done() <-chan struct{} { return p.done }

// Write sends input to the shell.
func (p *Process) Write(b []byte) error {
	p.mu.Lock()
	dead := p.exited || p.killed
	p.mu.Unlock()
	if dead {
		return ErrProcessTerminated
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := p.ptmx.Write(b); err != nil {
		if p.terminated() {
			return ErrProcessTerminated
		}
		return fmt.Errorf("write to pty: %w", err)
	}
	return nil
}

// Subscribe routes every subsequent output chunk to fn, in arrival order,
// until the returned func is called. A later Subscribe replaces fn. fn runs
// on the reader goroutine and must not call back into the Process.
func (p *Process) Subscribe(fn func([]byte)) (unsubscribe func()) {
	p.mu.Lock()
	p.subGen++
	gen := p.subGen
	p.subscriber = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		if p.subGen == gen {
			p.subscriber = nil
		}
		p.mu.Unlock()
	}
}

// Drain returns output that arrived while nobody was subscribed.
func (p *Process) Drain() []byte {
	return p.backlog.Drain()
}

// Kill hangs up the shell's process group. Repeated calls are no-ops. If
// the shell is still alive after KillGrace it is sent SIGKILL.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		p.mu.Lock()
		p.killed = true
		if p.exited {
			p.mu.Unlock()
			return
		}
		p.killTimer = time.AfterFunc(KillGrace, func() {
			select {
			case <-p.done:
			default:
				_ = syscall.Kill(-p.pid, syscall.SIGKILL)
			}
		})
		p.mu.Unlock()

		// the shell is a session leader, so -pid is its process group
		if err := syscall.Kill(-p.pid, syscall.SIGHUP); err != nil {
			_ = p.cmd.Process.Signal(syscall.SIGHUP)
		}
	})
}

func (p *Process) terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited || p.killed
}

func (p *Process) readOutput() {
	defer close(p.readerDone)

	buf := make([]byte, readChunk)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			p.deliver(buf[:n])
		}
		if err != nil {
			// EIO once the slave side is closed
			return
		}
	}
}

func (p *Process) deliver(chunk []byte) {
	data := make([]byte, len(chunk))
	copy(data, chunk)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subscriber == nil {
		p.backlog.Write(data)
		return
	}
	p.subscriber(data)
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	code := exitCode(p.cmd.ProcessState, err)

	p.mu.Lock()
	p.exited = true
	if p.killTimer != nil {
		p.killTimer.Stop()
	}
	p.mu.Unlock()

	select {
	case <-p.readerDone:
	case <-time.After(drainGrace):
	}
	p.ptmx.Close()

	var waitErr error
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		waitErr = err
	}

	p.exitCh <- ExitEvent{Pid: p.pid, Code: code, Err: waitErr}
	close(p.done)
}

// exitCode reports the shell's exit status. A shell killed by a signal
// reports 128+signal like a POSIX shell would.
func exitCode(state *os.ProcessState, err error) int {
	if state == nil {
		if err != nil {
			return -1
		}
		return 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
