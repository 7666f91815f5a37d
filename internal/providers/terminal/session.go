package terminal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/shared/id"
	"go.uber.org/zap"
)

// Session origins
const (
	OriginCreated     = "create_session"
	OriginInteractive = "interactive"
)

// Spawner starts shells
type Spawner interface {
	Spawn(ctx context.Context, mode, dir string, overrides map[string]string) (*Process, error)
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID        string `json:"id"`
	Pid       int    `json:"pid"`
	Origin    string `json:"origin"`
	CreatedAt string `json:"createdAt"`
	Pending   int    `json:"pendingBytes"`
}

// RegistryConfig controls how session commands are judged complete
type RegistryConfig struct {
	Completion     string
	Grace          time.Duration
	DefaultTimeout time.Duration
}

// Session is a long-lived shell addressable by id
type Session struct {
	id        string
	proc      *Process
	origin    string
	createdAt time.Time

	// one command at a time
	execMu   sync.Mutex
	lifetime *time.Timer
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:        s.id,
		Pid:       s.proc.Pid(),
		Origin:    s.origin,
		CreatedAt: s.createdAt.UTC().Format(isoMillis),
		Pending:   s.proc.backlog.Len(),
	}
}

// Registry owns persistent sessions. A session is removed when its shell
// exits, when it is closed, or on Shutdown.
type Registry struct {
	spawner Spawner
	config  RegistryConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewRegistry creates an empty session registry
func NewRegistry(spawner Spawner, cfg RegistryConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Registry {
	if cfg.Completion == "" {
		cfg.Completion = config.CompletionMarker
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 100 * time.Millisecond
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Registry{
		spawner:  spawner,
		config:   cfg,
		logger:   logger.Named("sessions"),
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create spawns a persistent shell and returns its session id
func (r *Registry) Create(ctx context.Context, env map[string]string) (string, error) {
	proc, err := r.spawner.Spawn(ctx, "session", "", env)
	if err != nil {
		return "", err
	}
	return r.Adopt(proc, OriginCreated, 0), nil
}

// Adopt registers an already running shell as a session. A positive
// lifetime kills the session once it elapses.
func (r *Registry) Adopt(proc *Process, origin string, lifetime time.Duration) string {
	s := &Session{
		id:        id.NewSessionID().String(),
		proc:      proc,
		origin:    origin,
		createdAt: time.Now(),
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	if lifetime > 0 {
		s.lifetime = time.AfterFunc(lifetime, func() { r.expire(s) })
	}
	r.wg.Add(1)
	count := len(r.sessions)
	r.mu.Unlock()

	go r.watch(s)

	r.metrics.SetSessionsActive(count)
	r.logger.Info("session created",
		zap.String("session_id", s.id),
		zap.Int("pid", proc.Pid()),
		zap.String("origin", origin))
	return s.id
}

// Exec runs command in the session and returns its output. A zero timeout
// uses the default.
func (r *Registry) Exec(ctx context.Context, sessionID, command string, timeout time.Duration) (string, error) {
	s, ok := r.get(sessionID)
	if !ok {
		return "", notFound("exec", "Invalid session ID")
	}
	if timeout <= 0 {
		timeout = r.config.DefaultTimeout
	}

	s.execMu.Lock()
	defer s.execMu.Unlock()

	if r.config.Completion == config.CompletionGrace {
		return r.execGrace(ctx, s, command)
	}
	return r.execMarker(ctx, s, command, timeout)
}

func (r *Registry) execMarker(ctx context.Context, s *Session, command string, timeout time.Duration) (string, error) {
	m, err := newMarker()
	if err != nil {
		return "", err
	}

	out := newCapture()
	unsubscribe := s.proc.Subscribe(out.write)
	defer unsubscribe()

	if err := s.proc.Write([]byte(command + "\r" + m.command() + "\r")); err != nil {
		return "", r.writeError(s, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if text, status, ok := m.find(out.String()); ok {
			r.logger.Debug("session command finished",
				zap.String("session_id", s.id),
				zap.Int("status", status))
			return text, nil
		}

		select {
		case <-out.notify:
		case <-s.proc.Done():
			if text, _, ok := m.find(out.String()); ok {
				return text, nil
			}
			return "", r.writeError(s, nil)
		case <-timer.C:
			r.metrics.IncTimeout()
			return "", &ExecError{TimedOut: true, Timeout: timeout}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// execGrace returns whatever the shell printed within the grace window.
func (r *Registry) execGrace(ctx context.Context, s *Session, command string) (string, error) {
	out := newCapture()
	unsubscribe := s.proc.Subscribe(out.write)
	defer unsubscribe()

	if err := s.proc.Write([]byte(command + "\r")); err != nil {
		return "", r.writeError(s, err)
	}

	select {
	case <-time.After(r.config.Grace):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return out.String(), nil
}

func (r *Registry) writeError(s *Session, err error) error {
	return &ToolError{Op: "exec", Kind: ErrProcessTerminated, Detail: "Session " + s.id + " has terminated", Err: err}
}

// Read drains output the session produced outside of Exec calls
func (r *Registry) Read(sessionID string) (string, error) {
	s, ok := r.get(sessionID)
	if !ok {
		return "", notFound("read", "Invalid session ID")
	}
	return string(s.proc.Drain()), nil
}

// Close kills the session's shell and removes it
func (r *Registry) Close(sessionID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		r.removeLocked(s)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return notFound("close", "Invalid session ID")
	}

	s.proc.Kill()
	r.metrics.IncKilled()
	r.metrics.SetSessionsActive(count)
	r.logger.Info("session closed", zap.String("session_id", sessionID))
	return nil
}

// List returns all sessions ordered by creation time
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].createdAt.Equal(sessions[j].createdAt) {
			return sessions[i].id < sessions[j].id
		}
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.info())
	}
	return out
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown kills every session and waits for their shells to exit until
// ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
		r.removeLocked(s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.proc.Kill()
	}
	r.metrics.SetSessionsActive(0)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// removeLocked forgets s if it is still registered. Caller holds mu.
func (r *Registry) removeLocked(s *Session) bool {
	if cur, ok := r.sessions[s.id]; !ok || cur != s {
		return false
	}
	delete(r.sessions, s.id)
	if s.lifetime != nil {
		s.lifetime.Stop()
	}
	return true
}

func (r *Registry) watch(s *Session) {
	defer r.wg.Done()

	ev := <-s.proc.Exited()

	r.mu.Lock()
	removed := r.removeLocked(s)
	count := len(r.sessions)
	r.mu.Unlock()

	if removed {
		r.metrics.SetSessionsActive(count)
		r.logger.Info("session shell exited",
			zap.String("session_id", s.id),
			zap.Int("exit_code", ev.Code))
	}
}

func (r *Registry) expire(s *Session) {
	r.mu.Lock()
	removed := r.removeLocked(s)
	count := len(r.sessions)
	r.mu.Unlock()

	if removed {
		s.proc.Kill()
		r.metrics.SetSessionsActive(count)
		r.logger.Info("session lifetime elapsed", zap.String("session_id", s.id))
	}
}
