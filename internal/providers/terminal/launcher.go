package terminal

import (
	"context"
	"sort"
	"strings"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/shared/paths"
	"go.uber.org/zap"
)

// TermName is the TERM value every shell sees unless the caller overrides it.
const TermName = "xterm-color"

// Launcher spawns shells with the server-wide shell choice, working
// directory and environment snapshot.
type Launcher struct {
	Shell       string
	Args        []string
	WorkDir     string
	BaseEnv     map[string]string
	BacklogSize int

	Metrics *monitoring.Metrics
	Logger  *logging.Logger
}

// SnapshotEnv keeps the non-empty entries of environ (os.Environ format).
func SnapshotEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// MergeEnv layers TERM and then overrides on top of base. The result is
// sorted so spawned environments are reproducible.
func MergeEnv(base, overrides map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overrides)+1)
	for k, v := range base {
		merged[k] = v
	}
	merged["TERM"] = TermName
	for k, v := range overrides {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Spawn starts a shell in dir (or the default working directory) with the
// given environment overrides. mode labels the spawn in metrics.
func (l *Launcher) Spawn(ctx context.Context, mode, dir string, overrides map[string]string) (*Process, error) {
	workDir, err := paths.ResolveWorkDir(dir, l.WorkDir)
	if err != nil {
		return nil, &ToolError{Op: "spawn", Kind: ErrInvalidInput, Err: err}
	}

	proc, err := Spawn(ctx, SpawnOptions{
		Shell:       l.Shell,
		Args:        l.Args,
		Dir:         workDir,
		Env:         MergeEnv(l.BaseEnv, overrides),
		BacklogSize: l.BacklogSize,
	})
	if err != nil {
		return nil, err
	}

	l.Metrics.IncSpawned(mode)
	l.logger().Debug("shell spawned",
		zap.String("mode", mode),
		zap.Int("pid", proc.Pid()),
		zap.String("shell", l.Shell),
		zap.String("dir", workDir))
	return proc, nil
}

func (l *Launcher) logger() *logging.Logger {
	if l.Logger == nil {
		return logging.NewNop()
	}
	return l.Logger
}
