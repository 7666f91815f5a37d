package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/api/stdio"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/providers/history"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/service"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/shared/paths"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// metricsShutdownTimeout bounds how long the metrics endpoint drains
const metricsShutdownTimeout = 5 * time.Second

// Server wraps the MCP server and everything it owns
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	history  *history.Store
	sessions *terminal.Registry
	jobs     *terminal.Tracker
	registry *service.Registry
	mcp      *stdio.Server

	closeOnce sync.Once
	closeErr  error
}

// NewLogger builds the process logger from config. Output goes to stderr.
func NewLogger(cfg config.LogConfig) (*logging.Logger, error) {
	return logging.New(logging.Config{
		Level:       cfg.Level,
		Development: cfg.Development,
		Output:      logging.Stderr,
	})
}

// HistoryPath resolves the configured history database, defaulting to the
// file under the user's home directory.
func HistoryPath(cfg config.HistoryConfig) (string, error) {
	if cfg.Path == "" {
		return paths.HistoryDB()
	}
	return paths.ExpandHome(cfg.Path)
}

// NewServer creates a new server instance. A nil logger is built from cfg.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg.Logging); err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}

	shell := cfg.Shell.ResolvePath()
	logger.Info("Initializing shell server",
		zap.String("shell", shell),
		zap.String("completion", cfg.Session.Completion),
		zap.Duration("default_timeout", cfg.Shell.DefaultTimeout),
	)

	metrics := monitoring.NewMetrics()

	dbPath, err := HistoryPath(cfg.History)
	if err != nil {
		return nil, err
	}
	store, err := history.Open(dbPath, history.Options{Logger: logger, Metrics: metrics})
	if err != nil {
		return nil, err
	}
	logger.Info("History database opened", zap.String("path", dbPath))

	launcher := &terminal.Launcher{
		Shell:   shell,
		Args:    cfg.Shell.Args,
		WorkDir: cfg.Shell.ResolveWorkDir(),
		BaseEnv: terminal.SnapshotEnv(os.Environ()),
		Metrics: metrics,
		Logger:  logger.Named("launcher"),
	}

	sessions := terminal.NewRegistry(launcher, terminal.RegistryConfig{
		Completion:     cfg.Session.Completion,
		Grace:          cfg.Session.Grace,
		DefaultTimeout: cfg.Shell.DefaultTimeout,
	}, logger, metrics)

	jobs := terminal.NewTracker(terminal.TrackerConfig{
		MaxJobs:         cfg.Jobs.Max,
		TTL:             cfg.Jobs.TTL,
		CleanupInterval: cfg.Jobs.CleanupInterval,
	}, logger, metrics)

	executor := terminal.NewExecutor(launcher, sessions, jobs, terminal.ExecutorConfig{
		DefaultTimeout:     cfg.Shell.DefaultTimeout,
		InteractiveCapture: cfg.Session.InteractiveCapture,
	}, logger, metrics)

	registry := service.NewRegistry()
	if err := registerProviders(registry,
		terminal.NewProvider(executor, sessions, jobs, store, logger),
		history.NewProvider(store),
	); err != nil {
		_ = jobs.Shutdown(context.Background())
		_ = store.Close()
		return nil, err
	}

	chain := []mcpserver.ToolHandlerMiddleware{middleware.Observe(logger.Named("calls"), metrics)}
	if cfg.RateLimit.Enabled {
		chain = append(chain, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}, metrics))
	}

	return &Server{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		history:  store,
		sessions: sessions,
		jobs:     jobs,
		registry: registry,
		mcp: stdio.New(registry, stdio.Options{
			Logger:     logger,
			Middleware: chain,
		}),
	}, nil
}

func registerProviders(registry *service.Registry, providers ...service.Provider) error {
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register %s: %w", p.Definition().ID, err)
		}
	}
	return nil
}

// Registry returns the tool registry
func (s *Server) Registry() *service.Registry {
	return s.registry
}

// Run serves MCP on in/out and, when configured, the metrics endpoint.
// It returns when the client disconnects, ctx is cancelled, or either
// server fails.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		err := s.mcp.Serve(gctx, in, out)
		if err == nil || errors.Is(err, context.Canceled) {
			s.logger.Info("MCP client disconnected")
			return nil
		}
		return fmt.Errorf("mcp server: %w", err)
	})

	if addr := s.config.Metrics.Address; addr != "" {
		metricsServer := &http.Server{
			Addr:              addr,
			Handler:           monitoring.Router(s.metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			s.logger.Info("Metrics endpoint listening", zap.String("addr", addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer stop()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close kills every session and background job and closes the history
// database. It is safe to call more than once.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down",
			zap.Int("sessions", s.sessions.Len()),
			zap.Int("jobs", len(s.jobs.List())),
		)

		s.closeErr = errors.Join(
			s.sessions.Shutdown(ctx),
			s.jobs.Shutdown(ctx),
			s.history.Close(),
		)
		_ = s.logger.Sync()
	})
	return s.closeErr
}
