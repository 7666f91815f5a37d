package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/server"
)

// Version is stamped at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// shutdownTimeout bounds how long sessions and jobs get to exit on shutdown
const shutdownTimeout = 10 * time.Second

// flagValues holds command line overrides for the environment config
type flagValues struct {
	shell       string
	workDir     string
	completion  string
	historyPath string
	logLevel    string
	dev         bool
	metricsAddr string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &flagValues{}

	root := &cobra.Command{
		Use:     "shell-server",
		Short:   "MCP server for running shell commands on pseudo-terminals",
		Version: Version,
		Long: `shell-server speaks the Model Context Protocol on stdin/stdout and lets a
client run shell commands, keep persistent shell sessions, start background
jobs and read back the command history.

Run without a subcommand to serve.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.shell, "shell", "", "shell program (overrides SHELL_PATH)")
	pf.StringVar(&flags.workDir, "workdir", "", "default working directory (overrides SHELL_WORKDIR)")
	pf.StringVar(&flags.completion, "completion", "", "session completion mode: marker or grace (overrides SESSION_COMPLETION)")
	pf.StringVar(&flags.historyPath, "history", "", "history database path (overrides HISTORY_PATH)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	pf.BoolVar(&flags.dev, "dev", false, "development logging (overrides LOG_DEV)")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")

	root.AddCommand(
		newServeCmd(flags),
		newHistoryCmd(flags),
	)
	return root
}

func newServeCmd(flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
}

// loadConfig reads the environment and applies flags the user set.
func loadConfig(cmd *cobra.Command, flags *flagValues) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	if set("shell") {
		cfg.Shell.Path = flags.shell
	}
	if set("workdir") {
		cfg.Shell.WorkDir = flags.workDir
	}
	if set("completion") {
		cfg.Session.Completion = flags.completion
	}
	if set("history") {
		cfg.History.Path = flags.historyPath
	}
	if set("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if set("dev") {
		cfg.Logging.Development = flags.dev
	}
	if set("metrics-addr") {
		cfg.Metrics.Address = flags.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, flags *flagValues) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(cfg, nil)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	return srv.Run(ctx, os.Stdin, os.Stdout)
}
