// Package cli implements the docdrift command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"docdrift/internal/apperrors"
	"docdrift/internal/config"
	"docdrift/internal/contextutil"
)

// Exit codes returned by Execute.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInvalidArgs = 2
)

// state is shared by every command of one root.
type state struct {
	newApp     AppFactory
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(NewApp)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return exitCode(err)
	}
	return ExitOK
}

func exitCode(err error) int {
	if errors.Is(err, apperrors.ErrInvalidConfig) {
		return ExitInvalidArgs
	}
	return ExitFailure
}

// NewRootCommand builds the command tree. newApp is called once per command
// invocation after configuration has been loaded.
func NewRootCommand(newApp AppFactory) *cobra.Command {
	st := &state{newApp: newApp}

	root := &cobra.Command{
		Use:   "docdrift",
		Short: "Find documentation made stale by code changes",
		Long: `docdrift indexes a documentation folder into a vector index, analyzes
git diffs for significant changes, and reports which documentation is
likely affected or missing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", "", "YAML config file (default $DOCDRIFT_CONFIG)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newIndexCommand(st),
		newCheckCommand(st),
		newSearchCommand(st),
		newCollectionsCommand(st),
		newChangesCommand(st),
		newServeCommand(st),
		newMCPCommand(st),
	)
	return root
}

// load reads configuration and installs the process logger. Logs go to
// stderr so stdout stays clean for results and the MCP stdio transport.
func (st *state) load(cmd *cobra.Command) error {
	cfg, err := config.Load(st.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	st.cfg = cfg
	st.logger = newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(st.logger)
	st.logger.Debug("logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)
	return nil
}

// open builds the App and returns a context carrying the logger.
func (st *state) open(cmd *cobra.Command) (context.Context, *App, error) {
	ctx := contextutil.WithLogger(cmd.Context(), st.logger)
	app, err := st.newApp(ctx, st.cfg, st.logger)
	if err != nil {
		return nil, nil, err
	}
	return ctx, app, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func closeApp(ctx context.Context, app *App) {
	if err := app.Close(); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to close vector store", "error", err)
	}
}
