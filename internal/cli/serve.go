package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roadwatch/roadwatch/internal/config"
	"github.com/roadwatch/roadwatch/internal/persist"
	"github.com/roadwatch/roadwatch/internal/store"
	"github.com/roadwatch/roadwatch/internal/web"
)

// shutdownTimeout bounds graceful HTTP shutdown after a signal.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Config string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP server",
		Long: `Start the roadwatch dashboard server.

Loads persisted state from the SQLite database (creating it if it doesn't
exist), then serves the JSON dashboard API and the overview event stream.
Every mutation is written back to the database.

Example:
  roadwatch serve
  roadwatch serve --config ./roadwatch.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logLevel := cfg.SlogLevel()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("opening database", "path", cfg.Database)
	db, err := persist.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	st := store.New(cfg.Collections,
		store.WithNotificationCap(cfg.NotificationCap),
		store.WithSaver(db),
	)

	if err := restoreFromDatabase(cmd.Context(), st, db); err != nil {
		return WrapExitError(ExitCommandError, "failed to restore state", err)
	}
	snap := st.Snapshot()
	slog.Info("state restored",
		"collections", len(snap.Collections()),
		"notifications", len(snap.Notifications()),
	)

	server := web.New(st, logger, cfg.RecentLimit)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	slog.Info("server starting", "addr", cfg.Addr, "db", cfg.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard listening on %s\n", cfg.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown error", err)
		}
	}

	slog.Info("server stopped gracefully")
	return nil
}

// restoreFromDatabase loads persisted state into a fresh store. An empty
// database is not an error; the store just starts empty.
func restoreFromDatabase(ctx context.Context, st *store.Store, db *persist.SQLite) error {
	if ctx == nil {
		ctx = context.Background()
	}

	collections, notifications, err := db.Load(ctx)
	if err != nil {
		return err
	}
	if len(collections) == 0 && len(notifications) == 0 {
		return nil
	}
	return st.Restore(collections, notifications)
}
