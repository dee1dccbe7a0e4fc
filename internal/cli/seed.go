package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roadwatch/roadwatch/internal/config"
	"github.com/roadwatch/roadwatch/internal/persist"
	"github.com/roadwatch/roadwatch/internal/seed"
	"github.com/roadwatch/roadwatch/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Config string
	DryRun bool
}

// seedSummary is the success payload of the seed command.
type seedSummary struct {
	Collections   int    `json:"collections"`
	Records       int    `json:"records"`
	Notifications int    `json:"notifications"`
	Database      string `json:"database,omitempty"`
	DryRun        bool   `json:"dry_run"`
}

func (s seedSummary) String() string {
	if s.DryRun {
		return fmt.Sprintf("Seed valid: %d records in %d collections, %d notifications (dry run)",
			s.Records, s.Collections, s.Notifications)
	}
	return fmt.Sprintf("Seeded %d records in %d collections and %d notifications into %s",
		s.Records, s.Collections, s.Notifications, s.Database)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <seed-dir>",
		Short: "Load CUE seed data into the database",
		Long: `Validate CUE seed files and load them into the SQLite database.

The seed directory holds .cue files declaring collections of records and an
initial notification log. All files are validated before anything is written;
a validation error leaves the database untouched.

Example:
  roadwatch seed ./seeds
  roadwatch seed --dry-run ./seeds`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate seed files without writing to the database")

	return cmd
}

func runSeed(opts *SeedOptions, seedDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	data, loadErrors := seed.Load(seedDir, seed.LoadModeCollectAll)
	if len(loadErrors) > 0 {
		details := make([]string, len(loadErrors))
		for i, loadErr := range loadErrors {
			details[i] = loadErr.Error()
		}
		_ = formatter.Error("SEED_INVALID",
			fmt.Sprintf("%d validation error(s) in %s", len(loadErrors), seedDir),
			details)
		return NewExitError(ExitFailure, "seed validation failed")
	}

	summary := seedSummary{
		Collections:   len(data.Collections),
		Records:       data.RecordCount(),
		Notifications: len(data.Notifications),
		DryRun:        opts.DryRun,
	}

	if opts.DryRun {
		return formatter.Success(summary)
	}

	db, err := persist.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	st := store.New(cfg.Collections,
		store.WithNotificationCap(cfg.NotificationCap),
	)
	if err := restoreFromDatabase(cmd.Context(), st, db); err != nil {
		return WrapExitError(ExitCommandError, "failed to restore existing state", err)
	}

	if err := data.Apply(st); err != nil {
		return WrapExitError(ExitFailure, "seed rejected by store", err)
	}

	// One save at the end instead of one per seed mutation.
	if err := db.Save(st.Snapshot()); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist seeded state", err)
	}

	summary.Database = cfg.Database
	return formatter.Success(summary)
}
