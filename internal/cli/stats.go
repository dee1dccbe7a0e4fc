package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roadwatch/roadwatch/internal/config"
	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/persist"
	"github.com/roadwatch/roadwatch/internal/store"
	"github.com/roadwatch/roadwatch/internal/view"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Config string
	Recent int
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics from the database",
		Long: `Print collection counts, notification category totals, and the most
recent notifications from the persisted state.

Example:
  roadwatch stats
  roadwatch stats --recent 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().IntVar(&opts.Recent, "recent", 0, "number of recent notifications to show (default from config)")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
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

	db, err := persist.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	st := store.New(cfg.Collections,
		store.WithNotificationCap(cfg.NotificationCap),
	)
	if err := restoreFromDatabase(cmd.Context(), st, db); err != nil {
		return WrapExitError(ExitCommandError, "failed to restore state", err)
	}

	recent := cfg.RecentLimit
	if opts.Recent > 0 {
		recent = opts.Recent
	}
	overview, err := view.BuildOverview(st.Snapshot(), recent)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build overview", err)
	}

	if opts.Format == "json" {
		return formatter.Success(overview)
	}

	fmt.Fprint(cmd.OutOrStdout(), formatOverview(st.Snapshot().Collections(), overview))
	return nil
}

// formatOverview renders the overview as aligned text, collections in
// registration order.
func formatOverview(order []string, overview view.Overview) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Revision: %d\n\n", overview.Revision)

	b.WriteString("Collections:\n")
	for _, name := range order {
		fmt.Fprintf(&b, "  %-14s %d\n", name, overview.Counts[name])
	}

	b.WriteString("\nNotifications:\n")
	for _, c := range domain.Categories {
		fmt.Fprintf(&b, "  %-14s %d\n", string(c), overview.Categories[c])
	}

	if len(overview.Notifications) > 0 {
		b.WriteString("\nRecent:\n")
		for _, n := range overview.Notifications {
			fmt.Fprintf(&b, "  [%s] %s (%s)\n", n.Category, n.Title, n.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return b.String()
}
