package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewDailyCheckCommand runs one reminder sweep and prints the counts. It is
// the cron entry point for deployments without an HTTP scheduler.
func NewDailyCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daily-check",
		Short: "Send today's 30-day reminders once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyColor(opts)
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg)

			a, err := buildApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rep, err := a.Reminders.RunDaily(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  today=%s due=%d\n", color.New(color.Bold).Sprint("daily-check"), rep.Today, len(rep.Due))
			fmt.Fprintf(out, "  sent:   %s\n", color.New(color.FgGreen).Sprint(rep.Dispatched-rep.Failed))
			failed := color.New(color.FgGreen).Sprint(rep.Failed)
			if rep.Failed > 0 {
				failed = color.New(color.FgRed).Sprint(rep.Failed)
			}
			fmt.Fprintf(out, "  failed: %s\n", failed)
			return nil
		},
	}
}
