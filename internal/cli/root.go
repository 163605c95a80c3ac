// Package cli implements the annualbot command tree: the webhook server, a
// one-shot daily sweep for cron, and a parser probe for operators.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// EnvFile is loaded into the process environment before config is read.
	EnvFile string
	NoColor bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "annualbot",
		Short:         "Annual inspection reminder bot",
		Long:          "Records inspection expiry dates posted to Telegram chats and reminds each chat 30 days ahead.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load if present")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable coloured output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDailyCheckCommand(opts))
	cmd.AddCommand(NewParseCommand(opts))

	return cmd
}
