package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbourn/annual-inspection-bot/internal/codec"
)

// NewParseCommand runs the date codec on a message text and/or file name and
// prints what the bot would record. It never touches the store.
func NewParseCommand(opts *RootOptions) *cobra.Command {
	var fileName string

	cmd := &cobra.Command{
		Use:   "parse [TEXT...]",
		Short: "Show the plate and date the bot would extract",
		Example: `  annualbot parse "trailer H03058 2026-03-31"
  annualbot parse --file 1225H03058.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyColor(opts)
			text := strings.Join(args, " ")
			if text == "" && fileName == "" {
				return fmt.Errorf("nothing to parse: pass TEXT or --file")
			}

			res := codec.Parse(codec.Source{Text: text, FileName: fileName})
			out := cmd.OutOrStdout()
			if !res.OK {
				fmt.Fprintln(out, color.New(color.FgYellow).Sprint("no match"))
				return nil
			}
			fmt.Fprintf(out, "%s %s -> %s (%s)\n",
				color.New(color.FgGreen).Sprint("match"),
				res.Fact.Plate, res.Fact.Date, res.Fact.Strategy)
			return nil
		},
	}
	cmd.Flags().StringVarP(&fileName, "file", "f", "", "attached document file name, e.g. 1225H03058.pdf")
	return cmd
}
