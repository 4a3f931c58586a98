package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var format string

	root := &cobra.Command{
		Use:   "luciactl",
		Short: "Hola Lucia admin tooling",
		Long: `luciactl works on plan tiers and workflow documents without a server.

Examples:
  luciactl plans list
  luciactl plans resolve --plan PRO --messages 1700 --users 4
  luciactl plans guard --plan PRO --required BUSINESS
  luciactl workflow decode --steps steps.json --metadata metadata.json
  luciactl workflow check --steps steps.json -o yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatJSON, formatYAML:
				return nil
			}
			return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
		},
	}
	root.PersistentFlags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")

	out := func(cmd *cobra.Command) *printer {
		return &printer{w: cmd.OutOrStdout(), format: format}
	}
	root.AddCommand(newPlansCmd(out))
	root.AddCommand(newWorkflowCmd(out))
	root.AddCommand(newRemoteCmd(out))
	return root
}
