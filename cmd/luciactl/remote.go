package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AIX-Clever/chat-booking-admin/client"
)

// newRemoteCmd groups commands that call a running API. The server URL and
// token come from flags or LUCIACTL_SERVER / LUCIACTL_TOKEN.
func newRemoteCmd(out printerFunc) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LUCIACTL")
	v.AutomaticEnv()
	v.SetDefault("server", client.DefaultBaseURL)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query a running Hola Lucia API",
		Long: `Remote commands call the admin API with a bearer token.

Examples:
  LUCIACTL_TOKEN=... luciactl remote entitlements
  luciactl remote guard --required BUSINESS --server https://admin-api.holalucia.cl
  luciactl remote usage --months 3
  luciactl remote check --action invite_user
  luciactl remote workflows
  luciactl remote graph 01J9ZQ3K8V4X2M7N5P6R8T0W1Y -o yaml
  luciactl remote import-steps 01J9ZQ3K8V4X2M7N5P6R8T0W1Y --steps steps.json`,
	}
	cmd.PersistentFlags().String("server", "", "API base URL")
	cmd.PersistentFlags().String("token", "", "bearer token")
	_ = v.BindPFlag("server", cmd.PersistentFlags().Lookup("server"))
	_ = v.BindPFlag("token", cmd.PersistentFlags().Lookup("token"))

	getClient := func() (*client.Client, error) {
		token := v.GetString("token")
		if token == "" {
			return nil, fmt.Errorf("no token: set --token or LUCIACTL_TOKEN")
		}
		return client.New(token, client.WithBaseURL(v.GetString("server"))), nil
	}

	cmd.AddCommand(
		newRemoteEntitlementsCmd(out, getClient),
		newRemoteGuardCmd(out, getClient),
		newRemoteUsageCmd(out, getClient),
		newRemoteCheckCmd(out, getClient),
		newRemoteWorkflowsCmd(out, getClient),
		newRemoteGraphCmd(out, getClient),
		newRemoteImportStepsCmd(out, getClient),
	)
	return cmd
}

type clientFunc func() (*client.Client, error)

func newRemoteEntitlementsCmd(out printerFunc, getClient clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "entitlements",
		Short: "Show the tenant's entitlements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient()
			if err != nil {
				return err
			}
			ents, err := c.Entitlements.Get(cmd.Context())
			if err != nil {
				return err
			}
			return out(cmd).print(ents, func(w io.Writer) error {
				t := newTable(w)
				fmt.Fprintf(t, "Plan:\t%s\n", ents.Plan)
				fmt.Fprintf(t, "AI:\t%s\n", yesNo(ents.CanUseAI))
				fmt.Fprintf(t, "Users:\t%d / %d\n", ents.Usage.Users, ents.Limits.MaxUsers)
				fmt.Fprintf(t, "Providers:\t%d / %d\n", ents.Usage.Providers, ents.Limits.MaxProviders)
				fmt.Fprintf(t, "Messages:\t%d / %d\n", ents.Usage.Messages, ents.Limits.MaxMessages)
				fmt.Fprintf(t, "Bookings:\t%d / %d\n", ents.Usage.Bookings, ents.Limits.MaxBookings)
				if ents.SuggestedPlan != "" {
					fmt.Fprintf(t, "Suggested:\t%s\n", ents.SuggestedPlan)
				}
				return t.Flush()
			})
		},
	}
}

func newRemoteGuardCmd(out printerFunc, getClient clientFunc) *cobra.Command {
	var required, mode string
	cmd := &cobra.Command{
		Use:   "guard",
		Short: "Check a feature tier against the tenant's plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient()
			if err != nil {
				return err
			}
			d, err := c.Entitlements.Guard(cmd.Context(), strings.ToUpper(required), mode)
			if err != nil {
				return err
			}
			return out(cmd).print(d, func(w io.Writer) error {
				if d.Allowed {
					_, err := fmt.Fprintf(w, "allowed: %s reaches %s\n", d.Current, d.Required)
					return err
				}
				_, err := fmt.Fprintf(w, "denied: %s is below %s, upgrade to %s (%s)\n", d.Current, d.Required, d.UpgradeTo, d.Mode)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&required, "required", "", "tier the feature needs")
	cmd.Flags().StringVar(&mode, "mode", "", "block or overlay")
	_ = cmd.MarkFlagRequired("required")
	return cmd
}

func newRemoteUsageCmd(out printerFunc, getClient clientFunc) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show metered usage per billing period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient()
			if err != nil {
				return err
			}
			rows, err := c.Entitlements.Usage(cmd.Context(), months)
			if err != nil {
				return err
			}
			return out(cmd).print(rows, func(w io.Writer) error {
				t := newTable(w)
				fmt.Fprintln(t, "PERIOD\tMETRIC\tVALUE")
				for _, row := range rows {
					fmt.Fprintf(t, "%s\t%s\t%d\n", row.PeriodStart.Format("2006-01"), row.Metric, row.Value)
				}
				return t.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&months, "months", 1, "billing periods to include, current first")
	return cmd
}

func newRemoteCheckCmd(out printerFunc, getClient clientFunc) *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether the tenant may invite a user, add a provider or use AI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient()
			if err != nil {
				return err
			}
			res, err := c.Entitlements.Check(cmd.Context(), action)
			if apiErr, ok := client.AsError(err); ok && (apiErr.IsQuotaExceeded() || apiErr.IsUpgradeRequired()) {
				return fmt.Errorf("%s denied on %s plan: %w", action, apiErr.CurrentPlan(), err)
			}
			if err != nil {
				return err
			}
			return out(cmd).print(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "allowed: %s\n", res.Action)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "invite_user, create_provider or use_ai")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func newRemoteWorkflowsCmd(out printerFunc, getClient clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List the tenant's workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient()
			if err != nil {
				return err
			}
			list, err := c.Workflows.List(cmd.Context())
			if err != nil {
				return err
			}
			return out(cmd).print(list, func(w io.Writer) error {
				if len(list) == 0 {
					_, err := fmt.Fprintln(w, "No workflows found")
					return err
				}
				t := newTable(w)
				fmt.Fprintln(t, "ID\tNAME\tUPDATED")
				for _, wf := range list {
					fmt.Fprintf(t, "%s\t%s\t%s\n", wf.ID, wf.Name, wf.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return t.Flush()
			})
		},
	}
}

func newRemoteGraphCmd(out printerFunc, getClient clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <workflow-id>",
		Short: "Print a workflow's editor graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient()
			if err != nil {
				return err
			}
			g, err := c.Workflows.Graph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p := out(cmd)
			if p.format == formatText {
				p.format = formatJSON
			}
			return p.print(g, nil)
		},
	}
}

func newRemoteImportStepsCmd(out printerFunc, getClient clientFunc) *cobra.Command {
	var stepsPath string
	cmd := &cobra.Command{
		Use:   "import-steps <workflow-id>",
		Short: "Replace a workflow's step map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(stepsPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", stepsPath, err)
			}
			if !json.Valid(doc) {
				return fmt.Errorf("%s is not valid JSON", stepsPath)
			}
			c, err := getClient()
			if err != nil {
				return err
			}
			res, err := c.Workflows.ImportSteps(cmd.Context(), args[0], doc)
			if err != nil {
				return err
			}
			return out(cmd).print(res.Warnings, func(w io.Writer) error {
				fmt.Fprintf(w, "saved %s (%d nodes)\n", args[0], len(res.Graph.Nodes))
				for _, warning := range res.Warnings {
					fmt.Fprintf(w, "warning: %s\n", warning)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stepsPath, "steps", "", "step map JSON file")
	_ = cmd.MarkFlagRequired("steps")
	return cmd
}
