package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AIX-Clever/chat-booking-admin/internal/entitlement"
	"github.com/AIX-Clever/chat-booking-admin/internal/models"
)

type printerFunc func(cmd *cobra.Command) *printer

func newPlansCmd(out printerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect plan tiers and entitlements",
	}
	cmd.AddCommand(newPlansListCmd(out), newPlansResolveCmd(out), newPlansGuardCmd(out))
	return cmd
}

type planRow struct {
	Plan   models.Plan       `json:"plan"`
	Level  int               `json:"level"`
	Limits models.PlanLimits `json:"limits"`
}

func newPlansListCmd(out printerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tiers and their limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]planRow, 0, len(models.AllPlans))
			for _, p := range models.AllPlans {
				rows = append(rows, planRow{Plan: p, Level: models.PlanLevel(p), Limits: models.GetPlanLimits(p)})
			}
			return out(cmd).print(rows, func(w io.Writer) error {
				t := newTable(w)
				fmt.Fprintln(t, "PLAN\tLEVEL\tAI\tUSERS\tMESSAGES\tBOOKINGS\tPROVIDERS")
				for _, r := range rows {
					fmt.Fprintf(t, "%s\t%d\t%s\t%d\t%d\t%d\t%d\n",
						r.Plan, r.Level, yesNo(r.Limits.AIEnabled),
						r.Limits.MaxUsers, r.Limits.MaxMessages, r.Limits.MaxBookings, r.Limits.MaxProviders)
				}
				return t.Flush()
			})
		},
	}
}

type resolveOutput struct {
	entitlement.Result
	SuggestedPlan models.Plan `json:"suggested_plan,omitempty"`
}

func newPlansResolveCmd(out printerFunc) *cobra.Command {
	var plan string
	counters := map[string]*int64{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a plan against usage counters",
		Long: `Resolve computes the entitlements a tenant gets for a plan and usage.
Counters left unset are treated as unknown: users defaults to one, the rest
to zero. An unknown plan resolves as LITE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			usage := &entitlement.Usage{}
			fields := map[string]**int64{
				"messages":  &usage.Messages,
				"bookings":  &usage.Bookings,
				"users":     &usage.Users,
				"providers": &usage.Providers,
			}
			for name, dst := range fields {
				if cmd.Flags().Changed(name) {
					*dst = entitlement.Int64(*counters[name])
				}
			}

			res := resolveOutput{Result: entitlement.Resolve(models.Plan(plan), usage)}
			if next, ok := entitlement.SuggestUpgrade(res.Result); ok {
				res.SuggestedPlan = next
			}

			return out(cmd).print(res, func(w io.Writer) error {
				r := res.Result
				t := newTable(w)
				fmt.Fprintf(t, "Plan:\t%s\n", r.Plan)
				fmt.Fprintf(t, "AI:\t%s\n", yesNo(r.CanUseAI))
				fmt.Fprintf(t, "Users:\t%d / %d\t(can invite: %s)\n", r.Usage.Users, r.Limits.MaxUsers, yesNo(r.CanInviteUser))
				fmt.Fprintf(t, "Providers:\t%d / %d\t(can create: %s)\n", r.Usage.Providers, r.Limits.MaxProviders, yesNo(r.CanCreateProvider))
				fmt.Fprintf(t, "Messages:\t%d / %d\n", r.Usage.Messages, r.Limits.MaxMessages)
				fmt.Fprintf(t, "Bookings:\t%d / %d\n", r.Usage.Bookings, r.Limits.MaxBookings)
				fmt.Fprintf(t, "High usage:\t%s\n", yesNo(r.IsUsageHigh))
				if res.SuggestedPlan != "" {
					fmt.Fprintf(t, "Suggested:\t%s\n", res.SuggestedPlan)
				}
				return t.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&plan, "plan", string(models.PlanLite), "plan tier (exact, case-sensitive)")
	for _, name := range []string{"messages", "bookings", "users", "providers"} {
		counters[name] = cmd.Flags().Int64(name, 0, name+" used in the current period")
	}
	return cmd
}

func newPlansGuardCmd(out printerFunc) *cobra.Command {
	var plan, required, mode string

	cmd := &cobra.Command{
		Use:   "guard",
		Short: "Check whether a plan reaches a required tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.Plan(strings.ToUpper(required))
			if !models.ValidPlan(req) {
				return fmt.Errorf("unknown required plan %q", required)
			}
			d := entitlement.Check(models.Plan(plan), req, entitlement.GuardMode(mode))

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

	cmd.Flags().StringVar(&plan, "plan", string(models.PlanLite), "current plan tier")
	cmd.Flags().StringVar(&required, "required", "", "tier the feature needs")
	cmd.Flags().StringVar(&mode, "mode", string(entitlement.GuardModeBlock), "presentation when denied: block or overlay")
	_ = cmd.MarkFlagRequired("required")
	return cmd
}
