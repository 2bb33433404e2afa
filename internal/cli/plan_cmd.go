package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/cli/formatter"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create, inspect and abandon quit plans",
	}

	cmd.AddCommand(
		newPlanCreateCmd(app),
		newPlanAbandonCmd(app),
		newPlanShowCmd(app),
		newPlanCurrentCmd(app),
		newPlanEventsCmd(app),
		newPlanListCmd(app),
	)

	return cmd
}

func newPlanCreateCmd(app *App) *cobra.Command {
	var member, name string
	var start time.Time
	var useNRT bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a new plan for a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if start.IsZero() {
				start = app.now().Now()
			}
			plan, err := app.Plans.CreatePlan(ctx, service.CreatePlanRequest{
				MemberID:  member,
				Name:      name,
				StartDate: start,
				UseNRT:    useNRT,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created plan %s (%s) for member %s\n", formatter.Bold(plan.Name), plan.ID, plan.MemberID)
			ov, err := app.Plans.GetPlanOverview(ctx, plan.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatPlanOverview(ov, app.now().Now()))
			return nil
		},
	}

	memberVar(cmd.Flags(), &member)
	cmd.Flags().StringVar(&name, "name", "Quit plan", "Plan name")
	dateVar(cmd.Flags(), &start, "start", "Start date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&useNRT, "nrt", false, "Include nicotine replacement missions")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func newPlanAbandonCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon PLAN_ID",
		Short: "Abandon a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := app.Plans.AbandonPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Abandoned plan %s on %s\n", plan.ID, formatter.FormatDate(*plan.EndDate))
			return nil
		},
	}
}

func newPlanShowCmd(app *App) *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "show [PLAN_ID]",
		Short: "Show a plan with its phases",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planID, err := resolvePlanID(ctx, app, args, member)
			if err != nil {
				return err
			}
			ov, err := app.Plans.GetPlanOverview(ctx, planID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlanOverview(ov, app.now().Now()))
			return nil
		},
	}

	memberVar(cmd.Flags(), &member)
	return cmd
}

func newPlanCurrentCmd(app *App) *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "current [PLAN_ID]",
		Short: "Show the phase a plan is in today",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planID, err := resolvePlanID(ctx, app, args, member)
			if err != nil {
				return err
			}
			cur, err := app.Plans.GetCurrentPhase(ctx, planID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCurrentPhase(cur, app.now().Now()))
			return nil
		},
	}

	memberVar(cmd.Flags(), &member)
	return cmd
}

func newPlanEventsCmd(app *App) *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "events [PLAN_ID]",
		Short: "Show a plan's event log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planID, err := resolvePlanID(ctx, app, args, member)
			if err != nil {
				return err
			}
			events, err := app.Progression.ListEvents(ctx, planID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEvents(events))
			return nil
		},
	}

	memberVar(cmd.Flags(), &member)
	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a member's plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := app.Plans.ListPlans(cmd.Context(), member)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlanList(plans))
			return nil
		},
	}

	memberVar(cmd.Flags(), &member)
	_ = cmd.MarkFlagRequired("member")
	return cmd
}
