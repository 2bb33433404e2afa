package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/cli/formatter"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/spf13/cobra"
)

func newPhaseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Evaluate and redo phases",
	}

	cmd.AddCommand(
		newPhaseEvaluateCmd(app),
		newPhaseRedoCmd(app),
	)

	return cmd
}

func newPhaseEvaluateCmd(app *App) *cobra.Command {
	var planID string

	cmd := &cobra.Command{
		Use:   "evaluate [PHASE_ID]",
		Short: "Check whether a phase can advance",
		Long:  "Evaluate a phase by ID, or the current phase of --plan.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				ev  *service.Evaluation
				err error
			)
			switch {
			case len(args) == 1:
				ev, err = app.Progression.EvaluatePhaseAdvancement(ctx, args[0])
			case planID != "":
				ev, err = app.Progression.EvaluatePlan(ctx, planID)
			default:
				return fmt.Errorf("a phase ID or --plan is required")
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEvaluation(ev))
			return nil
		},
	}

	cmd.Flags().StringVar(&planID, "plan", "", "Evaluate the current phase of this plan")
	return cmd
}

func newPhaseRedoCmd(app *App) *cobra.Command {
	var anchor time.Time

	cmd := &cobra.Command{
		Use:   "redo PHASE_ID",
		Short: "Restart a redo-eligible phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if anchor.IsZero() {
				anchor = app.now().Now()
			}
			phase, err := app.Progression.RedoPhase(cmd.Context(), args[0], anchor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restarted %s: %s\n", formatter.PhaseBadge(phase.Kind), formatter.Window(phase))
			return nil
		},
	}

	dateVar(cmd.Flags(), &anchor, "anchor", "First day of the new window (YYYY-MM-DD, default today)")
	return cmd
}
