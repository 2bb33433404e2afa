package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/alexanderramin/quitplan/internal/sweep"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newSweepCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Deliver due reminders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one reminder sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app.Sweeper != nil, "reminder sweeper"); err != nil {
				return err
			}
			report, err := app.Sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			printSweepReport(cmd.OutOrStdout(), report)
			return nil
		},
	})

	return cmd
}

func newReconcileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-evaluate active plans",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Evaluate the current phase of every active plan once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app.Reconciler != nil, "reconciler"); err != nil {
				return err
			}
			report, err := app.Reconciler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			printReconcileReport(cmd.OutOrStdout(), report)
			return nil
		},
	})

	return cmd
}

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder sweep and reconcile loops until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app.Sweeper != nil || app.Reconciler != nil, "sweep runner"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if app.Logger != nil {
				app.Logger.InfoContext(ctx, "serving", "sweeper", app.Sweeper != nil, "reconciler", app.Reconciler != nil)
			}
			return sweep.Runner{Sweeper: app.Sweeper, Reconciler: app.Reconciler}.Run(ctx)
		},
	}
}

func printSweepReport(w io.Writer, r sweep.Report) {
	fmt.Fprintf(w, "Selected %d due reminders: %s, %s",
		r.Selected,
		color.GreenString("%d sent", r.Sent),
		color.RedString("%d failed", r.Failed),
	)
	if r.Skipped > 0 {
		fmt.Fprintf(w, ", %s", color.YellowString("%d skipped", r.Skipped))
	}
	fmt.Fprintln(w)
}

func printReconcileReport(w io.Writer, r sweep.ReconcileReport) {
	fmt.Fprintf(w, "Evaluated %d active plans\n", r.Plans)

	outcomes := make([]service.EvaluationOutcome, 0, len(r.Outcomes))
	for o := range r.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-16s %d\n", o, r.Outcomes[o])
	}
	if r.Errors > 0 {
		fmt.Fprintln(w, color.RedString("  %d plans failed to evaluate", r.Errors))
	}
}
