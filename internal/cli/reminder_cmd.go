package cli

import (
	"fmt"

	"github.com/alexanderramin/quitplan/internal/cli/formatter"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/spf13/cobra"
)

func newReminderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Inspect queued reminders",
	}
	cmd.AddCommand(newReminderListCmd(app))
	return cmd
}

func newReminderListCmd(app *App) *cobra.Command {
	var member, status string

	cmd := &cobra.Command{
		Use:   "list [PLAN_ID]",
		Short: "List a plan's reminders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planID, err := resolvePlanID(ctx, app, args, member)
			if err != nil {
				return err
			}
			entries, err := app.Progression.ListReminders(ctx, planID)
			if err != nil {
				return err
			}
			if status != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if e.Status == domain.ReminderStatus(status) {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatReminders(entries))
			return nil
		},
	}

	memberVar(cmd.Flags(), &member)
	cmd.Flags().StringVar(&status, "status", "", "Only pending, sent or failed reminders")
	return cmd
}
