package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/quitplan/internal/cli/formatter"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/spf13/cobra"
)

func newMissionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mission",
		Short: "Work with daily missions",
	}

	cmd.AddCommand(
		newMissionTodayCmd(app),
		newMissionCompleteCmd(app),
		newMissionHistoryCmd(app),
	)

	return cmd
}

func newMissionTodayCmd(app *App) *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "today [PLAN_ID]",
		Short: "Show today's missions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planID, err := resolvePlanID(ctx, app, args, member)
			if err != nil {
				return err
			}
			today, err := app.Progression.GetMissionsForToday(ctx, planID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTodayMissions(today))
			return nil
		},
	}

	memberVar(cmd.Flags(), &member)
	return cmd
}

func newMissionCompleteCmd(app *App) *cobra.Command {
	var outcome, notes string
	var triggers []string

	cmd := &cobra.Command{
		Use:   "complete MISSION_ID",
		Short: "Report the outcome of a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Progression.RecordMissionCompletion(cmd.Context(), service.RecordMissionRequest{
				MissionID: args[0],
				Outcome:   domain.MissionStatus(strings.ToLower(outcome)),
				Notes:     notes,
				Triggers:  triggers,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMissionRecorded(res))
			return nil
		},
	}

	cmd.Flags().StringVar(&outcome, "outcome", string(domain.MissionCompleted), "completed, skipped or failed")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes")
	cmd.Flags().StringSliceVar(&triggers, "trigger", nil, "Smoking trigger (repeatable)")

	return cmd
}

func newMissionHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history PHASE_ID",
		Short: "Show every mission of a phase across attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := app.Progression.ListMissionHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMissionHistory(rows))
			return nil
		},
	}
}
