package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/quitplan/internal/cli/formatter"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/spf13/cobra"
)

func newDiaryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diary",
		Short: "Record daily diary logs",
	}
	cmd.AddCommand(newDiaryLogCmd(app))
	return cmd
}

func newDiaryLogCmd(app *App) *cobra.Command {
	var member string
	var date time.Time
	var usedNRT bool
	var log domain.DiaryLog

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record how a day went",
		Long:  "Record a diary log. Logging the same day again replaces it. Only the values given are stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.MemberID = member
			log.LogDate = date
			log.UsedNRT = usedNRT

			res, err := app.Diary.Record(cmd.Context(), &log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged %s for member %s\n", formatter.FormatDate(res.Log.LogDate), res.Log.MemberID)
			if res.Evaluation != nil {
				fmt.Fprint(out, formatter.FormatEvaluation(res.Evaluation))
			}
			return nil
		},
	}

	fs := cmd.Flags()
	memberVar(fs, &member)
	dateVar(fs, &date, "date", "Day being logged (YYYY-MM-DD, default today)")
	optionalIntVar(fs, &log.CigarettesSmoked, "cigarettes", "Cigarettes smoked")
	optionalFloatVar(fs, &log.CravingLevel, "craving", "Craving level 0-10")
	optionalFloatVar(fs, &log.Mood, "mood", "Mood 0-10")
	optionalFloatVar(fs, &log.Anxiety, "anxiety", "Anxiety 0-10")
	optionalFloatVar(fs, &log.Confidence, "confidence", "Confidence 0-10")
	fs.BoolVar(&usedNRT, "nrt", false, "Used nicotine replacement")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}
