package cli

import (
	"fmt"
	"log/slog"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/alexanderramin/quitplan/internal/sweep"
	"github.com/spf13/cobra"
)

// App holds the services and runners the commands operate on.
type App struct {
	Plans       service.PlanService
	Progression service.ProgressionService
	Diary       service.DiaryService
	Accounts    service.AccountService

	Sweeper    *sweep.Sweeper
	Reconciler *sweep.Reconciler

	// UoW backs the catalog commands, which work below the service layer.
	UoW         db.UnitOfWork
	CatalogPath string

	Clock  clock.Clock
	Logger *slog.Logger
}

func (a *App) now() clock.Clock {
	return clock.OrSystem(a.Clock)
}

// NewRootCmd creates the top-level "quitplan" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "quitplan",
		Short:         "Quit-plan progression engine and reminder sweep",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newPlanCmd(app),
		newMissionCmd(app),
		newPhaseCmd(app),
		newDiaryCmd(app),
		newAccountCmd(app),
		newReminderCmd(app),
		newSweepCmd(app),
		newReconcileCmd(app),
		newServeCmd(app),
		newCatalogCmd(app),
	)

	return root
}

func requireService(ok bool, name string) error {
	if !ok {
		return fmt.Errorf("%s is not configured", name)
	}
	return nil
}
