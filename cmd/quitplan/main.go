package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/quitplan/internal/catalog"
	"github.com/alexanderramin/quitplan/internal/cli"
	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/config"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/metrics"
	"github.com/alexanderramin/quitplan/internal/notify"
	"github.com/alexanderramin/quitplan/internal/service"
	"github.com/alexanderramin/quitplan/internal/sweep"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func run() error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Log.Logger(os.Stderr)

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	uow := db.NewSQLiteUnitOfWork(database)
	clk := clock.System{}

	// A fresh database gets the configured catalog so plans can be created
	// right away.
	seeded, err := catalog.EnsureSeeded(context.Background(), uow, cfg.CatalogPath, clk.Now())
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	if seeded != nil {
		logger.Info("catalog seeded", "phases", seeded.Phases, "missions", seeded.Missions, "templates", seeded.Templates)
	}

	var observers []service.UseCaseObserver
	if cfg.Log.UseCases {
		observers = append(observers, service.NewSlogUseCaseObserver(logger))
	}

	opts := service.Options{MorningHour: cfg.Reminders.MorningHour, Logger: logger}
	enqueuer := service.NewReminderEnqueuer(clk)
	plans := service.NewPlanService(uow, enqueuer, clk, opts, observers...)
	progression := service.NewProgressionService(uow, metrics.NewDiarySource(database, clk), enqueuer, clk, opts, observers...)

	sweeper := sweep.NewSweeper(uow, notify.NewLogDispatcher(logger), clk, sweep.Options{
		Interval:        cfg.Sweep.Interval.Std(),
		DispatchTimeout: cfg.Sweep.DispatchTimeout.Std(),
		MaxConcurrent:   cfg.Sweep.MaxConcurrent,
		RatePerSecond:   cfg.Sweep.RatePerSecond,
		BatchLimit:      cfg.Sweep.BatchLimit,
		ClaimTTL:        cfg.Sweep.ClaimTTL.Std(),
		Title:           cfg.Reminders.Title,
		Logger:          logger,
	})

	app := &cli.App{
		Plans:       plans,
		Progression: progression,
		Diary:       service.NewDiaryService(uow, progression, clk, observers...),
		Accounts:    service.NewAccountService(uow, clk, observers...),
		Sweeper:     sweeper,
		Reconciler:  sweep.NewReconciler(plans, progression, cfg.Reconcile.Interval.Std(), logger),
		UoW:         uow,
		CatalogPath: cfg.CatalogPath,
		Clock:       clk,
		Logger:      logger,
	}

	return cli.NewRootCmd(app).Execute()
}
