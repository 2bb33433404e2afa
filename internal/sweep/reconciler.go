package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/quitplan/internal/service"
	"golang.org/x/sync/errgroup"
)

// DefaultReconcileInterval is how often active plans are re-evaluated.
const DefaultReconcileInterval = time.Hour

// ReconcileReport counts evaluation outcomes across active plans.
type ReconcileReport struct {
	Plans    int
	Outcomes map[service.EvaluationOutcome]int
	Errors   int
}

// Reconciler evaluates the current phase of every active plan so windows
// that elapse without new member data still move forward.
type Reconciler struct {
	plans       service.PlanService
	progression service.ProgressionService
	interval    time.Duration
	logger      *slog.Logger
}

func NewReconciler(plans service.PlanService, progression service.ProgressionService, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{plans: plans, progression: progression, interval: interval, logger: logger}
}

// RunOnce evaluates each active plan. A failing plan is logged and counted;
// the rest are still evaluated.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{Outcomes: map[service.EvaluationOutcome]int{}}
	plans, err := r.plans.ListActivePlans(ctx)
	if err != nil {
		return report, fmt.Errorf("listing active plans: %w", err)
	}
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Plans++
		ev, err := r.progression.EvaluatePlan(ctx, p.ID)
		if err != nil {
			report.Errors++
			r.logger.ErrorContext(ctx, "plan evaluation failed", "plan_id", p.ID, "error", err.Error())
			continue
		}
		report.Outcomes[ev.Outcome]++
		if ev.Outcome != service.OutcomeWaiting && ev.Outcome != service.OutcomeUnchanged {
			r.logger.InfoContext(ctx, "plan progressed", "plan_id", p.ID, "phase_id", ev.PhaseID, "outcome", string(ev.Outcome))
		}
	}
	return report, nil
}

// Run reconciles immediately and then on every tick until ctx ends.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.ErrorContext(ctx, "reconcile failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Runner runs the sweep and reconcile loops together until ctx ends or one
// of them fails.
type Runner struct {
	Sweeper    *Sweeper
	Reconciler *Reconciler
}

func (r Runner) Run(ctx context.Context) error {
	if r.Sweeper == nil && r.Reconciler == nil {
		return errors.New("runner has nothing to run")
	}
	g, ctx := errgroup.WithContext(ctx)
	if r.Sweeper != nil {
		g.Go(func() error { return r.Sweeper.Run(ctx) })
	}
	if r.Reconciler != nil {
		g.Go(func() error { return r.Reconciler.Run(ctx) })
	}
	return g.Wait()
}
