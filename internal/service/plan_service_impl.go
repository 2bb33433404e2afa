package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/quitplan/internal/clock"
	"github.com/alexanderramin/quitplan/internal/db"
	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/generation"
	"github.com/alexanderramin/quitplan/internal/repository"
	"github.com/google/uuid"
)

type planService struct {
	*engine
	observer UseCaseObserver
}

func NewPlanService(uow db.UnitOfWork, enqueuer ReminderEnqueuer, c clock.Clock, opts Options, observers ...UseCaseObserver) PlanService {
	return &planService{
		engine:   newEngine(uow, enqueuer, c, opts),
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *planService) CreatePlan(ctx context.Context, req CreatePlanRequest) (plan *domain.QuitPlan, err error) {
	startedAt := time.Now()
	fields := map[string]any{"member_id": req.MemberID}
	defer func() { observe(ctx, s.observer, "create-plan", startedAt, fields, err) }()

	now := s.clock.Now()
	if strings.TrimSpace(req.MemberID) == "" {
		return nil, fmt.Errorf("create plan: member id is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("create plan: name is required")
	}
	start := domain.DateOf(req.StartDate)
	if req.StartDate.IsZero() {
		start = domain.DateOf(now)
	}
	if start.Before(domain.DateOf(now)) {
		return nil, fmt.Errorf("create plan: start date %s is in the past", start.Format(domain.DateLayout))
	}

	plan = &domain.QuitPlan{
		ID:        uuid.New().String(),
		MemberID:  req.MemberID,
		Name:      strings.TrimSpace(req.Name),
		Status:    domain.PlanDraft,
		StartDate: start,
		UseNRT:    req.UseNRT,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields["plan_id"] = plan.ID

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		plans := repository.NewSQLitePlanRepo(tx)
		phases := repository.NewSQLitePhaseRepo(tx)

		if _, err := plans.GetActiveByMember(ctx, req.MemberID); err == nil {
			return fmt.Errorf("member %s already has an active plan: %w", req.MemberID, domain.ErrConflict)
		} else if !isNotFound(err) {
			return err
		}

		blueprint, err := repository.NewSQLiteBlueprintRepo(tx).List(ctx)
		if err != nil {
			return err
		}
		if err := generation.ValidateBlueprint(blueprint); err != nil {
			return fmt.Errorf("create plan: %w", err)
		}

		acct, err := s.account(ctx, tx, req.MemberID)
		if err != nil {
			return err
		}
		if err := plans.Create(ctx, plan); err != nil {
			return err
		}

		anchors := generation.ContiguousAnchors(start, blueprint)
		for i, bp := range blueprint {
			p := &domain.Phase{
				ID:           uuid.New().String(),
				PlanID:       plan.ID,
				Kind:         bp.Kind,
				OrderIndex:   i,
				AnchorStart:  anchors[i],
				DurationDays: bp.DurationDays,
				Status:       domain.PhasePendingStart,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := phases.Create(ctx, p); err != nil {
				return err
			}
			plan.Phases = append(plan.Phases, p)
		}

		first := plan.Phases[0]
		if err := first.Start(uuid.New().String(), first.AnchorStart, now); err != nil {
			return err
		}
		details, err := s.openWindow(ctx, tx, plan, first, nil)
		if err != nil {
			return err
		}
		if err := phases.Update(ctx, first); err != nil {
			return err
		}

		if err := plan.Activate(now); err != nil {
			return err
		}
		if err := plans.Update(ctx, plan); err != nil {
			return err
		}

		vars := renderVars(plan, first, first.AnchorStart, 1, "")
		if _, err := s.event(ctx, tx, acct, plan, first, domain.EventPlanStarted,
			fmt.Sprintf("%s starts %s", first.Kind, first.AnchorStart.Format(domain.DateLayout)),
			domain.TriggerPlanStarted, first.Kind, vars); err != nil {
			return err
		}
		queued, err := s.scheduleMornings(ctx, tx, acct, plan, first, details)
		fields["morning_reminders"] = queued
		return err
	})
	if err != nil {
		return nil, err
	}
	fields["phase_count"] = len(plan.Phases)
	return plan, nil
}

func (s *planService) AbandonPlan(ctx context.Context, planID string) (plan *domain.QuitPlan, err error) {
	startedAt := time.Now()
	fields := map[string]any{"plan_id": planID}
	defer func() { observe(ctx, s.observer, "abandon-plan", startedAt, fields, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		plans := repository.NewSQLitePlanRepo(tx)
		var err error
		plan, err = plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := plan.Abandon(now); err != nil {
			return err
		}
		if err := plans.Update(ctx, plan); err != nil {
			return err
		}
		_, err = s.event(ctx, tx, nil, plan, nil, domain.EventPlanAbandoned, "abandoned by member", "", "", nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *planService) GetPlan(ctx context.Context, planID string) (*domain.QuitPlan, error) {
	var plan *domain.QuitPlan
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		plan, err = loadPlan(ctx, tx, planID)
		return err
	})
	return plan, err
}

func (s *planService) GetActivePlan(ctx context.Context, memberID string) (*domain.QuitPlan, error) {
	var plan *domain.QuitPlan
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		active, err := repository.NewSQLitePlanRepo(tx).GetActiveByMember(ctx, memberID)
		if err != nil {
			return err
		}
		plan, err = loadPlan(ctx, tx, active.ID)
		return err
	})
	return plan, err
}

func (s *planService) ListPlans(ctx context.Context, memberID string) ([]*domain.QuitPlan, error) {
	var plans []*domain.QuitPlan
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		plans, err = repository.NewSQLitePlanRepo(tx).ListByMember(ctx, memberID)
		return err
	})
	return plans, err
}

func (s *planService) ListActivePlans(ctx context.Context) ([]*domain.QuitPlan, error) {
	var plans []*domain.QuitPlan
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		plans, err = repository.NewSQLitePlanRepo(tx).ListActive(ctx)
		return err
	})
	return plans, err
}

func (s *planService) GetCurrentPhase(ctx context.Context, planID string) (*CurrentPhase, error) {
	var current *CurrentPhase
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		current, err = currentPhase(ctx, tx, planID, s.clock.Now())
		return err
	})
	return current, err
}

func (s *planService) GetPlanOverview(ctx context.Context, planID string) (*PlanOverview, error) {
	var overview *PlanOverview
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		plan, err := loadPlan(ctx, tx, planID)
		if err != nil {
			return err
		}
		attempts := repository.NewSQLitePhaseAttemptRepo(tx)
		details := repository.NewSQLitePhaseDetailRepo(tx)
		instances := repository.NewSQLiteMissionInstanceRepo(tx)

		overview = &PlanOverview{Plan: plan}
		for _, p := range plan.Phases {
			po := PhaseOverview{Phase: p}
			if p.CurrentAttemptID == nil {
				overview.Phases = append(overview.Phases, po)
				continue
			}
			all, err := attempts.ListByPhase(ctx, p.ID)
			if err != nil {
				return err
			}
			po.Attempts = len(all)

			counts, err := instances.CountByAttempt(ctx, *p.CurrentAttemptID, p.EndDate())
			if err != nil {
				return err
			}
			po.Completed, po.Missed, po.Total = counts.Completed, counts.Missed, counts.Total

			days, err := details.ListByAttempt(ctx, *p.CurrentAttemptID)
			if err != nil {
				return err
			}
			for _, d := range days {
				missions, err := instances.ListByDetail(ctx, d.ID)
				if err != nil {
					return err
				}
				day := DaySummary{Detail: d, Total: len(missions)}
				for _, m := range missions {
					if m.Status == domain.MissionCompleted {
						day.Completed++
					}
				}
				po.Days = append(po.Days, day)
			}
			overview.Phases = append(overview.Phases, po)
		}
		return nil
	})
	return overview, err
}

// loadPlan reads a plan with its phases in order.
func loadPlan(ctx context.Context, tx db.DBTX, planID string) (*domain.QuitPlan, error) {
	plan, err := repository.NewSQLitePlanRepo(tx).GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	phases, err := repository.NewSQLitePhaseRepo(tx).ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].OrderIndex < phases[j].OrderIndex })
	plan.Phases = phases
	return plan, nil
}

func currentPhase(ctx context.Context, tx db.DBTX, planID string, now time.Time) (*CurrentPhase, error) {
	plan, err := loadPlan(ctx, tx, planID)
	if err != nil {
		return nil, err
	}
	current, ok := pickCurrent(plan.Phases, now)
	if !ok {
		return nil, fmt.Errorf("plan %s has no started phase: %w", planID, domain.ErrInvalidState)
	}
	return current, nil
}
